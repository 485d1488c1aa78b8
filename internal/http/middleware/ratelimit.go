package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to the bucket it draws from.
type KeyFunc func(*gin.Context) string

// callerID is the identity the handlers act for: the "userID" context value
// set by upstream auth, else the X-User-ID header. Empty when anonymous.
func callerID(c *gin.Context) string {
	if s := c.GetString("userID"); s != "" {
		return s
	}
	return strings.TrimSpace(c.GetHeader("X-User-ID"))
}

// KeyByCaller buckets channel-flow requests per caller and anonymous ones per
// client IP. Requests under webhookPrefix are unauthenticated and all act for
// the same reserved owner, so they are keyed by IP and route and never share
// a bucket with a user, whatever X-User-ID they carry.
func KeyByCaller(webhookPrefix string) KeyFunc {
	webhookPrefix = strings.TrimRight(webhookPrefix, "/")
	return func(c *gin.Context) string {
		path := c.Request.URL.Path
		if webhookPrefix != "" && (path == webhookPrefix || strings.HasPrefix(path, webhookPrefix+"/")) {
			return "webhook:" + c.ClientIP() + ":" + routeOf(c)
		}
		if id := callerID(c); id != "" {
			return "user:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter is a process-local token bucket per key. Buckets idle for
// longer than the idle window are swept lazily.
type RateLimiter struct {
	limit rate.Limit
	burst int
	key   KeyFunc
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter allows rps requests per second per key with the given burst
// (at least 1).
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   max(burst, 1),
		key:     key,
		idle:    10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.idle {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.idle {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// Len reports the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay, which is served without spending a token.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler enforces the limit, answering 429 with Retry-After in whole
// seconds until the bucket refills.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		lim := rl.limiter(rl.key(c))
		now := rl.now()
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		wait := time.Second
		if r := lim.ReserveN(now, 1); r.OK() {
			wait = r.DelayFrom(now)
			r.CancelAt(now)
		}
		c.Header("Retry-After", strconv.Itoa(max(1, int(math.Ceil(wait.Seconds())))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
