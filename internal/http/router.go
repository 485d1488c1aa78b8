// Package httpapi assembles the Gin engine for the scheduler: middleware
// chain, service wiring and the route table under the API base path.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-slack-scheduler/internal/config"
	_ "github.com/tbourn/go-slack-scheduler/internal/docs" // registers the OpenAPI spec
	"github.com/tbourn/go-slack-scheduler/internal/http/handlers"
	"github.com/tbourn/go-slack-scheduler/internal/http/middleware"
	"github.com/tbourn/go-slack-scheduler/internal/repo"
	"github.com/tbourn/go-slack-scheduler/internal/services"
)

// maxBodyBytes caps request bodies; a Slack message is at most a few KiB.
const maxBodyBytes = 1 << 20

// SlackAPI is everything the HTTP surface needs from the Slack client.
type SlackAPI interface {
	services.Sender
	services.ChannelLister
	services.TokenChecker
}

// idempotencyShim backs both the middleware lookup and the handlers'
// IdempotencyStore with the idempotency_keys table. A storage failure only
// disables replay for that request.
type idempotencyShim struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s idempotencyShim) Lookup(ctx context.Context, userID, scope, key string, now time.Time) (string, bool) {
	rec, err := repo.GetIdempotency(ctx, s.db, userID, scope, key, now)
	if err != nil || rec == nil {
		return "", false
	}
	return rec.ResourceID, true
}

// Exists is the middleware.IdempotencyLookup view of Lookup.
func (s idempotencyShim) Exists(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	_, found := s.Lookup(ctx, userID, scope, key, now)
	return found, nil
}

// Remember stores the key. Losing a race to a concurrent request with the
// same key is fine; that request's row wins.
func (s idempotencyShim) Remember(ctx context.Context, userID, scope, key, resourceID string, status int) {
	_, err := repo.CreateIdempotency(ctx, s.db, userID, scope, key, resourceID, status, s.ttl)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		log.Ctx(ctx).Warn().Err(err).Str("scope", scope).Msg("idempotency record not stored")
	}
}

// RegisterRoutes installs the middleware chain and mounts the scheduler API
// under cfg.APIBasePath. status may be nil when the dispatcher is disabled.
//
// Order: tracing, request id, access log, recovery, body cap, gzip, metrics,
// idempotency, rate limit, CORS, security headers. Idempotency runs before
// the limiter so a replayed schedule request does not spend a token.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, sl SlackAPI, status handlers.SchedulerStatus, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath
	idem := idempotencyShim{db: db, ttl: cfg.IdempotencyTTL}

	r.Use(
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key", "X-Slack-Signature"},
			SkipPaths:   []string{"/health", "/metrics"},
		}),
		middleware.Recovery(),
		limitBody(maxBodyBytes),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
		middleware.Metrics(),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, idem.Exists),
		middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByCaller(joinPath(apiBase, "/webhook"))).Handler(),
		corsMiddleware(cfg.CORS),
		middleware.SecurityHeaders(middleware.SecurityOptions{
			EnableHSTS:      cfg.Security.EnableHSTS,
			HSTSMaxAge:      cfg.Security.HSTSMaxAge,
			NoStorePrefixes: []string{joinPath(apiBase, "/accounts"), joinPath(apiBase, "/me")},
		}),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	accounts := services.NewAccountService(db, sl)

	sched := services.NewScheduleService(db)
	sched.WebhookEnabled = cfg.Slack.WebhookEnabled()
	sched.MaxHorizon = cfg.Scheduler.MaxHorizon
	if cfg.MessageMaxRunes > 0 {
		sched.MaxBodyRunes = cfg.MessageMaxRunes
	}

	send := &services.SendService{
		Slack:        sl,
		Credentials:  accounts,
		WebhookURL:   cfg.Slack.WebhookURL,
		MaxBodyRunes: sched.MaxBodyRunes,
		Timeout:      cfg.Scheduler.SendTimeout,
	}

	h := handlers.New(handlers.Deps{
		Schedule:       sched,
		Send:           send,
		Channels:       services.NewChannelService(sl, accounts),
		Accounts:       accounts,
		Scheduler:      status,
		Idempotency:    idem,
		WebhookEnabled: cfg.Slack.WebhookEnabled(),
	})

	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/accounts/link", h.LinkAccount)
		api.GET("/me/token-status", h.TokenStatus)

		api.GET("/channels", h.ListChannels)
		api.GET("/channels/debug", h.DiagnoseChannels)

		api.POST("/messages/send", h.SendMessage)
		api.POST("/messages/schedule", h.ScheduleMessage)
		api.GET("/messages/scheduled", h.ListScheduled)
		api.GET("/messages/scheduled/:id", h.GetScheduled)
		api.PUT("/messages/scheduled/:id", h.EditScheduled)
		api.POST("/messages/scheduled/:id/cancel", h.CancelScheduled)
		api.DELETE("/messages/scheduled/:id", h.DeleteScheduled)

		// Unauthenticated; every row here belongs to domain.WebhookOwner.
		wh := api.Group("/webhook", h.RequireWebhook())
		wh.POST("/send", h.WebhookSend)
		wh.POST("/schedule", h.WebhookSchedule)
		wh.GET("/scheduled", h.WebhookListScheduled)
		wh.PUT("/scheduled/:id", h.WebhookEditScheduled)
		wh.POST("/scheduled/:id/cancel", h.WebhookCancelScheduled)

		api.GET("/scheduler/status", h.SchedulerStatus)
	}
}

// corsMiddleware allows any origin when no allowlist is configured. The API
// is bearer-free (identity comes from X-User-ID behind a gateway), so
// credentials are never allowed.
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-User-ID", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID, "ETag", "Idempotency-Replayed", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(cc)
}

// limitBody wraps the body in http.MaxBytesReader; binding an oversized
// request then fails and the handler answers 400.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// groupWithPrefix mounts at root when prefix is "" or "/".
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "/" {
		prefix = ""
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	return strings.TrimRight(base, "/") + p
}
