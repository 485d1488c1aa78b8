package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-slack-scheduler/internal/slack"
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are logged as "[REDACTED]" in addition to Authorization,
	// Cookie and Set-Cookie. Case-insensitive.
	MaskHeaders []string
	// SkipPaths are not access-logged (health checks, metrics scrapes).
	SkipPaths []string
}

var emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)

// scrub removes Slack credentials and e-mail addresses from s.
func scrub(s string) string {
	return emailRE.ReplaceAllString(slack.Redact(s), "[REDACTED:email]")
}

// RedactingLogger is the access logger. It attaches a request-scoped logger
// (request id, route, caller) for LoggerFrom, then logs one line per request
// with the query string and headers scrubbed of Slack tokens, webhook URLs and
// e-mail addresses. Bodies are never logged.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := routeOf(c)

		lg := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("route", route).
			Str("caller", callerID(c)).
			Logger()
		c.Set(ctxLogger, &lg)

		c.Next()

		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			ev = lg.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", scrub(c.Errors.String()))
			}
		case status >= http.StatusBadRequest:
			ev = lg.Warn()
		default:
			ev = lg.Info()
		}
		ev.
			Str("method", c.Request.Method).
			Str("query", scrub(c.Request.URL.RawQuery)).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", scrubHeaders(c.Request.Header, masked)).
			Msg("http_request")
	}
}

func scrubHeaders(h http.Header, masked map[string]struct{}) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = scrub(strings.Join(vv, ", "))
	}
	return out
}

// routeOf prefers the matched route template so ids stay out of log keys.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
