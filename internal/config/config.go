// Package config loads the scheduler's settings from the environment.
//
// Every variable has a default. A variable that is set but malformed (for
// example SCHED_INTERVAL=soon) is an error rather than a silent fallback, so
// a typo cannot quietly change how often messages are dispatched.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CORSConfig lists browser origins allowed to call the API. Empty allows all.
type CORSConfig struct {
	AllowedOrigins []string // CORS_ALLOWED_ORIGINS, comma separated
}

// SecurityConfig controls HSTS.
type SecurityConfig struct {
	EnableHSTS bool          // ENABLE_HSTS
	HSTSMaxAge time.Duration // HSTS_MAX_AGE
}

// OTELConfig configures trace export.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT, host:port
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG, 0..1
}

// SlackConfig defines outbound delivery settings.
type SlackConfig struct {
	APIBaseURL  string        // SLACK_API_BASE_URL
	WebhookURL  string        // SLACK_WEBHOOK_URL; empty disables the webhook flow
	HTTPTimeout time.Duration // SLACK_HTTP_TIMEOUT
	RateRPS     float64       // SLACK_RATE_RPS; 0 = unlimited
	RateBurst   int           // SLACK_RATE_BURST
}

// WebhookEnabled reports whether a webhook URL is configured.
func (c SlackConfig) WebhookEnabled() bool { return c.WebhookURL != "" }

// SchedulerConfig defines the dispatch loop and retention sweep.
type SchedulerConfig struct {
	Enabled       bool          // SCHED_ENABLED
	Interval      time.Duration // SCHED_INTERVAL
	BatchSize     int           // SCHED_BATCH_SIZE
	SendTimeout   time.Duration // SCHED_SEND_TIMEOUT
	RetentionAge  time.Duration // RETENTION_DAYS, as a duration
	RetentionCron string        // RETENTION_CRON
	MaxHorizon    time.Duration // SCHEDULE_MAX_HORIZON; 0 = unbounded
}

// RedisConfig defines the optional delivery receipt cache.
type RedisConfig struct {
	Addr     string        // REDIS_ADDR; empty disables the cache
	Password string        // REDIS_PASSWORD
	DB       int           // REDIS_DB
	TTL      time.Duration // REDIS_TTL
}

// Config is the full runtime configuration.
type Config struct {
	Port              string // PORT
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string // always starts with "/", no trailing slash

	DBPath    string
	DBTracing bool

	MessageMaxRunes int

	Slack     SlackConfig
	Scheduler SchedulerConfig
	Redis     RedisConfig

	// Inbound API rate limit, per caller.
	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// MustLoad is Load for callers that cannot start without a valid config.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, applies defaults and validates the result. All
// problems are reported together.
func Load() (Config, error) {
	var e env
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.duration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.duration("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           ginMode(e.str("GIN_MODE", "release")),

		LogLevel:       logLevel(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.flag("LOG_PRETTY", false),
		SwaggerEnabled: e.flag("SWAGGER_ENABLED", false),
		APIBasePath:    basePath(e.str("API_BASE_PATH", "/api/v1")),

		DBPath:    e.str("DB_PATH", "app.db"),
		DBTracing: e.flag("DB_TRACING", false),

		MessageMaxRunes: e.integer("MESSAGE_MAX_RUNES", 4000),

		Slack: SlackConfig{
			APIBaseURL:  strings.TrimRight(e.str("SLACK_API_BASE_URL", "https://slack.com/api"), "/"),
			WebhookURL:  e.str("SLACK_WEBHOOK_URL", ""),
			HTTPTimeout: e.duration("SLACK_HTTP_TIMEOUT", 10*time.Second),
			RateRPS:     e.number("SLACK_RATE_RPS", 0),
			RateBurst:   e.integer("SLACK_RATE_BURST", 1),
		},
		Scheduler: SchedulerConfig{
			Enabled:       e.flag("SCHED_ENABLED", true),
			Interval:      e.duration("SCHED_INTERVAL", time.Minute),
			BatchSize:     e.integer("SCHED_BATCH_SIZE", 5),
			SendTimeout:   e.duration("SCHED_SEND_TIMEOUT", 15*time.Second),
			RetentionAge:  time.Duration(e.integer("RETENTION_DAYS", 30)) * 24 * time.Hour,
			RetentionCron: e.str("RETENTION_CRON", "0 0 * * *"),
			MaxHorizon:    e.duration("SCHEDULE_MAX_HORIZON", 365*24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     e.str("REDIS_ADDR", ""),
			Password: e.str("REDIS_PASSWORD", ""),
			DB:       e.integer("REDIS_DB", 0),
			TTL:      e.duration("REDIS_TTL", 72*time.Hour),
		},

		RateRPS:   e.number("RATE_RPS", 5),
		RateBurst: e.integer("RATE_BURST", 10),

		CORS:     CORSConfig{AllowedOrigins: csv(e.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{EnableHSTS: e.flag("ENABLE_HSTS", false), HSTSMaxAge: e.duration("HSTS_MAX_AGE", 180*24*time.Hour)},

		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.flag("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "go-slack-scheduler"),
			SampleRatio: e.number("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}

	errs := append(e.errs, cfg.validate()...)
	return cfg, errors.Join(errs...)
}

func (c Config) validate() []error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.LogLevel != "", "LOG_LEVEL must be one of debug, info, warn, error, fatal, panic")
	check(c.Port != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0, "server timeouts must be positive")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(c.DBPath != "", "DB_PATH must not be empty")
	check(c.MessageMaxRunes >= 1, "MESSAGE_MAX_RUNES must be >= 1")

	if c.Slack.WebhookURL != "" {
		u, err := url.Parse(c.Slack.WebhookURL)
		check(err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != "", "SLACK_WEBHOOK_URL must be an absolute http(s) URL")
	}
	check(c.Slack.HTTPTimeout > 0, "SLACK_HTTP_TIMEOUT must be > 0")
	check(c.Slack.RateRPS >= 0, "SLACK_RATE_RPS must be >= 0")

	check(c.Scheduler.Interval > 0, "SCHED_INTERVAL must be > 0")
	check(c.Scheduler.SendTimeout > 0, "SCHED_SEND_TIMEOUT must be > 0")
	check(c.Scheduler.BatchSize >= 1, "SCHED_BATCH_SIZE must be >= 1")
	check(c.Scheduler.RetentionAge >= 0, "RETENTION_DAYS must be >= 0")
	check(c.Scheduler.MaxHorizon >= 0, "SCHEDULE_MAX_HORIZON must be >= 0")
	if _, err := cron.ParseStandard(c.Scheduler.RetentionCron); err != nil {
		errs = append(errs, fmt.Errorf("RETENTION_CRON: %w", err))
	}

	check(c.Redis.TTL > 0, "REDIS_TTL must be > 0")
	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	return errs
}

// env reads variables and remembers every malformed one.
type env struct{ errs []error }

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) fail(k, v, want string) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q is not a valid %s", k, v, want))
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *env) integer(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v, "integer")
		return def
	}
	return n
}

func (e *env) number(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(k, v, "number")
		return def
	}
	return f
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v, "duration")
		return def
	}
	return d
}

func (e *env) flag(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.fail(k, v, "boolean")
	return def
}

// logLevel returns "" for an unknown level so validate can report it.
func logLevel(s string) string {
	switch s = strings.ToLower(s); s {
	case "warning":
		return "warn"
	case "debug", "info", "warn", "error", "fatal", "panic":
		return s
	}
	return ""
}

func ginMode(s string) string {
	switch s = strings.ToLower(s); s {
	case "debug", "test":
		return s
	}
	return "release"
}

func basePath(p string) string {
	return "/" + strings.Trim(p, "/")
}

func csv(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
