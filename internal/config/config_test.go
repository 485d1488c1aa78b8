package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so the host environment cannot
// leak into a test. t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE",
		"LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED", "API_BASE_PATH", "DB_PATH", "DB_TRACING", "MESSAGE_MAX_RUNES",
		"SLACK_API_BASE_URL", "SLACK_WEBHOOK_URL", "SLACK_HTTP_TIMEOUT", "SLACK_RATE_RPS", "SLACK_RATE_BURST",
		"SCHED_ENABLED", "SCHED_INTERVAL", "SCHED_BATCH_SIZE", "SCHED_SEND_TIMEOUT", "RETENTION_DAYS", "RETENTION_CRON", "SCHEDULE_MAX_HORIZON",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_TTL", "RATE_RPS", "RATE_BURST",
		"CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE", "IDEMPOTENCY_TTL",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" || cfg.APIBasePath != "/api/v1" || cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("server defaults: %+v", cfg)
	}
	if cfg.Slack.APIBaseURL != "https://slack.com/api" || cfg.Slack.WebhookEnabled() || cfg.Slack.HTTPTimeout != 10*time.Second {
		t.Fatalf("slack defaults: %+v", cfg.Slack)
	}
	want := SchedulerConfig{
		Enabled:       true,
		Interval:      time.Minute,
		BatchSize:     5,
		SendTimeout:   15 * time.Second,
		RetentionAge:  30 * 24 * time.Hour,
		RetentionCron: "0 0 * * *",
		MaxHorizon:    365 * 24 * time.Hour,
	}
	if cfg.Scheduler != want {
		t.Fatalf("scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.MessageMaxRunes != 4000 || cfg.Redis.Addr != "" || cfg.Redis.TTL != 72*time.Hour || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("misc defaults: %+v", cfg)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.ServiceName != "go-slack-scheduler" || cfg.OTEL.SampleRatio != 1 {
		t.Fatalf("otel defaults: %+v", cfg.OTEL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_PATH", "scheduler/v2/")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "whatever")
	t.Setenv("SLACK_API_BASE_URL", "http://slack-mock:9000/api/")
	t.Setenv("SLACK_WEBHOOK_URL", "  https://hooks.slack.com/services/T1/B1/abc  ")
	t.Setenv("SLACK_RATE_RPS", "1.5")
	t.Setenv("SCHED_ENABLED", "off")
	t.Setenv("SCHED_INTERVAL", "30s")
	t.Setenv("SCHED_BATCH_SIZE", "20")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("RETENTION_CRON", "@hourly")
	t.Setenv("SCHEDULE_MAX_HORIZON", "0s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com , ,https://ops.example.com")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBasePath != "/scheduler/v2" || cfg.LogLevel != "warn" || cfg.GinMode != "release" {
		t.Fatalf("normalization: base=%q level=%q mode=%q", cfg.APIBasePath, cfg.LogLevel, cfg.GinMode)
	}
	if cfg.Slack.APIBaseURL != "http://slack-mock:9000/api" || cfg.Slack.WebhookURL != "https://hooks.slack.com/services/T1/B1/abc" || !cfg.Slack.WebhookEnabled() {
		t.Fatalf("slack: %+v", cfg.Slack)
	}
	if cfg.Slack.RateRPS != 1.5 {
		t.Fatalf("slack rps=%v", cfg.Slack.RateRPS)
	}
	s := cfg.Scheduler
	if s.Enabled || s.Interval != 30*time.Second || s.BatchSize != 20 || s.RetentionAge != 7*24*time.Hour || s.RetentionCron != "@hourly" || s.MaxHorizon != 0 {
		t.Fatalf("scheduler: %+v", s)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.OTEL.SampleRatio != 0.25 {
		t.Fatalf("redis=%q ratio=%v", cfg.Redis.Addr, cfg.OTEL.SampleRatio)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://app.example.com", "https://ops.example.com"}) {
		t.Fatalf("origins=%#v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_MalformedValuesAreErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHED_INTERVAL", "soon")
	t.Setenv("SCHED_BATCH_SIZE", "five")
	t.Setenv("SCHED_ENABLED", "maybe")
	t.Setenv("SLACK_RATE_RPS", "fast")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected an error")
	}
	for _, k := range []string{"SCHED_INTERVAL", "SCHED_BATCH_SIZE", "SCHED_ENABLED", "SLACK_RATE_RPS"} {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("error does not name %s: %v", k, err)
		}
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]struct{ key, value, want string }{
		"log level":     {"LOG_LEVEL", "verbose", "LOG_LEVEL"},
		"webhook url":   {"SLACK_WEBHOOK_URL", "hooks.slack.com/services/x", "SLACK_WEBHOOK_URL"},
		"webhook ftp":   {"SLACK_WEBHOOK_URL", "ftp://hooks.slack.com/x", "SLACK_WEBHOOK_URL"},
		"interval":      {"SCHED_INTERVAL", "-1s", "SCHED_INTERVAL"},
		"send timeout":  {"SCHED_SEND_TIMEOUT", "0s", "SCHED_SEND_TIMEOUT"},
		"batch":         {"SCHED_BATCH_SIZE", "0", "SCHED_BATCH_SIZE"},
		"retention":     {"RETENTION_DAYS", "-1", "RETENTION_DAYS"},
		"cron":          {"RETENTION_CRON", "every night", "RETENTION_CRON"},
		"horizon":       {"SCHEDULE_MAX_HORIZON", "-1h", "SCHEDULE_MAX_HORIZON"},
		"max runes":     {"MESSAGE_MAX_RUNES", "0", "MESSAGE_MAX_RUNES"},
		"slack timeout": {"SLACK_HTTP_TIMEOUT", "0s", "SLACK_HTTP_TIMEOUT"},
		"slack rps":     {"SLACK_RATE_RPS", "-1", "SLACK_RATE_RPS"},
		"redis ttl":     {"REDIS_TTL", "0s", "REDIS_TTL"},
		"burst":         {"RATE_BURST", "0", "RATE_BURST"},
		"idem ttl":      {"IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL"},
		"sample ratio":  {"OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
		"header bytes":  {"MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("%s=%q: err=%v", tc.key, tc.value, err)
			}
		})
	}
}

func TestLoad_ReportsAllProblems(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHED_BATCH_SIZE", "0")
	t.Setenv("REDIS_TTL", "0s")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "SCHED_BATCH_SIZE") || !strings.Contains(err.Error(), "REDIS_TTL") {
		t.Fatalf("err=%v", err)
	}
}

func TestMustLoad(t *testing.T) {
	clearEnv(t)
	if cfg := MustLoad(); cfg.Port != "8080" {
		t.Fatalf("port=%q", cfg.Port)
	}

	t.Setenv("RETENTION_CRON", "61 * * * *")
	defer func() {
		if recover() == nil {
			t.Fatalf("MustLoad did not panic on a bad cron spec")
		}
	}()
	MustLoad()
}

func TestBasePathAndCSV(t *testing.T) {
	for in, want := range map[string]string{"": "/", "/": "/", "v1": "/v1", "/api/v1/": "/api/v1", "//x//": "/x"} {
		if got := basePath(in); got != want {
			t.Fatalf("basePath(%q)=%q want %q", in, got, want)
		}
	}
	if csv("") != nil || csv(" , ") != nil {
		t.Fatalf("empty csv must be nil")
	}
}
