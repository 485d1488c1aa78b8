// Command server runs the Slack scheduler: the HTTP API and the background
// dispatcher that delivers due messages.
//
// Startup order: .env → config → logging → tracing → database → Slack client
// → receipt cache → dispatcher/scheduler → HTTP server. SIGINT/SIGTERM stop
// the scheduler first, then drain HTTP connections. Stopping cancels an
// in-flight tick: sends it interrupts are not resolved, so those rows stay
// pending and go out on the next start.
//
// @title       Slack Scheduler API
// @version     1.0
// @description Schedule, edit, cancel and send Slack messages.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-slack-scheduler/internal/cache"
	"github.com/tbourn/go-slack-scheduler/internal/config"
	"github.com/tbourn/go-slack-scheduler/internal/dispatcher"
	httpapi "github.com/tbourn/go-slack-scheduler/internal/http"
	"github.com/tbourn/go-slack-scheduler/internal/http/handlers"
	"github.com/tbourn/go-slack-scheduler/internal/observability"
	"github.com/tbourn/go-slack-scheduler/internal/repo"
	"github.com/tbourn/go-slack-scheduler/internal/scheduler"
	"github.com/tbourn/go-slack-scheduler/internal/services"
	"github.com/tbourn/go-slack-scheduler/internal/slack"
	"github.com/tbourn/go-slack-scheduler/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ver := version
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		ver = v
	}
	sysutil.SetupLogger(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		NoColor: sysutil.Truthy(os.Getenv("NO_COLOR")),
		Service: cfg.OTEL.ServiceName,
		Version: ver,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage
	dbOpts := []repo.OpenOption{repo.WithGormConfig(gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})}
	if cfg.DBTracing {
		dbOpts = append(dbOpts, repo.WithTracing())
	}
	db, err := repo.OpenSQLite(cfg.DBPath, dbOpts...)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	// Slack
	sl := slack.New(
		slack.WithBaseURL(cfg.Slack.APIBaseURL),
		slack.WithTimeout(cfg.Slack.HTTPTimeout),
		slack.WithRateLimit(cfg.Slack.RateRPS, cfg.Slack.RateBurst),
	)
	if !cfg.Slack.WebhookEnabled() {
		log.Warn().Msg("SLACK_WEBHOOK_URL not set; webhook routes will answer 503")
	}

	// Background dispatcher
	var status handlers.SchedulerStatus
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		d := &dispatcher.Dispatcher{
			DB:           db,
			Delivery:     sl,
			Credentials:  services.NewAccountService(db, sl),
			WebhookURL:   cfg.Slack.WebhookURL,
			BatchSize:    cfg.Scheduler.BatchSize,
			SendTimeout:  cfg.Scheduler.SendTimeout,
			RetentionAge: cfg.Scheduler.RetentionAge,
		}
		if rdb := openRedis(ctx, cfg.Redis); rdb != nil {
			defer rdb.Close()
			d.Receipts = cache.NewReceipts(rdb, cfg.Redis.TTL)
		}

		sched, err = scheduler.New(cfg.Scheduler.Interval,
			func(ctx context.Context) {
				if _, err := d.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("dispatch tick failed")
				}
			},
			scheduler.WithRetention(cfg.Scheduler.RetentionCron, func(ctx context.Context) {
				if _, err := d.Purge(ctx); err != nil {
					log.Error().Err(err).Msg("retention sweep failed")
				}
			}),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("scheduler")
		}
		sched.Start()
		status = sched
	} else {
		log.Info().Msg("scheduler disabled (SCHED_ENABLED=false)")
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, sl, status, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if sched != nil {
		sched.Stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// openRedis connects the receipt cache. It returns nil when Redis is not
// configured or unreachable; the dispatcher then runs without receipts.
func openRedis(ctx context.Context, rc config.RedisConfig) *redis.Client {
	if rc.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", rc.Addr).Msg("redis unavailable; delivery receipts disabled")
		_ = rdb.Close()
		return nil
	}
	log.Info().Str("addr", rc.Addr).Msg("redis receipt cache enabled")
	return rdb
}
