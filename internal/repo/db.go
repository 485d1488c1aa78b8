// Package repo is the GORM persistence layer for scheduled messages, linked
// Slack accounts and idempotency keys.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

// pragmas are applied to every connection opened by OpenSQLite. WAL lets the
// dispatcher claim due rows while API requests read; busy_timeout absorbs the
// short write lock a tick holds when it resolves a row.
var pragmas = []string{
	"journal_mode=WAL",
	"synchronous=NORMAL",
	"foreign_keys=ON",
	"busy_timeout=5000",
}

// Pool limits. SQLite serialises writers, so more connections only help
// readers.
const (
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// OpenOption tunes OpenSQLite.
type OpenOption func(*openOptions)

type openOptions struct {
	tracing bool
	cfg     gorm.Config
}

// WithTracing makes every query a child span of the request or tick that
// issued it.
func WithTracing() OpenOption {
	return func(o *openOptions) { o.tracing = true }
}

// WithGormConfig replaces the gorm.Config, typically to silence its logger.
func WithGormConfig(cfg gorm.Config) OpenOption {
	return func(o *openOptions) { o.cfg = cfg }
}

// OpenSQLite opens or creates the database file at path. The parent
// directory must already exist.
func OpenSQLite(path string, opts ...OpenOption) (*gorm.DB, error) {
	var o openOptions
	for _, fn := range opts {
		fn(&o)
	}

	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &o.cfg)
	if err != nil {
		return nil, err
	}
	for _, p := range pragmas {
		if err := db.Exec("PRAGMA " + p).Error; err != nil {
			return nil, fmt.Errorf("PRAGMA %s: %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if o.tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// AutoMigrate creates or updates the scheduler tables, including the
// (status, scheduled_for) index the dispatcher's due query runs on.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.ScheduledMessage{}, &domain.User{}, &domain.Idempotency{}); err != nil {
		return err
	}
	if !db.Migrator().HasIndex(&domain.ScheduledMessage{}, "idx_due") {
		return fmt.Errorf("scheduled_messages: index idx_due missing after migration")
	}
	return nil
}
