package repo

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

// newTestDB opens a private in-memory database and migrates the given models.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedMessage(t *testing.T, db *gorm.DB, m domain.ScheduledMessage) domain.ScheduledMessage {
	t.Helper()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Kind == "" {
		m.Kind = domain.KindChannel
	}
	if m.Status == "" {
		m.Status = domain.StatusPending
	}
	if m.Body == "" {
		m.Body = "hello"
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed %s: %v", m.ID, err)
	}
	return m
}
