package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

// newServiceDB opens a private in-memory database with every model migrated.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
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
	if err := db.AutoMigrate(&domain.ScheduledMessage{}, &domain.User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

type fakeCreds struct {
	tokens map[string]string
	err    error
}

func (f fakeCreds) CredentialFor(_ context.Context, owner string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	tok, ok := f.tokens[owner]
	if !ok {
		return "", ErrNoCredential
	}
	return tok, nil
}

type sentMsg struct {
	Token, Target, Text string
}

type fakeSlack struct {
	mu       sync.Mutex
	channel  []sentMsg
	webhook  []sentMsg
	sendErr  error
	validTok map[string]bool
}

func (f *fakeSlack) SendToChannel(_ context.Context, token, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.channel = append(f.channel, sentMsg{token, channelID, text})
	return nil
}

func (f *fakeSlack) SendToWebhook(_ context.Context, url, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.webhook = append(f.webhook, sentMsg{"", url, text})
	return nil
}

func (f *fakeSlack) CredentialIsValid(_ context.Context, token string) bool {
	return f.validTok[token]
}
