package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (ScheduledMessage{}).TableName() != "scheduled_messages" {
		t.Fatalf("ScheduledMessage.TableName() = %q", (ScheduledMessage{}).TableName())
	}
	if (User{}).TableName() != "users" {
		t.Fatalf("User.TableName() = %q", (User{}).TableName())
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q", (Idempotency{}).TableName())
	}
}

func TestStatus_Terminal(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:   false,
		StatusSent:      true,
		StatusFailed:    true,
		StatusCancelled: true,
		Status("bogus"): false,
	}
	for s, want := range cases {
		if got := s.Terminal(); got != want {
			t.Fatalf("%q.Terminal() = %v; want %v", s, got, want)
		}
	}
	if Status("bogus").Valid() {
		t.Fatalf("unknown status must not be valid")
	}
	if !StatusPending.Valid() {
		t.Fatalf("pending must be valid")
	}
}

func TestDestination_Variants(t *testing.T) {
	m := NewScheduledMessage(UserChannel{UserID: "u1", ChannelID: " C1 ", ChannelName: "general"}, "hi", 100)
	if m.OwnerID != "u1" || m.Kind != KindChannel || m.ChannelID != "C1" || m.Status != StatusPending {
		t.Fatalf("unexpected channel row: %+v", m)
	}
	uc, ok := m.Destination().(UserChannel)
	if !ok || uc.UserID != "u1" || uc.ChannelID != "C1" || uc.ChannelName != "general" {
		t.Fatalf("unexpected destination: %#v", m.Destination())
	}

	w := NewScheduledMessage(FixedWebhook{}, "hi", 100)
	if w.OwnerID != WebhookOwner || w.Kind != KindWebhook || w.ChannelID != "" {
		t.Fatalf("unexpected webhook row: %+v", w)
	}
	if _, ok := w.Destination().(FixedWebhook); !ok {
		t.Fatalf("expected FixedWebhook, got %#v", w.Destination())
	}
}

func TestDestination_LegacyRowsWithoutKind(t *testing.T) {
	m := &ScheduledMessage{OwnerID: WebhookOwner}
	if _, ok := m.Destination().(FixedWebhook); !ok {
		t.Fatalf("webhook owner without kind should map to FixedWebhook")
	}
	m = &ScheduledMessage{OwnerID: "u1", ChannelID: "C1"}
	if _, ok := m.Destination().(UserChannel); !ok {
		t.Fatalf("regular owner without kind should map to UserChannel")
	}
}

func TestScheduledMessage_Due(t *testing.T) {
	now := time.Unix(1_000, 0)
	m := &ScheduledMessage{Status: StatusPending, ScheduledFor: 1_000}
	if !m.Due(now) {
		t.Fatalf("message at now should be due")
	}
	m.ScheduledFor = 1_001
	if m.Due(now) {
		t.Fatalf("future message should not be due")
	}
	m.ScheduledFor = 10
	m.Status = StatusCancelled
	if m.Due(now) {
		t.Fatalf("terminal message should never be due")
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&ScheduledMessage{}, &User{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, idx := range []string{"idx_owner_sched", "idx_due"} {
		if !m.HasIndex(&ScheduledMessage{}, idx) {
			t.Fatalf("expected index %s on scheduled_messages", idx)
		}
	}
	if !m.HasIndex(&User{}, "ux_users_slack_user") {
		t.Fatalf("expected unique index on users.slack_user_id")
	}
	if !m.HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("expected unique index on idempotency")
	}

	// Unique slack user id.
	if err := db.Create(&User{ID: "a", SlackUserID: "U1"}).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := db.Create(&User{ID: "b", SlackUserID: "U1"}).Error; err == nil {
		t.Fatalf("expected unique violation on slack_user_id")
	}

	// Timestamps are epoch seconds maintained by GORM.
	msg := &ScheduledMessage{ID: uuid.NewString(), OwnerID: "u1", Kind: KindChannel, Body: "x", ScheduledFor: 5, Status: StatusPending}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("insert message: %v", err)
	}
	if msg.CreatedAt == 0 || msg.UpdatedAt == 0 {
		t.Fatalf("expected auto timestamps, got %+v", msg)
	}
}

func TestUser_HasCredential(t *testing.T) {
	var nilUser *User
	if nilUser.HasCredential() {
		t.Fatalf("nil user has no credential")
	}
	if (&User{}).HasCredential() {
		t.Fatalf("empty token has no credential")
	}
	if !(&User{AccessToken: "xoxb"}).HasCredential() {
		t.Fatalf("expected credential")
	}
}
