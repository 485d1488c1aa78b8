package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

func TestScheduledMessagesStats(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledMessage{})
	ctx := context.Background()

	if n, latest, err := ScheduledMessagesStats(ctx, db, "u1"); err != nil || n != 0 || latest != 0 {
		t.Fatalf("empty: n=%d latest=%d err=%v", n, latest, err)
	}

	seedMessage(t, db, domain.ScheduledMessage{OwnerID: "u1", ScheduledFor: 1, UpdatedAt: 100})
	seedMessage(t, db, domain.ScheduledMessage{OwnerID: "u1", ScheduledFor: 2, UpdatedAt: 300, Status: domain.StatusSent})
	seedMessage(t, db, domain.ScheduledMessage{OwnerID: "u2", ScheduledFor: 3, UpdatedAt: 900})
	seedMessage(t, db, domain.ScheduledMessage{OwnerID: domain.WebhookOwner, Kind: domain.KindWebhook, ScheduledFor: 4, UpdatedAt: 950})

	n, latest, err := ScheduledMessagesStats(ctx, db, "u1")
	if err != nil || n != 2 || latest != 300 {
		t.Fatalf("u1: n=%d latest=%d err=%v", n, latest, err)
	}
	if n, latest, _ := ScheduledMessagesStats(ctx, db, domain.WebhookOwner); n != 1 || latest != 950 {
		t.Fatalf("webhook: n=%d latest=%d", n, latest)
	}
}

func TestScheduledMessagesStats_ChangesOnEdit(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledMessage{})
	ctx := context.Background()
	m := seedMessage(t, db, domain.ScheduledMessage{OwnerID: "u1", ScheduledFor: 1, UpdatedAt: 100})

	_, before, _ := ScheduledMessagesStats(ctx, db, "u1")
	body := "moved to 10:30"
	if ok, err := UpdatePendingScheduledMessage(ctx, db, m.ID, "u1", MessageFields{Body: &body}); err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	if _, after, _ := ScheduledMessagesStats(ctx, db, "u1"); after <= before {
		t.Fatalf("updated_at did not advance: before=%d after=%d", before, after)
	}
}

func TestScheduledMessagesStats_MissingTable(t *testing.T) {
	db := newTestDB(t)
	if _, _, err := ScheduledMessagesStats(context.Background(), db, "u1"); err == nil {
		t.Fatalf("expected an error")
	}
}
