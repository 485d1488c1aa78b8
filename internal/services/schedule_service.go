// Package services – ScheduleService
//
// This file implements ScheduleService, the lifecycle API for scheduled
// messages: create, cancel, edit, delete and list. Every operation is scoped
// to an owner; a message owned by someone else is reported as ErrNotFound.
//
// State changes race with the dispatcher. They are written with updates
// conditioned on status = pending, and a lost race surfaces as
// ErrInvalidState rather than clobbering the dispatcher's result.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
	"github.com/tbourn/go-slack-scheduler/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxBodyRunes is the longest accepted message body.
	DefaultMaxBodyRunes = 4000
	// DefaultMaxHorizon is how far ahead a message may be scheduled.
	DefaultMaxHorizon = 365 * 24 * time.Hour
)

// ScheduleService owns the lifecycle of scheduled messages.
type ScheduleService struct {
	DB *gorm.DB

	// Now is the clock; nil means time.Now.
	Now func() time.Time

	// MaxBodyRunes caps body length (<= 0 uses DefaultMaxBodyRunes).
	MaxBodyRunes int
	// MaxHorizon caps how far in the future scheduled_for may be; 0 disables the cap.
	MaxHorizon time.Duration

	// WebhookEnabled reports whether a webhook URL is configured. Creating a
	// webhook-flow message without one fails with ErrConfiguration.
	WebhookEnabled bool
}

// NewScheduleService constructs a ScheduleService with default limits.
func NewScheduleService(db *gorm.DB) *ScheduleService {
	return &ScheduleService{
		DB:           db,
		MaxBodyRunes: DefaultMaxBodyRunes,
		MaxHorizon:   DefaultMaxHorizon,
	}
}

// EditFields carries the optional fields of an edit. Nil means unchanged.
type EditFields struct {
	Body         *string
	ScheduledFor *int64
}

func (s *ScheduleService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ScheduleService) maxRunes() int {
	if s.MaxBodyRunes > 0 {
		return s.MaxBodyRunes
	}
	return DefaultMaxBodyRunes
}

// Create validates and stores a new pending message for dest.
func (s *ScheduleService) Create(ctx context.Context, dest domain.Destination, body string, scheduledFor int64) (*domain.ScheduledMessage, error) {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("owner.id", ownerOf(dest)),
			attribute.String("destination.kind", kindOf(dest)),
			attribute.Int64("scheduled_for", scheduledFor),
		),
	)
	defer span.End()

	if dest == nil {
		return nil, invalid("destination", "is required")
	}
	if dest.Kind() == domain.KindWebhook && !s.WebhookEnabled {
		return nil, ErrConfiguration
	}
	if uc, ok := dest.(domain.UserChannel); ok {
		if strings.TrimSpace(uc.UserID) == "" {
			return nil, invalid("user_id", "is required")
		}
		if uc.UserID == domain.WebhookOwner {
			return nil, invalid("user_id", "is reserved for the webhook flow")
		}
		if strings.TrimSpace(uc.ChannelID) == "" {
			return nil, invalid("channel_id", "is required")
		}
		if strings.TrimSpace(uc.ChannelName) == "" {
			return nil, invalid("channel_name", "is required")
		}
	}

	body, err := normalizeBody(body, s.maxRunes())
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.checkTime(scheduledFor, now); err != nil {
		return nil, err
	}

	m := domain.NewScheduledMessage(dest, body, scheduledFor)
	m.CreatedAt = now.Unix()
	if err := repo.CreateScheduledMessage(ctx, s.DB, m); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("message.id", m.ID))
	return m, nil
}

// Get returns one of owner's messages.
func (s *ScheduleService) Get(ctx context.Context, id, owner string) (*domain.ScheduledMessage, error) {
	m, err := repo.GetScheduledMessageForOwner(ctx, s.DB, id, owner)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return m, err
}

// List returns all of owner's messages in every status, ascending by
// scheduled_for.
func (s *ScheduleService) List(ctx context.Context, owner string) ([]domain.ScheduledMessage, error) {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.String("owner.id", owner)))
	defer span.End()

	items, err := repo.ListScheduledMessages(ctx, s.DB, owner)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ScheduledMessage{}
	}
	return items, nil
}

// ListPage returns a page of owner's messages and the total count.
func (s *ScheduleService) ListPage(ctx context.Context, owner string, page, pageSize int) ([]domain.ScheduledMessage, int64, error) {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("owner.id", owner),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountScheduledMessages(ctx, s.DB, owner)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ScheduledMessage{}, 0, nil
	}
	items, err := repo.ListScheduledMessagesPage(ctx, s.DB, owner, offset, pageSize)
	return items, total, err
}

// Stats returns the row count and latest update of owner's messages. The
// HTTP layer derives list ETags from it.
func (s *ScheduleService) Stats(ctx context.Context, owner string) (count, maxUpdatedAt int64, err error) {
	return repo.ScheduledMessagesStats(ctx, s.DB, owner)
}

// PendingCount returns the number of pending messages across all owners.
func (s *ScheduleService) PendingCount(ctx context.Context) (int64, error) {
	return repo.CountPendingScheduledMessages(ctx, s.DB)
}

// Cancel moves a pending message to cancelled.
func (s *ScheduleService) Cancel(ctx context.Context, id, owner string) (*domain.ScheduledMessage, error) {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "Cancel",
		trace.WithAttributes(
			attribute.String("message.id", id),
			attribute.String("owner.id", owner),
		),
	)
	defer span.End()

	if _, err := s.pending(ctx, id, owner); err != nil {
		return nil, err
	}
	applied, err := repo.ResolvePendingScheduledMessage(ctx, s.DB, id, owner, repo.Cancelled())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !applied {
		return nil, s.lostRace(ctx, id, owner)
	}
	return s.Get(ctx, id, owner)
}

// Edit updates the body and/or time of a pending message.
func (s *ScheduleService) Edit(ctx context.Context, id, owner string, f EditFields) (*domain.ScheduledMessage, error) {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "Edit",
		trace.WithAttributes(
			attribute.String("message.id", id),
			attribute.String("owner.id", owner),
			attribute.Bool("edit.body", f.Body != nil),
			attribute.Bool("edit.scheduled_for", f.ScheduledFor != nil),
		),
	)
	defer span.End()

	if _, err := s.pending(ctx, id, owner); err != nil {
		return nil, err
	}
	if f.Body == nil && f.ScheduledFor == nil {
		return nil, invalid("", "no valid fields to update")
	}

	var fields repo.MessageFields
	if f.Body != nil {
		body, err := normalizeBody(*f.Body, s.maxRunes())
		if err != nil {
			return nil, err
		}
		fields.Body = &body
	}
	if f.ScheduledFor != nil {
		if err := s.checkTime(*f.ScheduledFor, s.now()); err != nil {
			return nil, err
		}
		at := *f.ScheduledFor
		fields.ScheduledFor = &at
	}

	applied, err := repo.UpdatePendingScheduledMessage(ctx, s.DB, id, owner, fields)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !applied {
		return nil, s.lostRace(ctx, id, owner)
	}
	return s.Get(ctx, id, owner)
}

// Delete physically removes a pending message.
func (s *ScheduleService) Delete(ctx context.Context, id, owner string) error {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("message.id", id),
			attribute.String("owner.id", owner),
		),
	)
	defer span.End()

	if _, err := s.pending(ctx, id, owner); err != nil {
		return err
	}
	removed, err := repo.DeletePendingScheduledMessage(ctx, s.DB, id, owner)
	if err != nil {
		return err
	}
	if !removed {
		return s.lostRace(ctx, id, owner)
	}
	return nil
}

// pending loads (id, owner) and checks it is still pending.
func (s *ScheduleService) pending(ctx context.Context, id, owner string) (*domain.ScheduledMessage, error) {
	m, err := s.Get(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.StatusPending {
		return nil, ErrInvalidState
	}
	return m, nil
}

// lostRace explains why a conditional write did not apply.
func (s *ScheduleService) lostRace(ctx context.Context, id, owner string) error {
	if _, err := s.Get(ctx, id, owner); err != nil {
		return err
	}
	return ErrInvalidState
}

func (s *ScheduleService) checkTime(at int64, now time.Time) error {
	if at <= now.Unix() {
		return invalid("scheduled_for", "must be in the future")
	}
	if s.MaxHorizon > 0 && at > now.Add(s.MaxHorizon).Unix() {
		return invalid("scheduled_for", fmt.Sprintf("must be within %s", s.MaxHorizon))
	}
	return nil
}

// normalizeBody canonicalizes line endings and Unicode composition and
// enforces the 1..max rune bound.
func normalizeBody(raw string, max int) (string, error) {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = norm.NFC.String(s)
	if strings.TrimSpace(s) == "" {
		return "", invalid("message", "is required")
	}
	if utf8.RuneCountInString(s) > max {
		return "", invalid("message", fmt.Sprintf("must be at most %d characters", max))
	}
	return s, nil
}

func ownerOf(d domain.Destination) string {
	if d == nil {
		return ""
	}
	return d.Owner()
}

func kindOf(d domain.Destination) string {
	if d == nil {
		return ""
	}
	return string(d.Kind())
}
