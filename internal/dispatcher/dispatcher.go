// Package dispatcher delivers due scheduled messages.
//
// One Tick takes a snapshot of due rows, sends them in small concurrent
// batches and writes each outcome back with an update conditioned on the row
// still being pending. A failure in one send never affects its siblings, and a
// row resolved concurrently (cancelled by its owner, or by an overlapping
// dispatcher) keeps whatever state won.
//
// Delivery is at-least-once. When a Receipts store is configured, a message
// whose send succeeded but whose status write was lost is reconciled to sent
// on the next tick instead of being posted twice.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
	"github.com/tbourn/go-slack-scheduler/internal/repo"
	"github.com/tbourn/go-slack-scheduler/internal/slack"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBatchSize    = 5
	DefaultSendTimeout  = 15 * time.Second
	DefaultRetentionAge = 30 * 24 * time.Hour
)

var (
	// ErrWebhookNotConfigured is recorded for webhook rows when no URL is set.
	ErrWebhookNotConfigured = errors.New("webhook URL not configured")
	// ErrTokenInvalid is recorded when the owner's credential fails validation.
	ErrTokenInvalid = errors.New("access token is invalid or expired")
)

// Delivery is the subset of the Slack client the dispatcher needs.
type Delivery interface {
	SendToChannel(ctx context.Context, token, channelID, text string) error
	SendToWebhook(ctx context.Context, webhookURL, text string) error
	CredentialIsValid(ctx context.Context, token string) bool
}

// Credentials resolves an owner's bearer credential.
type Credentials interface {
	CredentialFor(ctx context.Context, ownerID string) (string, error)
}

// Receipts remembers successful sends independently of the database.
type Receipts interface {
	StoreSent(ctx context.Context, id string, sentAt time.Time) error
	SentAt(ctx context.Context, id string) (time.Time, bool, error)
}

// Report summarizes one Tick.
type Report struct {
	Due       int `json:"due"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Discarded int `json:"discarded"`
}

func (r *Report) add(outcome string) {
	switch outcome {
	case outcomeSent:
		r.Sent++
	case outcomeFailed:
		r.Failed++
	case outcomeSkipped:
		r.Skipped++
	case outcomeDiscarded:
		r.Discarded++
	}
	dispatchTotal.WithLabelValues(outcome).Inc()
}

// Dispatcher sends due messages. The zero values of the tuning fields select
// the package defaults.
type Dispatcher struct {
	DB          *gorm.DB
	Delivery    Delivery
	Credentials Credentials
	// Receipts is optional.
	Receipts Receipts

	WebhookURL   string
	BatchSize    int
	SendTimeout  time.Duration
	RetentionAge time.Duration

	Now    func() time.Time
	Logger *zerolog.Logger
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) log() *zerolog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	l := log.With().Str("component", "dispatcher").Logger()
	return &l
}

func (d *Dispatcher) batchSize() int {
	if d.BatchSize > 0 {
		return d.BatchSize
	}
	return DefaultBatchSize
}

func (d *Dispatcher) sendTimeout() time.Duration {
	if d.SendTimeout > 0 {
		return d.SendTimeout
	}
	return DefaultSendTimeout
}

// Tick runs one dispatch sweep. It returns an error only when the due query
// fails (nothing is touched then) or ctx is cancelled between batches (the
// remaining rows stay pending for the next tick).
func (d *Dispatcher) Tick(ctx context.Context) (Report, error) {
	tr := otel.Tracer("dispatcher")
	ctx, span := tr.Start(ctx, "Tick")
	defer span.End()

	start := time.Now()
	defer func() { tickDuration.Observe(time.Since(start).Seconds()) }()

	var rep Report
	due, err := repo.ListDueScheduledMessages(ctx, d.DB, d.now(), 0)
	if err != nil {
		span.RecordError(err)
		return rep, fmt.Errorf("list due messages: %w", err)
	}
	rep.Due = len(due)
	dueMessages.Set(float64(len(due)))
	span.SetAttributes(attribute.Int("messages.due", len(due)))

	size := d.batchSize()
	for lo := 0; lo < len(due); lo += size {
		if err := ctx.Err(); err != nil {
			d.log().Warn().Int("remaining", len(due)-lo).Msg("tick interrupted; remaining messages stay pending")
			return rep, err
		}
		hi := min(lo+size, len(due))
		batch := due[lo:hi]

		outcomes := make([]string, len(batch))
		var g errgroup.Group
		for i := range batch {
			id := batch[i].ID
			g.Go(func() error {
				outcomes[i] = d.process(ctx, id)
				return nil
			})
		}
		_ = g.Wait()

		for _, o := range outcomes {
			rep.add(o)
		}
	}

	span.SetAttributes(
		attribute.Int("messages.sent", rep.Sent),
		attribute.Int("messages.failed", rep.Failed),
	)
	return rep, nil
}

// process handles one due message and returns its outcome label.
func (d *Dispatcher) process(ctx context.Context, id string) (outcome string) {
	// Outcome writes must land even when a shutdown cancels ctx mid-send.
	wctx := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			d.log().Error().Str("message_id", id).Interface("panic", r).Msg("dispatch panic recovered")
			outcome = d.resolve(wctx, id, repo.Failed(fmt.Sprintf("internal error: %v", r)), outcomeFailed)
		}
	}()

	m, err := repo.GetScheduledMessage(ctx, d.DB, id)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			d.log().Error().Err(err).Str("message_id", id).Msg("reload message")
		}
		return outcomeSkipped
	}
	// Edited or cancelled after the snapshot was taken.
	if !m.Due(d.now()) {
		return outcomeSkipped
	}

	if d.Receipts != nil {
		at, ok, err := d.Receipts.SentAt(ctx, id)
		if err != nil {
			d.log().Warn().Err(err).Str("message_id", id).Msg("receipt lookup failed")
		} else if ok {
			d.log().Info().Str("message_id", id).Msg("reconciling already delivered message")
			return d.resolve(wctx, id, repo.Sent(at), outcomeSent)
		}
	}

	err = d.deliver(ctx, m)
	if err != nil && ctx.Err() != nil {
		// Shutdown, not a delivery verdict.
		return outcomeSkipped
	}
	if err != nil {
		d.log().Warn().
			Str("message_id", id).
			Str("owner_id", m.OwnerID).
			Str("kind", string(slack.KindOf(err))).
			Err(err).
			Msg("delivery failed")
		return d.resolve(wctx, id, repo.Failed(err.Error()), outcomeFailed)
	}

	sentAt := d.now()
	if d.Receipts != nil {
		if err := d.Receipts.StoreSent(wctx, id, sentAt); err != nil {
			d.log().Warn().Err(err).Str("message_id", id).Msg("store receipt failed")
		}
	}
	return d.resolve(wctx, id, repo.Sent(sentAt), outcomeSent)
}

// resolve writes r if the row is still pending. A lost race yields
// outcomeDiscarded.
func (d *Dispatcher) resolve(ctx context.Context, id string, r repo.Resolution, outcome string) string {
	applied, err := repo.ResolvePendingScheduledMessage(ctx, d.DB, id, "", r)
	if err != nil {
		d.log().Error().Err(err).Str("message_id", id).Str("status", string(r.Status)).Msg("write outcome")
		return outcomeSkipped
	}
	if !applied {
		d.log().Debug().Str("message_id", id).Msg("message resolved elsewhere; result discarded")
		return outcomeDiscarded
	}
	return outcome
}

func (d *Dispatcher) deliver(ctx context.Context, m *domain.ScheduledMessage) error {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout())
	defer cancel()

	ctx, span := otel.Tracer("dispatcher").Start(ctx, "deliver",
		trace.WithAttributes(
			attribute.String("message.id", m.ID),
			attribute.String("destination.kind", string(m.Kind)),
		),
	)
	defer span.End()

	switch dest := m.Destination().(type) {
	case domain.FixedWebhook:
		if d.WebhookURL == "" {
			return ErrWebhookNotConfigured
		}
		return d.Delivery.SendToWebhook(ctx, d.WebhookURL, m.Body)
	case domain.UserChannel:
		token, err := d.Credentials.CredentialFor(ctx, dest.UserID)
		if err != nil {
			return err
		}
		if !d.Delivery.CredentialIsValid(ctx, token) {
			return ErrTokenInvalid
		}
		return d.Delivery.SendToChannel(ctx, token, dest.ChannelID, m.Body)
	default:
		return fmt.Errorf("unsupported destination %T", dest)
	}
}

// Purge removes terminal messages older than RetentionAge along with expired
// idempotency records. It returns the number of messages removed.
func (d *Dispatcher) Purge(ctx context.Context) (int64, error) {
	age := d.RetentionAge
	if age <= 0 {
		age = DefaultRetentionAge
	}
	return d.PurgeOlderThan(ctx, age)
}

// PurgeOlderThan removes terminal messages created more than age ago. An age
// of zero removes every terminal message created before now.
func (d *Dispatcher) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	now := d.now()
	n, err := repo.PurgeTerminalScheduledMessages(ctx, d.DB, now.Add(-age))
	if err != nil {
		return 0, fmt.Errorf("purge messages: %w", err)
	}
	purgedTotal.Add(float64(n))

	if k, err := repo.PurgeExpiredIdempotency(ctx, d.DB, now); err != nil {
		d.log().Warn().Err(err).Msg("purge idempotency records")
	} else if k > 0 {
		d.log().Debug().Int64("removed", k).Msg("expired idempotency records purged")
	}

	d.log().Info().Int64("removed", n).Dur("retention", age).Msg("retention sweep complete")
	return n, nil
}
