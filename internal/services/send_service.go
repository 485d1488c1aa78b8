// Package services – SendService
//
// SendService delivers a message right away, bypassing the queue. It applies
// the same body rules as scheduling and reports delivery failures as the
// client's *slack.DeliveryError so handlers can map the error kind.
package services

import (
	"context"
	"time"

	"github.com/tbourn/go-slack-scheduler/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sender is the subset of the Slack client used for delivery.
type Sender interface {
	SendToChannel(ctx context.Context, token, channelID, text string) error
	SendToWebhook(ctx context.Context, webhookURL, text string) error
}

// SendService sends messages immediately.
type SendService struct {
	Slack       Sender
	Credentials CredentialResolver

	// WebhookURL is the deployment-wide incoming webhook; empty disables
	// the webhook flow.
	WebhookURL string

	MaxBodyRunes int
	// Timeout bounds one send; 0 leaves it to the client's own timeout.
	Timeout time.Duration
}

// SendNow validates body and delivers it to dest.
func (s *SendService) SendNow(ctx context.Context, dest domain.Destination, body string) error {
	tr := otel.Tracer("services/SendService")
	ctx, span := tr.Start(ctx, "SendNow",
		trace.WithAttributes(
			attribute.String("owner.id", ownerOf(dest)),
			attribute.String("destination.kind", kindOf(dest)),
		),
	)
	defer span.End()

	if dest == nil {
		return invalid("destination", "is required")
	}
	max := s.MaxBodyRunes
	if max <= 0 {
		max = DefaultMaxBodyRunes
	}
	body, err := normalizeBody(body, max)
	if err != nil {
		return err
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	switch d := dest.(type) {
	case domain.FixedWebhook:
		if s.WebhookURL == "" {
			return ErrConfiguration
		}
		err = s.Slack.SendToWebhook(ctx, s.WebhookURL, body)
	case domain.UserChannel:
		if d.ChannelID == "" {
			return invalid("channel_id", "is required")
		}
		token, cerr := s.Credentials.CredentialFor(ctx, d.UserID)
		if cerr != nil {
			return cerr
		}
		err = s.Slack.SendToChannel(ctx, token, d.ChannelID, body)
	default:
		return invalid("destination", "unsupported kind")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
	}
	return err
}
