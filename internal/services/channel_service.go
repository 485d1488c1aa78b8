// Package services – ChannelService
//
// ChannelService lists the channels a user can post into. Slack workspaces
// differ in which listing calls a given token may use, so the service walks
// an ordered chain of strategies and returns the first that succeeds.
package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-slack-scheduler/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChannelLister is the subset of the Slack client used for listings.
type ChannelLister interface {
	ListConversations(ctx context.Context, token, types string) ([]domain.Channel, error)
	ListUserConversations(ctx context.Context, token string) ([]domain.Channel, error)
}

// CredentialResolver yields the bearer credential for an owner.
type CredentialResolver interface {
	CredentialFor(ctx context.Context, ownerID string) (string, error)
}

// ChannelStrategy is one way of listing channels.
type ChannelStrategy struct {
	Name string
	List func(ctx context.Context, token string) ([]domain.Channel, error)
}

// DefaultChannelStrategies returns the standard chain: public and private
// conversations, then public only, then the user's own conversations.
func DefaultChannelStrategies(l ChannelLister) []ChannelStrategy {
	return []ChannelStrategy{
		{Name: "conversations", List: func(ctx context.Context, tok string) ([]domain.Channel, error) {
			return l.ListConversations(ctx, tok, "public_channel,private_channel")
		}},
		{Name: "public_conversations", List: func(ctx context.Context, tok string) ([]domain.Channel, error) {
			return l.ListConversations(ctx, tok, "public_channel")
		}},
		{Name: "user_conversations", List: l.ListUserConversations},
	}
}

// FallbackWarning is reported when every strategy failed.
const FallbackWarning = "channel listing unavailable; showing #general only"

// ChannelListing is the result of ChannelService.List.
type ChannelListing struct {
	Channels []domain.Channel `json:"channels"`
	// Source names the strategy that produced Channels ("fallback" when degraded).
	Source   string `json:"source"`
	Degraded bool   `json:"degraded"`
	Warning  string `json:"warning,omitempty"`
}

// StrategyResult is one row of a ChannelService.Diagnose report.
type StrategyResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// ChannelService lists postable channels for a linked user.
type ChannelService struct {
	Credentials CredentialResolver
	Strategies  []ChannelStrategy
}

// NewChannelService wires the default strategy chain over l.
func NewChannelService(l ChannelLister, creds CredentialResolver) *ChannelService {
	return &ChannelService{Credentials: creds, Strategies: DefaultChannelStrategies(l)}
}

// List returns owner's member, non-archived channels. A missing credential is
// an error; a Slack failure is not, and yields the degraded #general listing.
func (s *ChannelService) List(ctx context.Context, ownerID string) (*ChannelListing, error) {
	tr := otel.Tracer("services/ChannelService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.String("owner.id", ownerID)))
	defer span.End()

	token, err := s.Credentials.CredentialFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for _, st := range s.Strategies {
		chans, err := st.List(ctx, token)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("strategy", st.Name).Str("owner_id", ownerID).Msg("channel listing failed")
			continue
		}
		span.SetAttributes(attribute.String("channels.source", st.Name))
		return &ChannelListing{Channels: postable(chans), Source: st.Name}, nil
	}

	span.SetAttributes(attribute.Bool("channels.degraded", true))
	return &ChannelListing{
		Channels: []domain.Channel{generalChannel()},
		Source:   "fallback",
		Degraded: true,
		Warning:  FallbackWarning,
	}, nil
}

// Diagnose runs every strategy and reports each outcome. It never falls back.
func (s *ChannelService) Diagnose(ctx context.Context, ownerID string) ([]StrategyResult, error) {
	token, err := s.Credentials.CredentialFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]StrategyResult, 0, len(s.Strategies))
	for _, st := range s.Strategies {
		chans, err := st.List(ctx, token)
		r := StrategyResult{Name: st.Name, OK: err == nil, Count: len(postable(chans))}
		if err != nil {
			r.Error = err.Error()
		}
		out = append(out, r)
	}
	return out, nil
}

func postable(in []domain.Channel) []domain.Channel {
	out := make([]domain.Channel, 0, len(in))
	for _, c := range in {
		if c.IsMember && !c.IsArchived {
			out = append(out, c)
		}
	}
	return out
}

func generalChannel() domain.Channel {
	return domain.Channel{ID: "general", Name: "general", IsGeneral: true, IsMember: true}
}
