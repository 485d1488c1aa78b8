// Package services – AccountService
//
// AccountService stores linked Slack accounts and resolves the bearer
// credential the dispatcher and send paths post with. The OAuth handshake
// itself happens elsewhere; LinkAccount is its landing point.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
	"github.com/tbourn/go-slack-scheduler/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TokenChecker validates a credential against Slack.
type TokenChecker interface {
	CredentialIsValid(ctx context.Context, token string) bool
}

// AccountService manages linked Slack accounts.
type AccountService struct {
	DB      *gorm.DB
	Checker TokenChecker
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, checker TokenChecker) *AccountService {
	return &AccountService{DB: db, Checker: checker}
}

// LinkInput is what the OAuth subsystem hands over after a successful
// exchange.
type LinkInput struct {
	SlackUserID string `json:"slack_user_id"`
	TeamID      string `json:"team_id"`
	AccessToken string `json:"access_token"`
	WebhookURL  string `json:"webhook_url,omitempty"`
}

// TokenStatus reports whether an owner's stored credential still works.
type TokenStatus struct {
	Linked bool `json:"linked"`
	Valid  bool `json:"valid"`
}

// LinkAccount creates or refreshes the user identified by SlackUserID.
func (s *AccountService) LinkAccount(ctx context.Context, in LinkInput) (*domain.User, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "LinkAccount",
		trace.WithAttributes(attribute.String("slack.user_id", in.SlackUserID)),
	)
	defer span.End()

	in.SlackUserID = strings.TrimSpace(in.SlackUserID)
	in.AccessToken = strings.TrimSpace(in.AccessToken)
	if in.SlackUserID == "" {
		return nil, invalid("slack_user_id", "is required")
	}
	if in.AccessToken == "" {
		return nil, invalid("access_token", "is required")
	}

	u, err := repo.UpsertUserBySlackID(ctx, s.DB, &domain.User{
		SlackUserID: in.SlackUserID,
		TeamID:      strings.TrimSpace(in.TeamID),
		AccessToken: in.AccessToken,
		WebhookURL:  strings.TrimSpace(in.WebhookURL),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return u, nil
}

// CredentialFor returns owner's access token, or ErrNoCredential when the
// owner is unknown or has none.
func (s *AccountService) CredentialFor(ctx context.Context, ownerID string) (string, error) {
	u, err := repo.GetUser(ctx, s.DB, ownerID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", err
	}
	if !u.HasCredential() {
		return "", ErrNoCredential
	}
	return u.AccessToken, nil
}

// TokenStatus checks owner's credential against Slack.
func (s *AccountService) TokenStatus(ctx context.Context, ownerID string) (TokenStatus, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "TokenStatus", trace.WithAttributes(attribute.String("owner.id", ownerID)))
	defer span.End()

	token, err := s.CredentialFor(ctx, ownerID)
	if errors.Is(err, ErrNoCredential) {
		return TokenStatus{}, nil
	}
	if err != nil {
		return TokenStatus{}, err
	}
	valid := s.Checker != nil && s.Checker.CredentialIsValid(ctx, token)
	span.SetAttributes(attribute.Bool("token.valid", valid))
	return TokenStatus{Linked: true, Valid: valid}, nil
}
