// Package slack is the outbound delivery client for the Slack Web API and
// incoming webhooks, built on github.com/slack-go/slack. Every call is bounded
// by a network timeout and is never retried here; failures come back as
// *DeliveryError with a Kind the caller can branch on.
package slack

import (
	"context"
	"net/http"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// DefaultTimeout bounds every outbound request.
const DefaultTimeout = 10 * time.Second

const (
	opPostMessage       = "chat.postMessage"
	opAuthTest          = "auth.test"
	opConversationsList = "conversations.list"
	opUserConversations = "users.conversations"
	opWebhook           = "webhook"

	pageSize = 200
	maxPages = 20
)

// Client talks to Slack. It is safe for concurrent use; the SDK client is
// bound to one token, so a light one is built per call.
type Client struct {
	apiURL  string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests use httptest).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.apiURL = u + "/"
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request network timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit throttles outbound calls to rps with the given burst.
// rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// New builds a Client. A zero timeout on the supplied HTTP client is replaced
// by DefaultTimeout.
func New(opts ...Option) *Client {
	c := &Client{
		apiURL: DefaultBaseURL + "/",
		http:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Timeout <= 0 {
		c.http.Timeout = DefaultTimeout
	}
	return c
}

func (c *Client) api(token string) *slackapi.Client {
	return slackapi.New(token,
		slackapi.OptionHTTPClient(c.http),
		slackapi.OptionAPIURL(c.apiURL),
	)
}

// SendToChannel posts text into channelID as the holder of token.
func (c *Client) SendToChannel(ctx context.Context, token, channelID, text string) error {
	if err := c.wait(ctx, opPostMessage); err != nil {
		return err
	}
	_, _, err := c.api(token).PostMessageContext(ctx, channelID, slackapi.MsgOptionText(text, false))
	return fromSDK(opPostMessage, err)
}

// SendToWebhook posts text to an incoming webhook URL.
func (c *Client) SendToWebhook(ctx context.Context, webhookURL, text string) error {
	if err := c.wait(ctx, opWebhook); err != nil {
		return err
	}
	err := slackapi.PostWebhookCustomHTTPContext(ctx, webhookURL, c.http, &slackapi.WebhookMessage{Text: text})
	return fromSDK(opWebhook, err)
}

// AuthInfo is the identity behind a token as reported by auth.test.
type AuthInfo struct {
	UserID string
	TeamID string
}

// AuthTest calls auth.test for token.
func (c *Client) AuthTest(ctx context.Context, token string) (*AuthInfo, error) {
	if err := c.wait(ctx, opAuthTest); err != nil {
		return nil, err
	}
	res, err := c.api(token).AuthTestContext(ctx)
	if err != nil {
		return nil, fromSDK(opAuthTest, err)
	}
	return &AuthInfo{UserID: res.UserID, TeamID: res.TeamID}, nil
}

// CredentialIsValid reports whether token is currently accepted by Slack.
// Any failure, including a transport error, counts as invalid.
func (c *Client) CredentialIsValid(ctx context.Context, token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	_, err := c.AuthTest(ctx, token)
	return err == nil
}

// ListConversations lists non-archived conversations of the given
// comma-separated types visible to token, following cursors.
func (c *Client) ListConversations(ctx context.Context, token, types string) ([]domain.Channel, error) {
	api := c.api(token)
	params := &slackapi.GetConversationsParameters{
		Types:           splitTypes(types),
		ExcludeArchived: true,
		Limit:           pageSize,
	}
	return c.paginate(ctx, opConversationsList, func(cursor string) ([]slackapi.Channel, string, error) {
		params.Cursor = cursor
		return api.GetConversationsContext(ctx, params)
	}, false)
}

// ListUserConversations lists the channels the token's user is a member of.
func (c *Client) ListUserConversations(ctx context.Context, token string) ([]domain.Channel, error) {
	api := c.api(token)
	params := &slackapi.GetConversationsForUserParameters{
		Types:           []string{"public_channel", "private_channel"},
		ExcludeArchived: true,
		Limit:           pageSize,
	}
	// users.conversations only returns memberships but does not always echo
	// is_member.
	return c.paginate(ctx, opUserConversations, func(cursor string) ([]slackapi.Channel, string, error) {
		params.Cursor = cursor
		return api.GetConversationsForUserContext(ctx, params)
	}, true)
}

func (c *Client) paginate(ctx context.Context, op string, page func(cursor string) ([]slackapi.Channel, string, error), member bool) ([]domain.Channel, error) {
	var (
		out    []domain.Channel
		cursor string
	)
	for i := 0; i < maxPages; i++ {
		if err := c.wait(ctx, op); err != nil {
			return nil, err
		}
		chans, next, err := page(cursor)
		if err != nil {
			return nil, fromSDK(op, err)
		}
		for _, ch := range chans {
			out = append(out, domain.Channel{
				ID:         ch.ID,
				Name:       ch.Name,
				IsPrivate:  ch.IsPrivate,
				IsGeneral:  ch.IsGeneral,
				IsArchived: ch.IsArchived,
				IsMember:   ch.IsMember || member,
			})
		}
		if next == "" {
			break
		}
		cursor = next
	}
	return out, nil
}

func splitTypes(types string) []string {
	var out []string
	for _, t := range strings.Split(types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (c *Client) wait(ctx context.Context, op string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &DeliveryError{Kind: KindRateLimited, Op: op, Err: err}
	}
	return nil
}
