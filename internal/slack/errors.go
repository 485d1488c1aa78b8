package slack

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"
)

// Kind classifies why a delivery call failed.
type Kind string

const (
	KindAuthInvalid        Kind = "auth_invalid"
	KindRateLimited        Kind = "rate_limited"
	KindChannelUnreachable Kind = "channel_unreachable"
	KindUnknown            Kind = "unknown"
)

// DeliveryError is returned by every Client call that reaches (or tries to
// reach) Slack and does not succeed.
type DeliveryError struct {
	Kind Kind
	// Op is the Slack method or "webhook".
	Op string
	// Code is Slack's error string ("channel_not_found", "invalid_auth", ...).
	Code string
	// Status is the HTTP status, 0 when the request never completed.
	Status int
	// RetryAfter is set for rate limited responses that carried the header.
	RetryAfter time.Duration
	Err        error
}

func (e *DeliveryError) Error() string {
	var b strings.Builder
	b.WriteString("slack ")
	b.WriteString(e.Op)
	b.WriteString(": ")
	switch {
	case e.Code != "":
		b.WriteString(e.Code)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	case e.Status != 0:
		b.WriteString("unexpected status ")
		b.WriteString(strconv.Itoa(e.Status))
	default:
		b.WriteString("request failed")
	}
	b.WriteString(" (")
	b.WriteString(string(e.Kind))
	b.WriteString(")")
	return b.String()
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindUnknown when err is not a
// DeliveryError. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

var authCodes = map[string]struct{}{
	"invalid_auth":           {},
	"not_authed":             {},
	"token_revoked":          {},
	"token_expired":          {},
	"account_inactive":       {},
	"missing_scope":          {},
	"not_allowed_token_type": {},
}

var unreachableCodes = map[string]struct{}{
	"channel_not_found":                 {},
	"not_in_channel":                    {},
	"is_archived":                       {},
	"channel_is_archived":               {},
	"no_service":                        {},
	"no_service_id":                     {},
	"invalid_token":                     {}, // webhook URL revoked
	"action_prohibited":                 {},
	"posting_to_general_channel_denied": {},
	"restricted_action":                 {},
}

// classify maps an HTTP status and Slack error code to a Kind.
func classify(status int, code string) Kind {
	if status == http.StatusTooManyRequests || code == "ratelimited" || code == "rate_limited" {
		return KindRateLimited
	}
	if _, ok := authCodes[code]; ok {
		return KindAuthInvalid
	}
	if _, ok := unreachableCodes[code]; ok {
		return KindChannelUnreachable
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthInvalid
	case http.StatusNotFound, http.StatusGone:
		return KindChannelUnreachable
	}
	return KindUnknown
}

// fromSDK maps an error returned by the Slack SDK onto a DeliveryError.
func fromSDK(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		limited *slackapi.RateLimitedError
		apiErr  slackapi.SlackErrorResponse
		status  slackapi.StatusCodeError
	)
	switch {
	case errors.As(err, &limited):
		return &DeliveryError{Kind: KindRateLimited, Op: op, Status: http.StatusTooManyRequests, RetryAfter: limited.RetryAfter}
	case errors.As(err, &apiErr):
		return &DeliveryError{Kind: classify(http.StatusOK, apiErr.Err), Op: op, Code: apiErr.Err, Status: http.StatusOK}
	case errors.As(err, &status):
		kind := classify(status.Code, "")
		// A revoked or deleted webhook answers 403/404/410; the credential is
		// the URL itself, so it is the destination that is gone.
		if op == opWebhook && (status.Code == http.StatusForbidden || kind == KindChannelUnreachable) {
			kind = KindChannelUnreachable
		}
		return &DeliveryError{Kind: kind, Op: op, Status: status.Code}
	default:
		return &DeliveryError{Kind: KindUnknown, Op: op, Err: redactedError{fmt.Errorf("transport: %w", err)}}
	}
}
