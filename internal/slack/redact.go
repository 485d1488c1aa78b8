package slack

import "regexp"

var (
	tokenRE   = regexp.MustCompile(`\bxox[abposr]-[A-Za-z0-9-]+`)
	webhookRE = regexp.MustCompile(`https?://(?:hooks\.slack(?:-gov)?\.com/(?:services|workflows|triggers)/[^\s"'?&]+|[^\s"'/]+/services/T[A-Za-z0-9]+/B[A-Za-z0-9]+/[A-Za-z0-9]+)`)
)

// Redact masks Slack bearer tokens and incoming-webhook URLs in s. Both are
// credentials: anyone holding them can post as the owner.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = webhookRE.ReplaceAllString(s, "[REDACTED:webhook]")
	return tokenRE.ReplaceAllString(s, "[REDACTED:token]")
}

// redactedError hides credentials in the message of a wrapped error while
// keeping it reachable for errors.Is (context.DeadlineExceeded and friends).
type redactedError struct{ err error }

func (e redactedError) Error() string { return Redact(e.err.Error()) }
func (e redactedError) Unwrap() error { return e.err }
