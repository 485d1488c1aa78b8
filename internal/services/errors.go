// Package services defines the business logic for scheduling, sending and
// listing Slack messages. This file centralizes the service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates that the message does not exist or belongs to
	// another owner. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("scheduled message not found")

	// ErrInvalidState is returned when a lifecycle operation targets a
	// message that is no longer pending.
	ErrInvalidState = errors.New("scheduled message is no longer pending")

	// ErrConfiguration is returned by webhook-flow operations when no
	// webhook URL is configured.
	ErrConfiguration = errors.New("webhook URL not configured")

	// ErrNoCredential indicates that the owner has no linked Slack account.
	ErrNoCredential = errors.New("no Slack credential for user")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
