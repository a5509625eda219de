// Package apperr defines the error taxonomy shared by the reminder engine,
// the notification inbox and the session lifecycle.
package apperr

import (
	"errors"
	"fmt"
)

// ErrConflict marks a lost race or an illegal state transition. A lost
// reminder claim is reported with it and is not surfaced to callers.
var ErrConflict = errors.New("conflict")

// ValidationError reports bad caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// NotFoundError reports a missing reminder, session, user or notification.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// AuthorizationError reports a caller that is not the owner, recipient or host.
type AuthorizationError struct {
	Actor  string
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s is not allowed to %s", e.Actor, e.Action)
}

// DispatchFailure reports a claimed reminder whose notification could not be
// produced. The reminder stays marked sent.
type DispatchFailure struct {
	ReminderID string
	Reason     string
	Err        error
}

func (e *DispatchFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dispatch reminder %s: %s", e.ReminderID, e.Reason)
	}
	return fmt.Sprintf("dispatch reminder %s: %s: %v", e.ReminderID, e.Reason, e.Err)
}

func (e *DispatchFailure) Unwrap() error { return e.Err }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFound builds a NotFoundError.
func NotFound(kind string, id fmt.Stringer) error {
	return &NotFoundError{Kind: kind, ID: id.String()}
}

// Forbidden builds an AuthorizationError.
func Forbidden(actor fmt.Stringer, action string) error {
	return &AuthorizationError{Actor: actor.String(), Action: action}
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsForbidden reports whether err wraps an AuthorizationError.
func IsForbidden(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}
