package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across modules. Services wrap these with step
// context via fmt.Errorf("...: %w", err) so callers can still match with
// errors.Is.
var (
	// ErrValidation indicates malformed caller input. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates an operation would break a ledger invariant.
	// Fatal for the operation; never clamped silently.
	ErrInvalidState = errors.New("invalid state")
	// ErrStorage indicates an underlying persistence failure.
	ErrStorage = errors.New("storage failure")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// Validationf builds an ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InvalidStatef builds an ErrInvalidState with a formatted detail message.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// UserSafeMessage returns a message that may be shown to an end user.
// Internal failures collapse to a generic line so storage details never leak.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidState):
		return err.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid email or password"
	default:
		return "something went wrong, please try again"
	}
}
