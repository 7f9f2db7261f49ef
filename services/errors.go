package services

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/restaurant-reservation/repository"
)

// Error taxonomy shared by every service. Callers match with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = repository.ErrNotFound
	ErrStoreUnavailable    = repository.ErrStoreUnavailable
	ErrInvalidState        = errors.New("invalid state")
	ErrNotYetActive        = errors.New("not yet active")
	ErrDuplicateActive     = errors.New("duplicate active waiting entry")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotificationFailure = errors.New("notification failure")

	// Both are lifecycle violations, so they also match ErrInvalidState.
	ErrAlreadyClosed = fmt.Errorf("reservation already closed: %w", ErrInvalidState)
	ErrNotActive     = fmt.Errorf("reservation is not active: %w", ErrInvalidState)
)

// userError carries a message that is safe to show to the client.
type userError struct {
	kind error
	msg  string
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.kind }

func userErr(kind error, format string, args ...interface{}) error {
	return &userError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Reason returns the client-facing text for err and whether the client
// should retry the whole operation.
func Reason(err error) (string, bool) {
	var ue *userError
	if errors.As(err, &ue) {
		return ue.msg, errors.Is(err, ErrConflict)
	}

	switch {
	case errors.Is(err, ErrConflict):
		return "table was taken concurrently, please retry", true
	case errors.Is(err, ErrValidation):
		return "invalid input, please correct the request", false
	case errors.Is(err, ErrNotFound):
		return "not found", false
	case errors.Is(err, ErrDuplicateActive):
		return "customer already has an active waiting entry", false
	case errors.Is(err, ErrNotYetActive):
		return "too early, please come back closer to your slot", false
	case errors.Is(err, ErrAlreadyClosed):
		return "reservation is already finished or cancelled", false
	case errors.Is(err, ErrNotActive):
		return "reservation is not checked in", false
	case errors.Is(err, ErrInvalidState):
		return "operation not allowed in the current state", false
	case errors.Is(err, ErrUnauthorized):
		return "invalid credentials", false
	default:
		return "not available right now", false
	}
}
