package model

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the booking engine.  Callers match them with
// errors.Is; handlers translate them into HTTP responses via KindOf.
var (
	ErrValidation           = errors.New("validation error")
	ErrBookingNotEnabled    = errors.New("booking not enabled")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenExpired         = errors.New("token expired")
	ErrAlreadyConfirmed     = errors.New("booking already confirmed")
	ErrNotificationFailure  = errors.New("notification failure")
	ErrNotFound             = errors.New("not found")
)

// CapacityError carries the number of seats that were still free when a
// request could not be satisfied.
type CapacityError struct {
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: requested %d, available %d", e.Requested, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientCapacity) match.
func (e *CapacityError) Is(target error) bool { return target == ErrInsufficientCapacity }

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Error kinds exposed to clients.
const (
	KindValidation           = "validation_error"
	KindBookingNotEnabled    = "booking_not_enabled"
	KindInsufficientCapacity = "insufficient_capacity"
	KindTokenInvalid         = "token_invalid"
	KindTokenExpired         = "token_expired"
	KindAlreadyConfirmed     = "already_confirmed"
	KindNotificationFailure  = "notification_failure"
	KindNotFound             = "not_found"
	KindInternal             = "internal_error"
)

// KindOf maps an error to its machine-readable kind.  Anything outside the
// taxonomy is reported as an internal error.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrBookingNotEnabled):
		return KindBookingNotEnabled
	case errors.Is(err, ErrInsufficientCapacity):
		return KindInsufficientCapacity
	case errors.Is(err, ErrTokenInvalid):
		return KindTokenInvalid
	case errors.Is(err, ErrTokenExpired):
		return KindTokenExpired
	case errors.Is(err, ErrAlreadyConfirmed):
		return KindAlreadyConfirmed
	case errors.Is(err, ErrNotificationFailure):
		return KindNotificationFailure
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
