package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services and handlers. Handlers map these to
// HTTP status codes; services wrap them with context via fmt.Errorf("%w").
var (
	// ErrNotFound: the referenced booking/vehicle/station/renter does not exist
	ErrNotFound = errors.New("not found")

	// ErrVehicleConflict: another live booking overlaps the requested window,
	// or the vehicle row is no longer AVAILABLE. Caller must re-fetch and retry.
	ErrVehicleConflict = errors.New("vehicle is not available for the requested window")

	// ErrInvalidState: the booking is not in a state that permits the
	// requested transition (e.g. confirming a CANCELLED booking).
	ErrInvalidState = errors.New("booking is not in a valid state for this operation")

	// ErrDataIntegrity: a persisted record violates an invariant the pipeline
	// depends on (e.g. rental deposit amount missing on a CONFIRMED booking).
	// Never swallowed, never retried.
	ErrDataIntegrity = errors.New("data integrity fault")

	// ErrGateway: the payment gateway call failed. The booking row is left
	// PENDING so payment can be retried; the sweeper reclaims it otherwise.
	ErrGateway = errors.New("payment gateway error")
)

// ValidationError is a synchronous business-rule rejection with a reason the
// client can act on. Never retried automatically.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError builds a ValidationError with a formatted reason
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a business-rule rejection
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
