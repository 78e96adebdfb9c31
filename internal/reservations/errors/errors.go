package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	ErrAlreadyCancelled = errors.New("reservation already cancelled")

	ErrDatesUnavailable = errors.New("reservation dates are not available")

	// ErrAdmissionBusy means the admission gate could not be acquired in time.
	ErrAdmissionBusy = errors.New("admission gate busy")

	// ErrLeaseHeld means another process holds the shared admission lease.
	ErrLeaseHeld = errors.New("admission lease held by another process")
)
