package registry

import "errors"

var (
	// ErrNodeNotFound is returned when no OSD with the given identifier is registered.
	ErrNodeNotFound = errors.New("osd not found")

	// ErrNodeDegraded is returned when an OSD is excluded from placement.
	ErrNodeDegraded = errors.New("osd is degraded")

	// ErrDuplicateReservation is returned when a reservation ID is already in use on the OSD.
	ErrDuplicateReservation = errors.New("reservation already exists")

	// ErrIdentifierMismatch is returned when a descriptor is announced for a different OSD.
	ErrIdentifierMismatch = errors.New("descriptor identifier mismatch")
)

// IdentifierMismatchError carries both identifiers of a rejected announcement.
type IdentifierMismatchError struct {
	Expected string
	Actual   string
}

func (e *IdentifierMismatchError) Error() string {
	return "descriptor for " + e.Actual + " announced as " + e.Expected
}

func (e *IdentifierMismatchError) Unwrap() error {
	return ErrIdentifierMismatch
}
