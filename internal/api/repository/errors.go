package repository

import "errors"

var (
	// ErrAvailabilityConflict is returned when an availability adjustment would
	// push available_copies outside [0, total_copies]. The guarded UPDATE that
	// detects this leaves the row untouched.
	ErrAvailabilityConflict = errors.New("availability adjustment out of range")

	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrHasOpenLoans is returned when a delete is refused because open loans
	// still reference the record.
	ErrHasOpenLoans = errors.New("record still referenced by open loans")
)
