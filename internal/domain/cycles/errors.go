package cycles

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	// ErrNoActiveCycle is returned when an operation needs an open period and
	// none exists for the organization.
	ErrNoActiveCycle = errors.New("no active cycle")
	// ErrCycleConflict guards the one-active-cycle-per-org rule.
	ErrCycleConflict = errors.New("another cycle is already active")
)
