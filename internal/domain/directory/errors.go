package directory

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks writes blocked by existing references, like deleting
	// a department that still has employees.
	ErrConflict = errors.New("conflict")
)
