package evaluation

import "errors"

// The four failure modes callers branch on. Cross-organization access always
// surfaces ErrNotFound so tenants cannot probe each other's data; ErrForbidden
// means the entity is in the caller's organization but role or ownership
// disallows the action.
var (
	ErrNotFound          = errors.New("evaluation not found")
	ErrForbidden         = errors.New("not allowed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
)
