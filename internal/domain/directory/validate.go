package directory

import (
	"fmt"
	"net/mail"
	"strings"
)

// NormalizeEmail lowercases and trims an address for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmployee(emp Employee) error {
	if strings.TrimSpace(emp.FirstName) == "" {
		return fmt.Errorf("%w: first name required", ErrValidation)
	}
	if strings.TrimSpace(emp.LastName) == "" {
		return fmt.Errorf("%w: last name required", ErrValidation)
	}
	if _, err := mail.ParseAddress(NormalizeEmail(emp.Email)); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	switch emp.Status {
	case "", EmployeeStatusActive, EmployeeStatusInactive:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrValidation, emp.Status)
	}
	return nil
}
