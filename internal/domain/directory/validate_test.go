package directory

import (
	"errors"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Jane.Doe@Example.COM "); got != "jane.doe@example.com" {
		t.Fatalf("unexpected normalization: %s", got)
	}
}

func TestValidateEmployee(t *testing.T) {
	valid := Employee{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Status: EmployeeStatusActive}
	if err := ValidateEmployee(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := valid
	missing.FirstName = " "
	if err := ValidateEmployee(missing); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	badEmail := valid
	badEmail.Email = "not-an-email"
	if err := ValidateEmployee(badEmail); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	badStatus := valid
	badStatus.Status = "retired"
	if err := ValidateEmployee(badStatus); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
