package auth

import (
	"context"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", OrgID: "org1", EmployeeID: "e1", Role: RoleHR}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if parsed.UserID != claims.UserID || parsed.OrgID != claims.OrgID || parsed.EmployeeID != claims.EmployeeID || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestPermissionsHasPermission(t *testing.T) {
	perms := Permissions{}

	ok, err := perms.HasPermission(context.Background(), RoleHR, PermAnalyticsRead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected hr to hold analytics.read")
	}

	ok, err = perms.HasPermission(context.Background(), RoleEmployee, PermAnalyticsRead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("did not expect employee to hold analytics.read")
	}
}
