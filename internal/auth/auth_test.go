package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ciepi/portal-service/internal/domain"
)

func TestDefaultRolePolicy(t *testing.T) {
	policy := DefaultRolePolicy()

	cases := []struct {
		role domain.StaffRole
		perm Permission
		want bool
	}{
		{domain.StaffRoleAdmin, PermManageCapacitaciones, true},
		{domain.StaffRoleAdmin, PermIssueTokens, true},
		{domain.StaffRoleAdmin, PermViewRegistrants, true},
		{domain.StaffRoleEditor, PermWriteBlog, true},
		{domain.StaffRoleEditor, PermManageEvents, true},
		{domain.StaffRoleEditor, PermViewContact, true},
		{domain.StaffRoleEditor, PermManageCapacitaciones, false},
		{domain.StaffRoleEditor, PermViewRegistrants, false},
		{domain.StaffRoleEditor, PermIssueTokens, false},
		{"", PermWriteBlog, false},
	}
	for _, tc := range cases {
		if got := policy.Allows(tc.role, tc.perm); got != tc.want {
			t.Errorf("Allows(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestTokenManagerRoundTrip(t *testing.T) {
	manager := NewTokenManager("test-secret", 30)

	signed, expiresAt, err := manager.GenerateToken("staff-1", domain.StaffRoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatal("zero expiry")
	}

	claims, err := manager.ParseToken(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.StaffID != "staff-1" || claims.Role != domain.StaffRoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenManagerRejectsWrongSecret(t *testing.T) {
	manager := NewTokenManager("secret-a", 30)
	signed, _, err := manager.GenerateToken("staff-1", domain.StaffRoleEditor)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewTokenManager("secret-b", 30)
	if _, err := other.ParseToken(signed); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestTokenManagerRejectsWrongAlgorithm(t *testing.T) {
	manager := NewTokenManager("test-secret", 30)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{StaffID: "staff-1"})
	tokenStr, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := manager.ParseToken(tokenStr); err == nil {
		t.Fatal("alg=none token accepted")
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("s3cr3t!", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hashed == "s3cr3t!" {
		t.Fatal("password stored in plaintext")
	}
	if err := ComparePassword(hashed, "s3cr3t!"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	if err := ComparePassword(hashed, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordCostFallback(t *testing.T) {
	hashed, err := HashPassword("s3cr3t!", 0)
	if err != nil {
		t.Fatalf("hash with zero cost: %v", err)
	}
	if cost, err := bcrypt.Cost([]byte(hashed)); err != nil || cost != bcrypt.DefaultCost {
		t.Errorf("cost %d (err %v), want bcrypt default", cost, err)
	}
}
