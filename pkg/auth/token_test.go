package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rapidsites/storefront/pkg/config"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30}
}

func TestMintAndParseAdminToken(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()
	adminID := uuid.New()
	tenantID := uuid.New()

	token, expiresAt, err := MintAdminToken(cfg, now, AdminTokenPayload{
		AdminID:  adminID,
		TenantID: tenantID,
		Email:    "admin@opals.example.com",
	})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}
	if want := now.Add(30 * time.Minute); !expiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, expiresAt)
	}

	claims, err := ParseAdminToken(cfg, token)
	if err != nil {
		t.Fatalf("parse admin token: %v", err)
	}
	if claims.AdminID != adminID || claims.TenantID != tenantID {
		t.Fatalf("ids not preserved: %+v", claims)
	}
	if claims.Email != "admin@opals.example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.Issuer != cfg.Issuer || claims.Subject != adminID.String() {
		t.Fatalf("unexpected registered claims %+v", claims.RegisteredClaims)
	}
	if claims.ID == "" {
		t.Fatal("expected jti")
	}
}

func TestParseAdminTokenInvalidSignature(t *testing.T) {
	cfg := testConfig()
	token, _, err := MintAdminToken(cfg, time.Now(), AdminTokenPayload{AdminID: uuid.New(), TenantID: uuid.New()})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}
	other := cfg
	other.Secret = "other"
	if _, err := ParseAdminToken(other, token); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAdminTokenExpired(t *testing.T) {
	cfg := testConfig()
	token, _, err := MintAdminToken(cfg, time.Now().Add(-time.Hour), AdminTokenPayload{AdminID: uuid.New(), TenantID: uuid.New()})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}
	_, err = ParseAdminToken(cfg, token)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiration error, got %v", err)
	}
}

func TestParseAdminTokenRejectsOtherAlgorithms(t *testing.T) {
	cfg := testConfig()
	claims := AdminClaims{
		AdminID:  uuid.New(),
		TenantID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAdminToken(cfg, token); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestMintAdminTokenRequiresIDs(t *testing.T) {
	if _, _, err := MintAdminToken(testConfig(), time.Now(), AdminTokenPayload{AdminID: uuid.New()}); err == nil {
		t.Fatal("expected missing tenant error")
	}
}
