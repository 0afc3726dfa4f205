package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/rapidsites/storefront/pkg/auth"
	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db/dbtest"
	"github.com/rapidsites/storefront/pkg/db/models"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
)

var (
	testJWT      = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30}
	testPassword = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

func newTestService(t *testing.T) (Service, *Repository, *models.Tenant) {
	t.Helper()
	conn := dbtest.Open(t)
	tenant := dbtest.SeedTenant(t, conn, "opals")
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{Repo: repo, JWTConfig: testJWT, Password: testPassword})
	require.NoError(t, err)
	return svc, repo, tenant
}

func TestLoginIssuesTenantScopedToken(t *testing.T) {
	svc, repo, tenant := newTestService(t)
	ctx := context.Background()
	admin, err := svc.CreateAdmin(ctx, tenant.ID, "Admin@Opals.example.com", "Opal Admin", "correct-horse-battery")
	require.NoError(t, err)

	resp, err := svc.Login(ctx, tenant.ID, LoginRequest{Email: " admin@opals.example.com ", Password: "correct-horse-battery"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, admin.ID, resp.Admin.ID)
	require.NotNil(t, resp.Admin.LastLoginAt)

	claims, err := pkgAuth.ParseAdminToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, claims.TenantID)
	assert.Equal(t, admin.ID, claims.AdminID)

	stored, err := repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	authorized, err := svc.Authorize(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, authorized.AdminID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, tenant := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, tenant.ID, "admin@opals.example.com", "Opal Admin", "correct-horse-battery")
	require.NoError(t, err)

	cases := []struct {
		name     string
		tenantID uuid.UUID
		req      LoginRequest
	}{
		{"wrong password", tenant.ID, LoginRequest{Email: "admin@opals.example.com", Password: "nope"}},
		{"unknown email", tenant.ID, LoginRequest{Email: "ghost@opals.example.com", Password: "correct-horse-battery"}},
		{"other tenant", uuid.New(), LoginRequest{Email: "admin@opals.example.com", Password: "correct-horse-battery"}},
		{"empty", tenant.ID, LoginRequest{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tc.tenantID, tc.req)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
			assert.Equal(t, invalidCredentialsMessage, pkgerrors.PublicMessage(err))
		})
	}
}

func TestAuthorizeRejectsDeactivatedAdmin(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.SeedTenant(t, conn, "opals")
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), JWTConfig: testJWT, Password: testPassword})
	require.NoError(t, err)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, tenant.ID, "admin@opals.example.com", "Opal Admin", "correct-horse-battery")
	require.NoError(t, err)
	resp, err := svc.Login(ctx, tenant.ID, LoginRequest{Email: admin.Email, Password: "correct-horse-battery"})
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.AdminUser{}).Where("id = ?", admin.ID).Update("is_active", false).Error)
	_, err = svc.Authorize(ctx, resp.AccessToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Authorize(ctx, "garbage")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestCreateAdminValidates(t *testing.T) {
	svc, _, tenant := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, tenant.ID, "not-an-email", "x", "correct-horse-battery")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.CreateAdmin(ctx, tenant.ID, "a@b.co", "x", "short")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateAdmin(ctx, tenant.ID, "a@b.co", "x", "correct-horse-battery")
	require.NoError(t, err)
	_, err = svc.CreateAdmin(ctx, tenant.ID, "A@B.co", "x", "correct-horse-battery")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}
