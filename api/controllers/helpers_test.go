package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rapidsites/storefront/api/middleware"
	"github.com/rapidsites/storefront/internal/tenants"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testTenant() *models.Tenant {
	return &models.Tenant{
		ID:           uuid.New(),
		Slug:         "opals",
		Name:         "Opal Store",
		Subdomain:    "opals",
		ContactEmail: "hello@opals.example.com",
		Features:     models.TenantFeatures{Shop: true, Newsletter: true, Contact: true},
	}
}

// newRequest builds a request carrying the tenant, a cart session and any
// chi URL params given as key/value pairs.
func newRequest(method, target, body string, tenant *models.Tenant, params ...string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := req.Context()
	if tenant != nil {
		ctx = tenants.WithContext(ctx, tenant)
	}
	ctx = middleware.WithCartSession(ctx, "11111111-2222-3333-4444-555555555555")
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode data envelope: %v", err)
	}
}
