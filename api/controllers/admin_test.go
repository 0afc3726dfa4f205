package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rapidsites/storefront/api/middleware"
	"github.com/rapidsites/storefront/internal/auth"
	"github.com/rapidsites/storefront/internal/orders"
	pkgAuth "github.com/rapidsites/storefront/pkg/auth"
	"github.com/rapidsites/storefront/pkg/enums"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/pagination"
)

type stubLogin struct {
	resp     *auth.LoginResponse
	err      error
	tenantID uuid.UUID
}

func (s *stubLogin) Login(ctx context.Context, tenantID uuid.UUID, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.tenantID = tenantID
	return s.resp, s.err
}

type stubAdminOrders struct {
	page       pagination.Page[orders.OrderDTO]
	order      *orders.OrderDTO
	err        error
	gotTenant  uuid.UUID
	gotFilters orders.ListFilters
	gotUpdate  orders.UpdateInput
	gotNumber  string
}

func (s *stubAdminOrders) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters orders.ListFilters) (pagination.Page[orders.OrderDTO], error) {
	s.gotTenant = tenantID
	s.gotFilters = filters
	return s.page, s.err
}

func (s *stubAdminOrders) Get(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*orders.OrderDTO, error) {
	s.gotTenant = tenantID
	s.gotNumber = orderNumber
	return s.order, s.err
}

func (s *stubAdminOrders) Update(ctx context.Context, input orders.UpdateInput) (*orders.OrderDTO, error) {
	s.gotUpdate = input
	return s.order, s.err
}

func withAdmin(req *http.Request, tenantID uuid.UUID) (*http.Request, *pkgAuth.AdminClaims) {
	claims := &pkgAuth.AdminClaims{AdminID: uuid.New(), TenantID: tenantID, Email: "admin@opals.example.com"}
	return req.WithContext(middleware.WithAdmin(req.Context(), claims)), claims
}

func TestAdminLogin(t *testing.T) {
	tenant := testTenant()
	svc := &stubLogin{resp: &auth.LoginResponse{AccessToken: "token", TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour)}}
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/admin/v1/auth/login", `{"email":"admin@opals.example.com","password":"correct horse battery"}`, tenant)
	AdminLogin(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.tenantID != tenant.ID {
		t.Fatalf("login scoped to wrong tenant %s", svc.tenantID)
	}
	var body auth.LoginResponse
	decodeData(t, resp, &body)
	if body.AccessToken != "token" {
		t.Fatalf("unexpected response %+v", body)
	}
}

func TestAdminLoginInvalidCredentials(t *testing.T) {
	svc := &stubLogin{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/admin/v1/auth/login", `{"email":"admin@opals.example.com","password":"nope"}`, testTenant())
	AdminLogin(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminOrderListFilters(t *testing.T) {
	tenant := testTenant()
	svc := &stubAdminOrders{page: pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{{OrderNumber: "OPAL-1"}}}}
	req, _ := withAdmin(newRequest(http.MethodGet, "/api/admin/v1/orders?status=shipped&email=jane@example.com", "", tenant), tenant.ID)

	resp := httptest.NewRecorder()
	AdminOrderList(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotTenant != tenant.ID {
		t.Fatalf("unexpected tenant %s", svc.gotTenant)
	}
	if svc.gotFilters.Status == nil || *svc.gotFilters.Status != enums.OrderStatusShipped || svc.gotFilters.Email != "jane@example.com" {
		t.Fatalf("unexpected filters %+v", svc.gotFilters)
	}
}

func TestAdminOrderListRejectsUnknownStatus(t *testing.T) {
	tenant := testTenant()
	req, _ := withAdmin(newRequest(http.MethodGet, "/api/admin/v1/orders?status=lost", "", tenant), tenant.ID)
	resp := httptest.NewRecorder()
	AdminOrderList(&stubAdminOrders{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderListRequiresAdmin(t *testing.T) {
	resp := httptest.NewRecorder()
	AdminOrderList(&stubAdminOrders{}, testLogger()).ServeHTTP(resp, newRequest(http.MethodGet, "/api/admin/v1/orders", "", testTenant()))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminOrderDetail(t *testing.T) {
	tenant := testTenant()
	svc := &stubAdminOrders{order: &orders.OrderDTO{OrderNumber: "OPAL-ABC-WXYZ"}}
	req, _ := withAdmin(newRequest(http.MethodGet, "/api/admin/v1/orders/OPAL-ABC-WXYZ", "", tenant, "orderNumber", "OPAL-ABC-WXYZ"), tenant.ID)

	resp := httptest.NewRecorder()
	AdminOrderDetail(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotNumber != "OPAL-ABC-WXYZ" {
		t.Fatalf("unexpected order number %q", svc.gotNumber)
	}
}

func TestAdminOrderUpdate(t *testing.T) {
	tenant := testTenant()
	svc := &stubAdminOrders{order: &orders.OrderDTO{OrderNumber: "OPAL-ABC-WXYZ", Status: enums.OrderStatusShipped}}
	req, claims := withAdmin(newRequest(http.MethodPatch, "/api/admin/v1/orders/OPAL-ABC-WXYZ",
		`{"status":"shipped","trackingNumber":"TRK123","shippingCarrier":"australia-post"}`, tenant, "orderNumber", "OPAL-ABC-WXYZ"), tenant.ID)

	resp := httptest.NewRecorder()
	AdminOrderUpdate(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	got := svc.gotUpdate
	if got.TenantID != tenant.ID || got.ActorID != claims.AdminID || got.OrderNumber != "OPAL-ABC-WXYZ" {
		t.Fatalf("unexpected scope %+v", got)
	}
	if got.Status == nil || *got.Status != enums.OrderStatusShipped {
		t.Fatalf("unexpected status %+v", got.Status)
	}
	if got.TrackingNumber == nil || *got.TrackingNumber != "TRK123" || got.ShippingCarrier == nil {
		t.Fatalf("unexpected shipping fields %+v", got)
	}
}

func TestAdminOrderUpdateValidation(t *testing.T) {
	tenant := testTenant()
	cases := map[string]string{
		"empty":   `{}`,
		"status":  `{"status":"lost"}`,
		"carrier": `{"shippingCarrier":"pigeon"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req, _ := withAdmin(newRequest(http.MethodPatch, "/api/admin/v1/orders/OPAL-1", body, tenant, "orderNumber", "OPAL-1"), tenant.ID)
			resp := httptest.NewRecorder()
			AdminOrderUpdate(&stubAdminOrders{}, testLogger()).ServeHTTP(resp, req)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
		})
	}
}
