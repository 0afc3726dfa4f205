package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/types"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"slug": "boulder-opal"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"slug":"boulder-opal"}}`, rec.Body.String())
}

func TestWriteErrorKeepsClientDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeValidation, "email is required").
		WithDetails(map[string]string{"email": "is required"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[types.ErrorEnvelope](t, rec)
	assert.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
	assert.Equal(t, "email is required", body.Error.Message)
	assert.NotNil(t, body.Error.Details)
}

func TestWriteErrorHidesServerFailures(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   pkgerrors.Code
	}{
		"untyped":     {errors.New("boom"), http.StatusInternalServerError, pkgerrors.CodeInternal},
		"persistence": {pkgerrors.Wrap(pkgerrors.CodePersistence, errors.New("pq: deadlock"), "save order"), http.StatusInternalServerError, pkgerrors.CodePersistence},
		"dependency":  {pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("redis down"), "cart"), http.StatusServiceUnavailable, pkgerrors.CodeDependency},
		"nil":         {nil, http.StatusInternalServerError, pkgerrors.CodeInternal},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			body := decode[types.ErrorEnvelope](t, rec)
			assert.Equal(t, string(tc.code), body.Error.Code)
			assert.NotContains(t, body.Error.Message, "deadlock")
			assert.NotContains(t, body.Error.Message, "redis")
			assert.Nil(t, body.Error.Details)
		})
	}
}

func TestWriteErrorLogsByStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf, Format: "json"})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"status":404`)

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"error_chain"`)
}

func TestWriteCheckout(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCheckout(context.Background(), nil, rec, "https://checkout.stripe.com/c/pay/cs_test", nil)
	ok := decode[types.CheckoutEnvelope](t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ok.Success)
	assert.NotEmpty(t, ok.URL)

	rec = httptest.NewRecorder()
	WriteCheckout(context.Background(), nil, rec, "", pkgerrors.New(pkgerrors.CodeGateway, "Your card was declined."))
	failed := decode[types.CheckoutEnvelope](t, rec)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, failed.Success)
	assert.Equal(t, "Your card was declined.", failed.Error)
}

func TestWriteWebhookAck(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteWebhookAck(rec, types.WebhookAck{Duplicate: true})
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, true, body["duplicate"])
	assert.NotContains(t, body, "orderId")
}
