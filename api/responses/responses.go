// Package responses renders the JSON envelopes shared by every handler.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/types"
)

var errUnknown = errors.New("unknown error")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError renders err as {error:{code,message,details}}. Untyped errors
// become INTERNAL_ERROR and internal messages never reach the client.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	f := failureOf(err)
	body := types.APIError{Code: string(f.typed.Code()), Message: f.public}
	if f.meta.DetailsAllowed {
		body.Details = f.typed.Details()
	}
	f.log(ctx, logg)
	writeJSON(w, f.meta.HTTPStatus, types.ErrorEnvelope{Error: body})
}

// WriteCheckout renders the flat checkout contract: {success, url} on
// success, {success:false, error} with the mapped status otherwise.
func WriteCheckout(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, url string, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, types.CheckoutEnvelope{Success: true, URL: url})
		return
	}
	f := failureOf(err)
	f.log(ctx, logg)
	writeJSON(w, f.meta.HTTPStatus, types.CheckoutEnvelope{Error: f.public})
}

// WriteWebhookAck acknowledges a payment gateway delivery.
func WriteWebhookAck(w http.ResponseWriter, ack types.WebhookAck) {
	ack.Received = true
	writeJSON(w, http.StatusOK, ack)
}

type failure struct {
	cause  error
	typed  *pkgerrors.Error
	meta   pkgerrors.Metadata
	public string
}

func failureOf(err error) failure {
	if err == nil {
		err = errUnknown
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	return failure{
		cause:  err,
		typed:  typed,
		meta:   pkgerrors.MetadataFor(typed.Code()),
		public: pkgerrors.PublicMessage(typed),
	}
}

// log reports 5xx at error with the full chain; rejected requests at warn.
func (f failure) log(ctx context.Context, logg *logger.Logger) {
	if logg == nil {
		return
	}
	ctx = logg.WithFields(ctx, pkgerrors.LogFields(f.cause))
	if f.meta.HTTPStatus >= http.StatusInternalServerError {
		// LogFields already carries the error and its code.
		logg.Error(ctx, "request failed", nil)
		return
	}
	logg.Warn(logg.WithField(ctx, "status", f.meta.HTTPStatus), "request rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// The status line is already out, so an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(payload)
}
