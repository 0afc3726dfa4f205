package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/pagination"
)

type contactBody struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=10"`
}

func decode(t *testing.T, body string) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest contactBody
	return DecodeJSONBody(httptest.NewRecorder(), req, &dest)
}

func TestDecodeJSONBodyValid(t *testing.T) {
	if err := decode(t, `{"name":"Jane","email":"jane@example.com","message":"hello there friend"}`); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDecodeJSONBodyNamesFirstField(t *testing.T) {
	err := decode(t, `{"name":"Jane","email":"nope","message":"hello there friend"}`)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := pkgerrors.PublicMessage(err); msg != "email must be a valid email" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndGarbage(t *testing.T) {
	for _, body := range []string{`{"name":"x","extra":1}`, `not json`, ``} {
		if err := decode(t, body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %q, got %v", body, err)
		}
	}
}

func TestPageParams(t *testing.T) {
	params, err := PageParams(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || params.Limit != pagination.DefaultLimit || params.Cursor != "" {
		t.Fatalf("expected defaults, got %+v %v", params, err)
	}

	params, err = PageParams(httptest.NewRequest(http.MethodGet, "/?limit=5&cursor=%20abc%20", nil))
	if err != nil || params.Limit != 5 || params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v %v", params, err)
	}

	for _, q := range []string{"?limit=500", "?limit=0", "?limit=x"} {
		_, err := PageParams(httptest.NewRequest(http.MethodGet, "/"+q, nil))
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %s, got %v", q, err)
		}
	}
}
