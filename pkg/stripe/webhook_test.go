package stripe

import (
	"testing"

	"github.com/rapidsites/storefront/pkg/types"
)

func TestDecodeCompletedSessionPrefersCollectedInformation(t *testing.T) {
	raw := []byte(`{
		"id": "cs_test_1",
		"customer_email": "",
		"customer_details": {"email": "buyer@example.com", "name": "Card Name", "phone": "+61400000000"},
		"metadata": {"customerName": "Ada Lovelace", "cartItems": "[]"},
		"amount_total": 51500,
		"currency": "aud",
		"payment_status": "paid",
		"payment_intent": "pi_123",
		"shipping_details": {"name": "Legacy", "address": {"line1": "old"}},
		"collected_information": {"shipping_details": {"name": "Ada L", "address": {"line1": "1 Opal St", "city": "Coober Pedy", "state": "SA", "postal_code": "5723", "country": ""}}},
		"shipping_cost": {"amount_total": 1500},
		"total_details": {"amount_tax": 4682}
	}`)

	sess, err := DecodeCompletedSession(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sess.CustomerEmail != "buyer@example.com" {
		t.Fatalf("expected customer_details email fallback, got %q", sess.CustomerEmail)
	}
	if sess.ShippingName != "Ada L" || sess.ShippingAddress.Line1 != "1 Opal St" {
		t.Fatalf("expected collected shipping details, got %+v", sess.ShippingAddress)
	}
	if sess.ShippingAddress.Country != types.DefaultCountry {
		t.Fatalf("expected default country, got %q", sess.ShippingAddress.Country)
	}
	if sess.PaymentIntentID != "pi_123" || sess.ShippingTotal != 1500 || sess.TaxTotal != 4682 || sess.AmountTotal != 51500 {
		t.Fatalf("unexpected amounts %+v", sess)
	}
	if sess.Metadata["customerName"] != "Ada Lovelace" {
		t.Fatal("metadata not decoded")
	}
}

func TestDecodeCompletedSessionLegacyShippingAndExpandedIntent(t *testing.T) {
	raw := []byte(`{
		"id": "cs_test_2",
		"customer_email": "x@example.com",
		"payment_intent": {"id": "pi_obj"},
		"shipping_details": {"name": "Legacy", "address": {"line1": "2 Gem Rd", "country": "nz"}}
	}`)
	sess, err := DecodeCompletedSession(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sess.PaymentIntentID != "pi_obj" {
		t.Fatalf("expected expanded intent id, got %q", sess.PaymentIntentID)
	}
	if sess.ShippingAddress.Country != "NZ" || sess.ShippingName != "Legacy" {
		t.Fatalf("unexpected shipping %+v", sess.ShippingAddress)
	}
	if sess.Metadata == nil {
		t.Fatal("metadata should never be nil")
	}
}

func TestDecodeCompletedSessionRequiresID(t *testing.T) {
	if _, err := DecodeCompletedSession([]byte(`{"object":"checkout.session"}`)); err == nil {
		t.Fatal("expected missing id error")
	}
	if _, err := DecodeCompletedSession([]byte(`not json`)); err == nil {
		t.Fatal("expected invalid json error")
	}
}

func TestVerifyEventRequiresSecret(t *testing.T) {
	if _, err := VerifyEvent([]byte(`{}`), "t=1,v1=abc", ""); err != ErrSigningSecretMissing {
		t.Fatalf("expected missing secret error, got %v", err)
	}
	if _, err := VerifyEvent([]byte(`{}`), "t=1,v1=abc", "whsec_1"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}
