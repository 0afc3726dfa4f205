package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/logger"
)

// Mode is the Stripe account mode a key belongs to.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

var errAPIKeyRequired = errors.New("stripe api key is required")

// Client holds a validated secret key and the backend requests go through.
// Keys are passed per call so nothing is installed on package globals.
type Client struct {
	mode       Mode
	restricted bool
	key        string
	backend    stripe.Backend
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode, err := parseMode(cfg.Environment())
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	keyMode, restricted, err := classifyKey(key)
	if err != nil {
		return nil, err
	}
	if keyMode != mode {
		return nil, fmt.Errorf("stripe env %q cannot use a %s key", mode, keyMode)
	}

	stripe.SetAppInfo(&stripe.AppInfo{Name: "rapidsites-storefront"})
	c := &Client{
		mode:       mode,
		restricted: restricted,
		key:        key,
		backend:    stripe.GetBackend(stripe.APIBackend),
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_mode":       mode,
			"stripe_restricted": restricted,
			"webhook_enabled":   cfg.SigningSecret() != "",
		}), "stripe client ready")
	}
	return c, nil
}

func (c *Client) Mode() Mode {
	if c == nil {
		return ""
	}
	return c.mode
}

func (c *Client) sessions() *session.Client {
	return &session.Client{B: c.backend, Key: c.key}
}

func parseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeTest, nil
	case ModeTest, ModeLive:
		return m, nil
	default:
		return "", fmt.Errorf("stripe env must be %q or %q, got %q", ModeTest, ModeLive, raw)
	}
}

// classifyKey accepts secret (sk_) and restricted (rk_) keys only.
// Publishable keys are rejected.
func classifyKey(key string) (Mode, bool, error) {
	prefix, rest, ok := strings.Cut(key, "_")
	if !ok || (prefix != "sk" && prefix != "rk") {
		return "", false, errors.New("stripe key must be a secret (sk_) or restricted (rk_) key")
	}
	switch {
	case strings.HasPrefix(rest, "test_"):
		return ModeTest, prefix == "rk", nil
	case strings.HasPrefix(rest, "live_"):
		return ModeLive, prefix == "rk", nil
	}
	return "", false, errors.New("stripe key has no test_ or live_ marker")
}
