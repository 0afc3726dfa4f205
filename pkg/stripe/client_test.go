package stripe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidsites/storefront/pkg/config"
)

func TestNewClientMatchesKeyToMode(t *testing.T) {
	ctx := context.Background()
	cases := map[string]config.StripeConfig{
		"missing key":     {Env: "test"},
		"live with test":  {Env: "live", APIKey: "sk_test_123"},
		"test with live":  {Env: "test", APIKey: "rk_live_123"},
		"unknown env":     {Env: "staging", APIKey: "sk_test_123"},
		"publishable key": {Env: "test", APIKey: "pk_test_123"},
		"no marker":       {Env: "test", APIKey: "sk_123"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient(ctx, cfg, nil)
			assert.Error(t, err)
		})
	}

	c, err := NewClient(ctx, config.StripeConfig{APIKey: " rk_test_abc "}, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeTest, c.Mode())
	assert.True(t, c.restricted)
	assert.Equal(t, "rk_test_abc", c.sessions().Key)

	c, err = NewClient(ctx, config.StripeConfig{Env: "LIVE", APIKey: "sk_live_abc"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, c.Mode())
	assert.False(t, c.restricted)
}

func TestNilClientMode(t *testing.T) {
	var c *Client
	assert.Equal(t, Mode(""), c.Mode())
}
