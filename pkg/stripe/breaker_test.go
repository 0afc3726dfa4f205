package stripe

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

type flakyGateway struct {
	calls int
	err   error
}

func (f *flakyGateway) CreateSession(context.Context, SessionRequest) (*Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Session{ID: "cs_1", URL: "https://checkout"}, nil
}

func (f *flakyGateway) GetSession(_ context.Context, id string) (*Session, error) {
	f.calls++
	return &Session{ID: id}, f.err
}

func TestGuardedGatewayOpensAfterFailures(t *testing.T) {
	next := &flakyGateway{err: errors.New("connection reset")}
	g, err := NewGuardedGateway(next, BreakerSettings{Failures: 2, Cooldown: time.Minute}, nil)
	require.NoError(t, err)

	for range 2 {
		_, err := g.CreateSession(context.Background(), SessionRequest{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, "open", g.State())

	_, err = g.CreateSession(context.Background(), SessionRequest{})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, "Payment provider is temporarily unavailable", ErrorMessage(err))
}

func TestGuardedGatewayIgnoresRejections(t *testing.T) {
	next := &flakyGateway{err: &stripe.Error{HTTPStatusCode: http.StatusBadRequest, Msg: "bad email"}}
	g, err := NewGuardedGateway(next, BreakerSettings{Failures: 1}, nil)
	require.NoError(t, err)

	for range 3 {
		_, err := g.CreateSession(context.Background(), SessionRequest{})
		require.Error(t, err)
		assert.Equal(t, "bad email", ErrorMessage(err))
	}
	assert.Equal(t, "closed", g.State())
	assert.Equal(t, 3, next.calls)
}

func TestGuardedGatewayPassesThrough(t *testing.T) {
	g, err := NewGuardedGateway(&flakyGateway{}, BreakerSettings{}, nil)
	require.NoError(t, err)

	sess, err := g.GetSession(context.Background(), "cs_9")
	require.NoError(t, err)
	assert.Equal(t, "cs_9", sess.ID)

	_, err = NewGuardedGateway(nil, BreakerSettings{}, nil)
	assert.Error(t, err)
}

func TestCountsAsSuccess(t *testing.T) {
	assert.True(t, countsAsSuccess(nil))
	assert.True(t, countsAsSuccess(context.Canceled))
	assert.False(t, countsAsSuccess(&stripe.Error{HTTPStatusCode: http.StatusTooManyRequests}))
	assert.False(t, countsAsSuccess(&stripe.Error{HTTPStatusCode: http.StatusBadGateway}))
	assert.True(t, countsAsSuccess(&stripe.Error{HTTPStatusCode: http.StatusPaymentRequired}))
}
