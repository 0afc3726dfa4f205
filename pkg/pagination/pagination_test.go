package pagination

import (
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorTokens(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.FixedZone("AEST", 10*3600)), ID: uuid.New()}
	got, err := Decode(c.Encode())
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(c.CreatedAt))
	assert.Equal(t, c.ID, got.ID)

	first, err := Decode("  ")
	require.NoError(t, err)
	assert.Nil(t, first)

	for _, bad := range []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("not json")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"t":"2026-03-01T00:00:00Z"}`)),
	} {
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidCursor, bad)
	}
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, Limit(0))
	assert.Equal(t, DefaultLimit, Limit(-3))
	assert.Equal(t, MaxLimit, Limit(1000))
	assert.Equal(t, 7, Limit(7))
}

func TestBuild(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	key := func(i int) Cursor { return Cursor{CreatedAt: base.Add(time.Duration(i) * time.Second), ID: uuid.New()} }

	page := Build([]int{1, 2, 3}, 2, key, strconv.Itoa)
	assert.Equal(t, []string{"1", "2"}, page.Items)
	next, err := Decode(page.NextCursor)
	require.NoError(t, err)
	assert.True(t, next.CreatedAt.Equal(base.Add(2*time.Second)))

	last := Build([]int{1, 2, 3}, 3, key, strconv.Itoa)
	assert.Len(t, last.Items, 3)
	assert.Empty(t, last.NextCursor)

	empty := Build[int, string](nil, 5, key, strconv.Itoa)
	assert.NotNil(t, empty.Items)
}
