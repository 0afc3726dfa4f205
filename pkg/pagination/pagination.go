// Package pagination implements keyset paging over (created_at, id), newest
// first.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor")

type Params struct {
	Limit  int
	Cursor string
}

// Page is one slice of results. NextCursor is empty on the last page.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// Cursor points at the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

// Encode renders the cursor as an opaque URL safe token.
func (c Cursor) Encode() string {
	c.CreatedAt = c.CreatedAt.UTC()
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token from Encode. An empty token means the first page and
// yields a nil cursor.
func Decode(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.CreatedAt.IsZero() || c.ID == uuid.Nil {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// Limit clamps a requested page size into [1, MaxLimit].
func Limit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// Keyset orders newest first and, when cursor is set, resumes after it.
// The query fetches one extra row so Build can tell whether more remain.
func Keyset(cursor *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if cursor != nil {
			q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return q.Order("created_at DESC").Order("id DESC").Limit(Limit(limit) + 1)
	}
}

// Build converts rows fetched with Keyset into a page, dropping the look
// ahead row and pointing NextCursor at the last kept one.
func Build[R, T any](rows []R, limit int, key func(R) Cursor, convert func(R) T) Page[T] {
	limit = Limit(limit)
	more := len(rows) > limit
	if more {
		rows = rows[:limit]
	}
	page := Page[T]{Items: make([]T, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, convert(row))
	}
	if more {
		page.NextCursor = key(rows[len(rows)-1]).Encode()
	}
	return page
}
