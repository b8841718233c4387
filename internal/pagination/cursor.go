// Package pagination implements keyset cursors for newest-first listings.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor points at the last row of the previous page. Listings resume
// strictly after (Timestamp, LastID) in descending order.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult is the JSON envelope for a page of list results.
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// ClampLimit maps non-positive limits to DefaultLimit and caps the rest at MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// EncodeCursor returns an opaque, URL-safe token for the given row.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token
// decodes to a nil cursor, meaning the first page.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	id, ts, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: timestamp}, nil
}

// Trim cuts a result fetched with limit+1 rows down to limit and builds the
// cursor for the next page from the last kept row.
func Trim[T any](items []T, limit int, key func(T) (string, time.Time)) ([]T, string, bool) {
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	if !hasMore || len(items) == 0 {
		return items, "", hasMore
	}
	id, ts := key(items[len(items)-1])
	return items, EncodeCursor(id, ts), hasMore
}
