package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id string
	at time.Time
}

func rowKey(r row) (string, time.Time) { return r.id, r.at }

func TestCursor_EncodeDecode(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 123, time.FixedZone("CET", 3600))

	token := EncodeCursor("doc-42", ts)
	assert.NotContains(t, token, "=")

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "doc-42", cursor.LastID)
	assert.True(t, ts.Equal(cursor.Timestamp))
}

func TestDecodeCursor_Empty(t *testing.T) {
	cursor, err := DecodeCursor("")

	require.NoError(t, err)
	assert.Nil(t, cursor)
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := map[string]string{
		"not base64":   "%%%",
		"no separator": "ZG9jLTE",
		"truncated":    EncodeCursor("doc-1", time.Now())[:6],
		"bad time":     base64.RawURLEncoding.EncodeToString([]byte("doc-1|yesterday")),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(token)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit+1))
}

func TestTrim(t *testing.T) {
	now := time.Now()
	rows := []row{{"a", now}, {"b", now.Add(-time.Minute)}, {"c", now.Add(-2 * time.Minute)}}

	t.Run("extra row means another page", func(t *testing.T) {
		items, next, hasMore := Trim(rows, 2, rowKey)

		assert.Len(t, items, 2)
		assert.True(t, hasMore)
		cursor, err := DecodeCursor(next)
		require.NoError(t, err)
		assert.Equal(t, "b", cursor.LastID)
	})

	t.Run("last page", func(t *testing.T) {
		items, next, hasMore := Trim(rows, 3, rowKey)

		assert.Len(t, items, 3)
		assert.False(t, hasMore)
		assert.Empty(t, next)
	})
}
