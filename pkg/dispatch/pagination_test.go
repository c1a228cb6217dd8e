package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorPager(t *testing.T) {
	t.Run("starts at the first cursor", func(t *testing.T) {
		pager := NewCursorPager("ids")
		assert.Equal(t, Args{"cursor": FirstCursor}, pager.PageArgs())
	})

	t.Run("advances to the next cursor", func(t *testing.T) {
		pager := NewCursorPager("ids")

		done := pager.Advance(map[string]interface{}{
			"ids":             []interface{}{1.0, 2.0},
			"next_cursor":     float64(1357924680),
			"previous_cursor": float64(0),
		})
		assert.False(t, done)
		assert.Equal(t, Args{"cursor": int64(1357924680)}, pager.PageArgs())
	})

	t.Run("zero next cursor ends the loop", func(t *testing.T) {
		pager := NewCursorPager("ids")

		done := pager.Advance(map[string]interface{}{
			"ids":         []interface{}{3.0},
			"next_cursor": float64(0),
		})
		assert.True(t, done)
	})

	t.Run("string cursor form accepted", func(t *testing.T) {
		pager := NewCursorPager("ids")

		done := pager.Advance(map[string]interface{}{
			"ids":             []interface{}{},
			"next_cursor_str": "98765",
		})
		assert.False(t, done)
		assert.Equal(t, int64(98765), pager.NextCursor)
	})

	t.Run("non-object payload ends the loop", func(t *testing.T) {
		pager := NewCursorPager("ids")
		assert.True(t, pager.Advance([]interface{}{1.0, 2.0}))
	})

	t.Run("large cursor survives float64 decoding", func(t *testing.T) {
		// Cursors above 2^53 round when decoded as float64; the string
		// form carries the exact value and wins.
		payload, err := decodePayload([]byte(
			`{"ids": [], "next_cursor": 1677022478113851344, "next_cursor_str": "1677022478113851344"}`,
		))
		require.NoError(t, err)

		pager := NewCursorPager("ids")

		done := pager.Advance(payload)
		assert.False(t, done)
		assert.Equal(t, int64(1677022478113851344), pager.NextCursor)
		assert.Equal(t, Args{"cursor": int64(1677022478113851344)}, pager.PageArgs())
	})
}

func TestPagePager(t *testing.T) {
	t.Run("starts at page one", func(t *testing.T) {
		pager := NewPagePager("")
		assert.Equal(t, Args{"page": 1}, pager.PageArgs())
	})

	t.Run("non-empty page advances", func(t *testing.T) {
		pager := NewPagePager("")

		done := pager.Advance([]interface{}{map[string]interface{}{"id": 1.0}})
		assert.False(t, done)
		assert.Equal(t, Args{"page": 2}, pager.PageArgs())
	})

	t.Run("empty page ends the loop", func(t *testing.T) {
		pager := NewPagePager("")
		assert.True(t, pager.Advance([]interface{}{}))
	})

	t.Run("structured payload uses the items key", func(t *testing.T) {
		pager := NewPagePager("statuses")

		done := pager.Advance(map[string]interface{}{
			"statuses": []interface{}{map[string]interface{}{"id": 1.0}},
		})
		assert.False(t, done)

		done = pager.Advance(map[string]interface{}{
			"statuses": []interface{}{},
		})
		assert.True(t, done)
	})
}

func TestPayloadItems(t *testing.T) {
	tests := []struct {
		name     string
		payload  interface{}
		itemsKey string
		expected int
	}{
		{
			name:     "bare sequence",
			payload:  []interface{}{1.0, 2.0, 3.0},
			itemsKey: "",
			expected: 3,
		},
		{
			name:     "structured payload",
			payload:  map[string]interface{}{"ids": []interface{}{1.0}},
			itemsKey: "ids",
			expected: 1,
		},
		{
			name:     "missing key",
			payload:  map[string]interface{}{"other": []interface{}{1.0}},
			itemsKey: "ids",
			expected: 0,
		},
		{
			name:     "object without items key",
			payload:  map[string]interface{}{"ids": []interface{}{1.0}},
			itemsKey: "",
			expected: 0,
		},
		{
			name:     "scalar payload",
			payload:  42.0,
			itemsKey: "ids",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, PayloadItems(tt.payload, tt.itemsKey), tt.expected)
		})
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected int64
		ok       bool
	}{
		{"int64", int64(5), 5, true},
		{"int", 5, 5, true},
		{"float64", 5.0, 5, true},
		{"json number", json.Number("5"), 5, true},
		{"numeric string", "5", 5, true},
		{"non-numeric string", "five", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt64(tt.value)
			require.Equal(t, tt.ok, ok)

			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}
