package dispatch

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInflator(schemas map[string]*InflationSchema, now time.Time) *Inflator {
	inflator := NewInflator(schemas)
	inflator.clock = func() time.Time { return now }

	return inflator
}

func TestInflator_Inflate(t *testing.T) {
	now := time.Date(2012, 3, 5, 12, 0, 0, 0, time.UTC)

	schemas := map[string]*InflationSchema{
		"show_status": {
			DateFields: []string{"created_at"},
			URLFields:  []string{"source_url"},
			Nested: map[string]*InflationSchema{
				"user": {DateFields: []string{"created_at"}},
			},
		},
	}

	t.Run("date fields gain time and relative views", func(t *testing.T) {
		inflator := newTestInflator(schemas, now)

		payload := inflator.Inflate("show_status", map[string]interface{}{
			"created_at": "Mon Mar 05 10:00:00 +0000 2012",
			"text":       "hello",
		})

		obj, ok := payload.(map[string]interface{})
		require.True(t, ok)

		parsed, ok := obj["created_at_time"].(time.Time)
		require.True(t, ok)
		assert.Equal(t, 2012, parsed.Year())
		assert.Equal(t, "about 2 hours ago", obj["created_at_relative"])

		// The original field is untouched.
		assert.Equal(t, "Mon Mar 05 10:00:00 +0000 2012", obj["created_at"])
	})

	t.Run("url fields gain a parsed view", func(t *testing.T) {
		inflator := newTestInflator(schemas, now)

		payload := inflator.Inflate("show_status", map[string]interface{}{
			"source_url": "https://example.com/client?v=2",
		})

		obj := payload.(map[string]interface{})
		parsed, ok := obj["source_url_parsed"].(*url.URL)
		require.True(t, ok)
		assert.Equal(t, "example.com", parsed.Host)
	})

	t.Run("nested schema applies to child object", func(t *testing.T) {
		inflator := newTestInflator(schemas, now)

		payload := inflator.Inflate("show_status", map[string]interface{}{
			"user": map[string]interface{}{
				"created_at": "Sun Mar 04 12:00:00 +0000 2012",
			},
		})

		obj := payload.(map[string]interface{})
		user := obj["user"].(map[string]interface{})
		assert.Contains(t, user, "created_at_time")
		assert.Equal(t, "1 days ago", user["created_at_relative"])
	})

	t.Run("sequence payload inflates each element", func(t *testing.T) {
		inflator := newTestInflator(map[string]*InflationSchema{
			"home_timeline": {
				Items: &InflationSchema{DateFields: []string{"created_at"}},
			},
		}, now)

		payload := inflator.Inflate("home_timeline", []interface{}{
			map[string]interface{}{"created_at": "Mon Mar 05 11:59:30 +0000 2012"},
		})

		items := payload.([]interface{})
		first := items[0].(map[string]interface{})
		assert.Equal(t, "30 seconds ago", first["created_at_relative"])
	})

	t.Run("malformed source field skipped", func(t *testing.T) {
		inflator := newTestInflator(schemas, now)

		payload := inflator.Inflate("show_status", map[string]interface{}{
			"created_at": "not a date",
		})

		obj := payload.(map[string]interface{})
		assert.NotContains(t, obj, "created_at_time")
		assert.NotContains(t, obj, "created_at_relative")
	})

	t.Run("unregistered method passes through", func(t *testing.T) {
		inflator := newTestInflator(schemas, now)

		raw := map[string]interface{}{"created_at": "Mon Mar 05 10:00:00 +0000 2012"}
		payload := inflator.Inflate("other_method", raw)

		obj := payload.(map[string]interface{})
		assert.NotContains(t, obj, "created_at_time")
	})

	t.Run("custom date layout", func(t *testing.T) {
		inflator := newTestInflator(map[string]*InflationSchema{
			"search": {
				DateFields: []string{"created_at"},
				DateLayout: time.RFC3339,
			},
		}, now)

		payload := inflator.Inflate("search", map[string]interface{}{
			"created_at": "2012-03-05T10:00:00Z",
		})

		obj := payload.(map[string]interface{})
		assert.Contains(t, obj, "created_at_time")
	})
}

func TestRelativeAge(t *testing.T) {
	tests := []struct {
		name     string
		age      time.Duration
		expected string
	}{
		{"seconds", 45 * time.Second, "45 seconds ago"},
		{"minutes", 5 * time.Minute, "5 minutes ago"},
		{"hours", 3 * time.Hour, "about 3 hours ago"},
		{"days", 49 * time.Hour, "2 days ago"},
		{"future", -time.Minute, "in the future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, relativeAge(tt.age))
		})
	}
}
