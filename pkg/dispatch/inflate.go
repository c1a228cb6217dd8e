package dispatch

import (
	"fmt"
	"net/url"
	"time"
)

// RubyDateLayout is the created_at layout many legacy providers emit.
const RubyDateLayout = "Mon Jan 02 15:04:05 -0700 2006"

// InflationSchema describes how to inflate one payload shape. Inflation is
// purely additive: derived fields are written under new keys and missing or
// malformed source fields are skipped, never an error.
type InflationSchema struct {
	// DateFields are parsed with DateLayout into time values, adding
	// "<field>_time" (time.Time) and "<field>_relative" (a rendered
	// relative age).
	DateFields []string

	// DateLayout defaults to RubyDateLayout.
	DateLayout string

	// URLFields are parsed into *url.URL values under "<field>_parsed".
	URLFields []string

	// Nested maps a field name to the schema for the object (or each
	// element of the sequence) stored there.
	Nested map[string]*InflationSchema

	// Items is the element schema for a bare-sequence payload.
	Items *InflationSchema
}

// Inflator converts raw decoded payloads into richer typed views using
// per-method schemas.
type Inflator struct {
	schemas map[string]*InflationSchema
	clock   func() time.Time
}

// NewInflator builds an inflator from schemas keyed by canonical method
// name.
func NewInflator(schemas map[string]*InflationSchema) *Inflator {
	return &Inflator{
		schemas: schemas,
		clock:   time.Now,
	}
}

// Inflate applies the schema registered for method to a decoded payload.
// Payloads with no registered schema pass through untouched.
func (i *Inflator) Inflate(method string, payload interface{}) interface{} {
	schema, ok := i.schemas[method]
	if !ok {
		return payload
	}

	return i.apply(schema, payload)
}

func (i *Inflator) apply(schema *InflationSchema, payload interface{}) interface{} {
	switch value := payload.(type) {
	case map[string]interface{}:
		i.applyObject(schema, value)

		return value
	case []interface{}:
		elem := schema.Items
		if elem == nil {
			elem = schema
		}

		for _, item := range value {
			i.apply(elem, item)
		}

		return value
	default:
		return payload
	}
}

func (i *Inflator) applyObject(schema *InflationSchema, obj map[string]interface{}) {
	layout := schema.DateLayout
	if layout == "" {
		layout = RubyDateLayout
	}

	for _, field := range schema.DateFields {
		raw, ok := obj[field].(string)
		if !ok {
			continue
		}

		parsed, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}

		obj[field+"_time"] = parsed
		obj[field+"_relative"] = relativeAge(i.clock().Sub(parsed))
	}

	for _, field := range schema.URLFields {
		raw, ok := obj[field].(string)
		if !ok || raw == "" {
			continue
		}

		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}

		obj[field+"_parsed"] = parsed
	}

	for field, nested := range schema.Nested {
		child, ok := obj[field]
		if !ok {
			continue
		}

		i.apply(nested, child)
	}
}

// relativeAge renders a duration as a coarse human-readable age.
func relativeAge(age time.Duration) string {
	switch {
	case age < 0:
		return "in the future"
	case age < time.Minute:
		return fmt.Sprintf("%d seconds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("about %d hours ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}
}
