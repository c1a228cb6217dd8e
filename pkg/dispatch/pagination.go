package dispatch

import (
	"encoding/json"
	"strconv"
)

// Pager drives one of the two pagination protocols over the fetch-one-page
// primitive. A pager is created fresh per pagination loop and is not safe
// for concurrent use.
//
// Some endpoints accept both protocols during a deprecation window. When
// both are legal, callers should prefer the cursor protocol; the engine
// keeps both independently usable rather than enforcing one.
type Pager interface {
	// PageArgs returns the pagination arguments to merge into the next
	// fetch.
	PageArgs() Args

	// Advance consumes a fetched page payload and reports whether the
	// loop is done.
	Advance(payload interface{}) bool
}

// FirstCursor is the sentinel sent to request the first page of a cursored
// sequence.
const FirstCursor int64 = -1

// CursorPager pages with opaque int64 cursors. The loop is done when the
// payload reports next_cursor == 0.
type CursorPager struct {
	Cursor         int64
	NextCursor     int64
	PreviousCursor int64

	// ItemsKey names the item sequence inside the page payload; informational
	// for cursored payloads, which carry the cursor fields at top level.
	ItemsKey string
}

// NewCursorPager starts a cursor loop at the first page.
func NewCursorPager(itemsKey string) *CursorPager {
	return &CursorPager{Cursor: FirstCursor, ItemsKey: itemsKey}
}

// PageArgs implements Pager.
func (p *CursorPager) PageArgs() Args {
	return Args{"cursor": p.Cursor}
}

// Advance implements Pager.
func (p *CursorPager) Advance(payload interface{}) bool {
	page, ok := payload.(map[string]interface{})
	if !ok {
		return true
	}

	p.NextCursor = cursorValue(page, "next_cursor")
	p.PreviousCursor = cursorValue(page, "previous_cursor")

	if p.NextCursor == 0 {
		return true
	}

	p.Cursor = p.NextCursor

	return false
}

// cursorValue reads a cursor field, accepting the numeric and string forms
// providers emit (next_cursor vs next_cursor_str). The string form is
// preferred: decoded JSON numbers arrive as float64, which loses precision
// for cursors above 2^53.
func cursorValue(page map[string]interface{}, key string) int64 {
	if v, ok := toInt64(page[key+"_str"]); ok {
		return v
	}

	if v, ok := toInt64(page[key]); ok {
		return v
	}

	return 0
}

// PagePager pages with 1-based page numbers. The loop is done when a
// fetched page carries no items.
type PagePager struct {
	Page int

	// ItemsKey names the item sequence inside a structured page payload.
	// Empty means the payload is a bare sequence.
	ItemsKey string
}

// NewPagePager starts a page-number loop at page 1.
func NewPagePager(itemsKey string) *PagePager {
	return &PagePager{Page: 1, ItemsKey: itemsKey}
}

// PageArgs implements Pager.
func (p *PagePager) PageArgs() Args {
	return Args{"page": p.Page}
}

// Advance implements Pager.
func (p *PagePager) Advance(payload interface{}) bool {
	if len(PayloadItems(payload, p.ItemsKey)) == 0 {
		return true
	}

	p.Page++

	return false
}

// toInt64 normalizes the numeric representations a decoded payload may
// carry for a cursor field.
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		parsed, err := n.Int64()

		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)

		return parsed, err == nil
	default:
		return 0, false
	}
}

// PayloadItems extracts the item sequence from a page payload: the payload
// itself when it is a bare sequence, or the named field of a structured
// payload. Nil when neither shape matches.
func PayloadItems(payload interface{}, itemsKey string) []interface{} {
	switch page := payload.(type) {
	case []interface{}:
		return page
	case map[string]interface{}:
		if itemsKey == "" {
			return nil
		}

		items, _ := page[itemsKey].([]interface{})

		return items
	default:
		return nil
	}
}
