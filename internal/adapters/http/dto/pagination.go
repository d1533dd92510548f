package dto

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// Page sizes of listing endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidCursor is returned for a cursor not produced by FormatCursor.
var ErrInvalidCursor = errors.New("invalid cursor")

const cursorPrefix = "seq:"

// PageRequest is bound from the cursor and limit query parameters.
type PageRequest struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"  validate:"omitempty,gte=1,lte=100"`
}

// PageSize applies the default and the upper bound to Limit.
func (p *PageRequest) PageSize() int {
	if p.Limit <= 0 {
		return DefaultPageSize
	}

	return min(p.Limit, MaxPageSize)
}

// Before returns the sequence number the next page starts below, 0 on the
// first page.
func (p *PageRequest) Before() (uint64, error) {
	return ParseCursor(p.Cursor)
}

// Page is one page of a listing in descending sequence order.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// NewPage builds a page from up to limit+1 items. The extra item only
// signals that another page exists; seq gives the position of an item.
func NewPage[T any](items []T, limit int, seq func(T) uint64) *Page[T] {
	page := &Page[T]{Items: items}

	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}

	if page.HasMore && limit > 0 {
		page.NextCursor = FormatCursor(seq(page.Items[limit-1]))
	}

	if page.Items == nil {
		page.Items = []T{}
	}

	return page
}

// FormatCursor returns the opaque cursor for sequence number seq.
func FormatCursor(seq uint64) string {
	return base64.RawURLEncoding.EncodeToString(strconv.AppendUint([]byte(cursorPrefix), seq, 10))
}

// ParseCursor reverses FormatCursor. An empty cursor is the first page.
func ParseCursor(cursor string) (uint64, error) {
	if cursor == "" {
		return 0, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	digits, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, ErrInvalidCursor
	}

	seq, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	return seq, nil
}
