package validate

import (
	"fmt"
	"strings"
	"time"
)

// isoDate is the canonical output layout for prescription dates.
const isoDate = "2006-01-02"

// DateNormalizer normalizes prescription dates to ISO form.
type DateNormalizer interface {
	// Normalize returns the canonical date string, the raw value when no
	// layout matched, or nil.
	Normalize(raw any) (any, []Note)
}

// LayoutDateNormalizer tries a fixed, ordered list of date layouts; the
// first full match wins and is rewritten as YYYY-MM-DD. There is no locale
// inference and no partial matching. An unmatched value passes through
// unchanged, flagged with a note, so the original text is never lost.
type LayoutDateNormalizer struct {
	layouts []string
}

// NewLayoutDateNormalizer returns a normalizer for the given layouts.
func NewLayoutDateNormalizer(layouts []string) *LayoutDateNormalizer {
	return &LayoutDateNormalizer{layouts: layouts}
}

// Normalize applies the date rules to one candidate value.
func (l *LayoutDateNormalizer) Normalize(raw any) (any, []Note) {
	if raw == nil {
		return nil, nil
	}

	str := strings.TrimSpace(display(raw))
	for _, layout := range l.layouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t.Format(isoDate), nil
		}
	}

	return raw, []Note{{
		Kind: KindUnparseable,
		Text: fmt.Sprintf("Date %s could not be parsed to ISO format", display(raw)),
	}}
}
