package validate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Note records one correction or rejection event during validation.
type Note struct {
	Kind NoteKind
	Text string
}

// NoteKind classifies why a note was emitted. Kinds feed metrics labels;
// the note text is what operators read.
type NoteKind string

const (
	// KindUnparseable marks a value that could not be coerced at all.
	KindUnparseable NoteKind = "unparseable_value"
	// KindOutOfRange marks a mechanically impossible value.
	KindOutOfRange NoteKind = "out_of_range"
	// KindOffGrid marks a power too far from the 0.25 grid to correct.
	KindOffGrid NoteKind = "off_grid_uncorrectable"
	// KindRounded marks a power snapped to the nearest grid step.
	KindRounded NoteKind = "rounded"
	// KindDependent marks a field voided by another field, such as an axis
	// without a usable cylinder.
	KindDependent NoteKind = "dependent_field_invalid"
	// KindAtypical marks a value kept despite falling outside its typical
	// clinical band.
	KindAtypical NoteKind = "atypical_value"
)

// Float attempts best-effort numeric coercion of a candidate value.
// Extraction models emit numbers or numeric strings interchangeably, so
// both are accepted; null, empty, and non-numeric input return ok=false.
// Float never returns an error.
func Float(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// formatNum renders a float the shortest way that round-trips, so notes
// read "2.5" and "-20" rather than "2.500000".
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatSigned is formatNum with an explicit plus sign on positives, for
// range bounds like "+20".
func formatSigned(v float64) string {
	if v > 0 {
		return "+" + formatNum(v)
	}
	return formatNum(v)
}

// display renders a raw candidate value for use in a note.
func display(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return formatNum(v)
	default:
		return fmt.Sprintf("%v", raw)
	}
}
