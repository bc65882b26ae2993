package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DistanceParser checks the pupillary distance field.
type DistanceParser interface {
	// Parse returns an int (single measurement), an "int/int" string
	// (per-eye measurements), or nil.
	Parse(raw any) (any, []Note)
}

// SplitDistanceParser parses single or slash-separated dual pupillary
// distance values. Parts outside the typical band are dropped with a note;
// one unparseable part voids the whole value, there is no partial recovery
// from garbage.
type SplitDistanceParser struct {
	band BandPolicy
}

// NewSplitDistanceParser returns a parser for the given millimeter band.
func NewSplitDistanceParser(band BandPolicy) *SplitDistanceParser {
	return &SplitDistanceParser{band: band}
}

// Parse applies the pupillary distance rules to one candidate value.
func (s *SplitDistanceParser) Parse(raw any) (any, []Note) {
	if raw == nil {
		return nil, nil
	}

	str := strings.TrimSpace(display(raw))

	var parts []string
	if strings.Contains(str, "/") {
		for _, p := range strings.Split(str, "/") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	} else {
		parts = []string{str}
	}

	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, []Note{{
				Kind: KindUnparseable,
				Text: fmt.Sprintf("PD invalid format: %s", display(raw)),
			}}
		}
		values = append(values, v)
	}

	var kept []float64
	var notes []Note
	for _, v := range values {
		if v < s.band.Min || v > s.band.Max {
			notes = append(notes, Note{
				Kind: KindOutOfRange,
				Text: fmt.Sprintf("PD %s outside typical range (%s-%smm)", formatNum(v), formatNum(s.band.Min), formatNum(s.band.Max)),
			})
			continue
		}
		kept = append(kept, v)
	}

	switch len(kept) {
	case 0:
		return nil, notes
	case 1:
		return int(math.Trunc(kept[0])), notes
	default:
		joined := make([]string, len(kept))
		for i, v := range kept {
			joined[i] = strconv.Itoa(int(math.Trunc(v)))
		}
		return strings.Join(joined, "/"), notes
	}
}
