package validate

import (
	"fmt"
	"math"
)

// AxisValidator checks the cylinder axis of one eye against the validated
// cylinder it belongs to.
type AxisValidator interface {
	Validate(eye string, raw any, cylinder *float64) (*int, []Note)
}

// CylinderAxisValidator validates axis degrees. An axis only means
// something when the same eye carries a non-zero cylinder, so the cylinder
// dependency is checked before the value itself; whatever the candidate
// axis says, a zero or rejected cylinder voids it.
type CylinderAxisValidator struct {
	min int
	max int
}

// NewCylinderAxisValidator returns a validator for the given inclusive
// degree range.
func NewCylinderAxisValidator(min, max int) *CylinderAxisValidator {
	return &CylinderAxisValidator{min: min, max: max}
}

// Validate applies the axis rules to one candidate value. Fractional
// degrees are truncated toward zero.
func (c *CylinderAxisValidator) Validate(eye string, raw any, cylinder *float64) (*int, []Note) {
	if raw == nil {
		return nil, nil
	}

	if cylinder == nil || *cylinder == 0 {
		return nil, []Note{{
			Kind: KindDependent,
			Text: fmt.Sprintf("%s axis invalid (cylinder is 0)", eye),
		}}
	}

	v, ok := Float(raw)
	if !ok {
		return nil, []Note{{
			Kind: KindUnparseable,
			Text: fmt.Sprintf("%s axis invalid format: %s", eye, display(raw)),
		}}
	}

	deg := int(math.Trunc(v))
	if deg < c.min || deg > c.max {
		return nil, []Note{{
			Kind: KindOutOfRange,
			Text: fmt.Sprintf("%s axis %d out of range (%d-%d)", eye, deg, c.min, c.max),
		}}
	}

	return &deg, nil
}
