package validate

import (
	"fmt"
	"math"
)

// gridEpsilon is the slack for deciding a value already sits on the grid.
// Values whose step remainder is below it count as exact despite binary
// float representation.
const gridEpsilon = 0.01

// PowerValidator checks one dioptric power field. A nil result means the
// value was absent or rejected; every rejection and correction is explained
// by a note.
type PowerValidator interface {
	Validate(field string, raw any) (*float64, []Note)
}

// GridPowerValidator validates sphere and cylinder powers: coercible,
// inside the hard range, and on the quantization grid. Off-grid values
// within the snap tolerance are rounded to the nearest step with a note;
// anything further off is rejected.
type GridPowerValidator struct {
	policy PowerPolicy
}

// NewGridPowerValidator returns a validator bound to the given bounds.
func NewGridPowerValidator(policy PowerPolicy) *GridPowerValidator {
	return &GridPowerValidator{policy: policy}
}

// Validate applies the power rules to one candidate value.
func (g *GridPowerValidator) Validate(field string, raw any) (*float64, []Note) {
	if raw == nil {
		return nil, nil
	}

	v, ok := Float(raw)
	if !ok {
		return nil, []Note{{
			Kind: KindUnparseable,
			Text: fmt.Sprintf("%s invalid format: %s", field, display(raw)),
		}}
	}

	// Range before grid: a wildly out-of-range value carries no usable
	// grid information.
	if v < g.policy.Min || v > g.policy.Max {
		return nil, []Note{{
			Kind: KindOutOfRange,
			Text: fmt.Sprintf("%s %s out of range (%s to %s)", field, formatNum(v), formatNum(g.policy.Min), formatSigned(g.policy.Max)),
		}}
	}

	// Floored modulus keeps the remainder in [0,1) for negative powers too.
	rem := math.Mod(v/g.policy.Step, 1)
	if rem < 0 {
		rem++
	}
	if rem < gridEpsilon {
		return &v, nil
	}

	rounded := math.Round(v/g.policy.Step) * g.policy.Step
	if math.Abs(rounded-v) <= g.policy.Tolerance {
		return &rounded, []Note{{
			Kind: KindRounded,
			Text: fmt.Sprintf("%s %s rounded to %s", field, formatNum(v), formatNum(rounded)),
		}}
	}

	return nil, []Note{{
		Kind: KindOffGrid,
		Text: fmt.Sprintf("%s %s not valid multiple of %s", field, formatNum(v), formatNum(g.policy.Step)),
	}}
}

// AddPowerValidator validates the near-vision addition. It shares the grid
// rules, then rejects negative values and flags values outside the typical
// reading-addition band. Atypical values are kept: the band is clinical
// convention, not a mechanical limit.
type AddPowerValidator struct {
	grid    *GridPowerValidator
	typical BandPolicy
}

// NewAddPowerValidator returns an add validator with the given grid bounds
// and typical band.
func NewAddPowerValidator(policy PowerPolicy, typical BandPolicy) *AddPowerValidator {
	return &AddPowerValidator{
		grid:    NewGridPowerValidator(policy),
		typical: typical,
	}
}

// Validate applies the add rules to one candidate value.
func (a *AddPowerValidator) Validate(field string, raw any) (*float64, []Note) {
	v, notes := a.grid.Validate(field, raw)
	if v == nil {
		return nil, notes
	}

	if *v < 0 {
		notes = append(notes, Note{
			Kind: KindOutOfRange,
			Text: fmt.Sprintf("%s %s should be positive", field, formatNum(*v)),
		})
		return nil, notes
	}

	if *v < a.typical.Min || *v > a.typical.Max {
		notes = append(notes, Note{
			Kind: KindAtypical,
			Text: fmt.Sprintf("%s %s outside typical range (%.2f-%.2f)", field, formatNum(*v), a.typical.Min, a.typical.Max),
		})
	}

	return v, notes
}
