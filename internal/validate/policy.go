// Package validate implements the prescription validation and normalization
// engine.
//
// The engine takes the untyped candidate record produced by the extraction
// stage and turns it into a typed, clinically plausible record. Every
// correction or rejection is recorded as a human-readable note; malformed
// input never produces an error, only a null field plus a note. Validation
// is deterministic and free of I/O so the same candidate and policy always
// yield the same result.
//
// Field rules:
//   - Sphere/cylinder powers must lie in a hard range and on the 0.25
//     diopter grid; near-grid values are snapped with a note.
//   - Add power shares the grid rules, must be positive, and is flagged but
//     kept when outside the typical reading-addition band.
//   - Axis requires a present, non-zero cylinder and 0-180 degrees.
//   - Pupillary distance accepts single or "OD/OS" dual values in the
//     typical adult range.
//   - Dates are normalized to ISO YYYY-MM-DD from a fixed layout list.
package validate

// PowerPolicy bounds one dioptric power field.
type PowerPolicy struct {
	Min       float64 // Lowest accepted power
	Max       float64 // Highest accepted power
	Step      float64 // Quantization grid step
	Tolerance float64 // Max delta for snapping off-grid values to the step
}

// BandPolicy is a soft or hard numeric band, depending on the field.
type BandPolicy struct {
	Min float64
	Max float64
}

// Policy carries every bound the engine applies. It is passed at
// construction and never mutated; there is no package-level state.
type Policy struct {
	Sphere   PowerPolicy
	Cylinder PowerPolicy
	Add      PowerPolicy

	// AddTypical is the reading-addition band; values outside it are kept
	// but flagged.
	AddTypical BandPolicy

	// Axis bounds in degrees, inclusive.
	AxisMin int
	AxisMax int

	// Distance is the pupillary distance band in millimeters; parts outside
	// it are dropped.
	Distance BandPolicy

	// DateLayouts are tried in order; the first match wins.
	DateLayouts []string
}

// DefaultPolicy returns the standard clinical bounds: powers in -20..+20 on
// a 0.25 grid with 0.05 snap tolerance, add typically 0.75-3.50, axis
// 0-180, pupillary distance 50-75mm.
func DefaultPolicy() Policy {
	power := PowerPolicy{Min: -20, Max: 20, Step: 0.25, Tolerance: 0.05}
	return Policy{
		Sphere:     power,
		Cylinder:   power,
		Add:        power,
		AddTypical: BandPolicy{Min: 0.75, Max: 3.50},
		AxisMin:    0,
		AxisMax:    180,
		Distance:   BandPolicy{Min: 50, Max: 75},
		DateLayouts: []string{
			"01/02/2006", "01-02-2006", // MM/DD/YYYY
			"02/01/2006", "02-01-2006", // DD/MM/YYYY
			"2006/01/02", "2006-01-02", // YYYY/MM/DD
			"01/02/06", "01-02-06", // MM/DD/YY
			"02/01/06", "02-01-06", // DD/MM/YY
		},
	}
}
