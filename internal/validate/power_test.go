package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/validate"
)

func TestGridPowerValidator(t *testing.T) {
	v := validate.NewGridPowerValidator(validate.DefaultPolicy().Sphere)

	tests := []struct {
		name  string
		raw   any
		want  *float64
		notes []string
	}{
		{name: "absent value", raw: nil, want: nil},
		{name: "on-grid float", raw: -2.25, want: fptr(-2.25)},
		{name: "on-grid string", raw: "-2.25", want: fptr(-2.25)},
		{name: "on-grid string with spaces", raw: " 1.75 ", want: fptr(1.75)},
		{name: "zero", raw: 0.0, want: fptr(0)},
		{name: "lower bound", raw: -20.0, want: fptr(-20)},
		{name: "upper bound", raw: 20.0, want: fptr(20)},
		{
			name:  "below range",
			raw:   -25.0,
			notes: []string{"right_eye sphere -25 out of range (-20 to +20)"},
		},
		{
			name:  "above range",
			raw:   "21",
			notes: []string{"right_eye sphere 21 out of range (-20 to +20)"},
		},
		{
			name:  "near grid rounds down",
			raw:   2.26,
			want:  fptr(2.25),
			notes: []string{"right_eye sphere 2.26 rounded to 2.25"},
		},
		{
			name:  "near grid rounds negative",
			raw:   -2.3,
			want:  fptr(-2.25),
			notes: []string{"right_eye sphere -2.3 rounded to -2.25"},
		},
		{
			name:  "too far off grid",
			raw:   2.6,
			notes: []string{"right_eye sphere 2.6 not valid multiple of 0.25"},
		},
		{
			name:  "unparseable string",
			raw:   "abc",
			notes: []string{"right_eye sphere invalid format: abc"},
		},
		{
			name:  "empty string",
			raw:   "",
			notes: []string{"right_eye sphere invalid format: "},
		},
		{
			name:  "boolean",
			raw:   true,
			notes: []string{"right_eye sphere invalid format: true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notes := v.Validate("right_eye sphere", tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.InDelta(t, *tt.want, *got, 1e-9)
			}
			assert.Equal(t, tt.notes, noteTexts(notes))
		})
	}
}

func TestGridPowerValidatorRangeBeforeGrid(t *testing.T) {
	v := validate.NewGridPowerValidator(validate.DefaultPolicy().Sphere)

	// -25.1 is both out of range and off grid; only the range note fires.
	got, notes := v.Validate("left_eye cylinder", -25.1)
	assert.Nil(t, got)
	require.Len(t, notes, 1)
	assert.Equal(t, validate.KindOutOfRange, notes[0].Kind)
}

func TestAddPowerValidator(t *testing.T) {
	p := validate.DefaultPolicy()
	v := validate.NewAddPowerValidator(p.Add, p.AddTypical)

	tests := []struct {
		name  string
		raw   any
		want  *float64
		notes []string
	}{
		{name: "absent value", raw: nil, want: nil},
		{name: "typical add", raw: 2.0, want: fptr(2)},
		{name: "typical add string", raw: "2.25", want: fptr(2.25)},
		{name: "band bounds inclusive low", raw: 0.75, want: fptr(0.75)},
		{name: "band bounds inclusive high", raw: 3.5, want: fptr(3.5)},
		{
			name:  "negative rejected",
			raw:   -1.5,
			notes: []string{"left_eye add -1.5 should be positive"},
		},
		{
			name:  "below typical band kept",
			raw:   0.5,
			want:  fptr(0.5),
			notes: []string{"left_eye add 0.5 outside typical range (0.75-3.50)"},
		},
		{
			name:  "above typical band kept",
			raw:   4.0,
			want:  fptr(4),
			notes: []string{"left_eye add 4 outside typical range (0.75-3.50)"},
		},
		{
			name:  "zero kept with flag",
			raw:   0.0,
			want:  fptr(0),
			notes: []string{"left_eye add 0 outside typical range (0.75-3.50)"},
		},
		{
			name: "rounded then flagged",
			raw:  0.52,
			want: fptr(0.5),
			notes: []string{
				"left_eye add 0.52 rounded to 0.5",
				"left_eye add 0.5 outside typical range (0.75-3.50)",
			},
		},
		{
			name:  "hard range still applies",
			raw:   25.0,
			notes: []string{"left_eye add 25 out of range (-20 to +20)"},
		},
		{
			name:  "unparseable",
			raw:   "high",
			notes: []string{"left_eye add invalid format: high"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notes := v.Validate("left_eye add", tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.InDelta(t, *tt.want, *got, 1e-9)
			}
			assert.Equal(t, tt.notes, noteTexts(notes))
		})
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
		ok   bool
	}{
		{name: "nil", raw: nil, ok: false},
		{name: "float64", raw: -2.25, want: -2.25, ok: true},
		{name: "int", raw: 90, want: 90, ok: true},
		{name: "int64", raw: int64(-3), want: -3, ok: true},
		{name: "numeric string", raw: "1.5", want: 1.5, ok: true},
		{name: "padded string", raw: "  -0.75\t", want: -0.75, ok: true},
		{name: "scientific string", raw: "1e1", want: 10, ok: true},
		{name: "empty string", raw: "", ok: false},
		{name: "blank string", raw: "   ", ok: false},
		{name: "garbage string", raw: "plano", ok: false},
		{name: "comma decimal", raw: "2,5", ok: false},
		{name: "boolean", raw: true, ok: false},
		{name: "slice", raw: []string{"1"}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := validate.Float(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

// noteTexts flattens notes for comparison against expected strings.
func noteTexts(notes []validate.Note) []string {
	if len(notes) == 0 {
		return nil
	}
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Text
	}
	return out
}

func fptr(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }

func sptr(v string) *string { return &v }
