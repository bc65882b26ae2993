package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/pkg/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "plain sheet URL",
			url:  "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
			want: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
		},
		{
			name: "URL with edit fragment",
			url:  "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit#gid=0",
			want: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
		},
		{
			name:    "not a sheets URL",
			url:     "https://example.com/some/other/path",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractSpreadsheetID(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLedgerRow(t *testing.T) {
	result := &models.ProcessingResult{
		Status:  models.StatusOK,
		Message: "Prescription extracted successfully",
		Data: &models.ValidatedRecord{
			RightEye: &models.ValidatedEye{
				Sphere:   floatPtr(-2.25),
				Cylinder: floatPtr(-0.75),
				Axis:     intPtr(90),
			},
			LeftEye: &models.ValidatedEye{
				Sphere: floatPtr(-2.0),
				Add:    floatPtr(2.0),
			},
			PupillaryDistance: "62/60",
			DoctorName:        strPtr("Dr. Smith"),
			Date:              "2024-01-15",
		},
		Diagnostics: map[string]any{
			models.DiagValidationStatus: models.ValidationWarnings,
			models.DiagValidationNotes:  []string{"right_eye add 0.5 outside typical range (0.75-3.50)", "PD 80 outside typical range (50-75mm)"},
		},
	}

	row := NewLedgerRow("scan.jpg", result)

	assert.Equal(t, "scan.jpg", row.File)
	assert.Equal(t, "2024-01-15", row.ExamDate)
	assert.Equal(t, "Dr. Smith", row.Doctor)
	assert.Equal(t, -2.25, row.RightEye.Sphere)
	assert.Equal(t, -0.75, row.RightEye.Cylinder)
	assert.Equal(t, 90, row.RightEye.Axis)
	assert.Equal(t, "", row.RightEye.Add)
	assert.Equal(t, -2.0, row.LeftEye.Sphere)
	assert.Equal(t, 2.0, row.LeftEye.Add)
	assert.Equal(t, "62/60", row.PD)
	assert.Equal(t, models.StatusOK, row.Status)
	assert.Equal(t, models.ValidationWarnings, row.Validation)
	assert.Equal(t, "right_eye add 0.5 outside typical range (0.75-3.50); PD 80 outside typical range (50-75mm)", row.Notes)
	assert.NotEmpty(t, row.ProcessedAt)
}

func TestNewLedgerRowWithoutData(t *testing.T) {
	result := &models.ProcessingResult{
		Status:  models.StatusReuploadRequired,
		Message: "OCR text is empty. Please upload a clearer image.",
	}

	row := NewLedgerRow("blurry.png", result)

	assert.Equal(t, "blurry.png", row.File)
	assert.Equal(t, models.StatusReuploadRequired, row.Status)
	assert.Equal(t, "OCR text is empty. Please upload a clearer image.", row.Message)
	assert.Equal(t, "", row.ExamDate)
	assert.Equal(t, "", row.Doctor)
	assert.Equal(t, "", row.RightEye.Sphere)
	assert.Equal(t, "", row.PD)
	assert.Equal(t, "", row.Validation)
}

func TestNewLedgerRowNotesFromDecodedJSON(t *testing.T) {
	// Envelopes loaded back from disk carry notes as []interface{}.
	result := &models.ProcessingResult{
		Status: models.StatusOK,
		Diagnostics: map[string]any{
			models.DiagValidationNotes: []any{"left_eye sphere -1.3 rounded to -1.25"},
		},
	}

	row := NewLedgerRow("scan.jpg", result)

	assert.Equal(t, "left_eye sphere -1.3 rounded to -1.25", row.Notes)
}

func TestLedgerRowValuesMatchHeaders(t *testing.T) {
	row := NewLedgerRow("scan.jpg", &models.ProcessingResult{Status: models.StatusOK})
	values := row.values()

	require.Len(t, values, len(ledgerHeaders))
	assert.Equal(t, "scan.jpg", values[0])
	assert.Equal(t, models.StatusOK, values[12])
	assert.Equal(t, row.ProcessedAt, values[len(values)-1])
}
