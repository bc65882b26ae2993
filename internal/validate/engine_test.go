package validate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/validate"
	"rxscan/pkg/models"
)

func TestEngineValidateRecordClean(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	rec, notes := e.ValidateRecord(&models.CandidateRecord{
		RightEye:          &models.CandidateEye{Sphere: "-2.25", Cylinder: "-0.75", Axis: 90.0, Add: nil},
		LeftEye:           &models.CandidateEye{Sphere: -2.0, Cylinder: nil, Axis: nil, Add: "2.00"},
		PupillaryDistance: "62/60",
		DoctorName:        "Dr. Smith",
		Date:              "01/15/2024",
	})

	require.NotNil(t, rec)
	assert.Empty(t, notes)

	assert.Equal(t, &models.ValidatedEye{Sphere: fptr(-2.25), Cylinder: fptr(-0.75), Axis: iptr(90)}, rec.RightEye)
	assert.Equal(t, &models.ValidatedEye{Sphere: fptr(-2), Add: fptr(2)}, rec.LeftEye)
	assert.Equal(t, "62/60", rec.PupillaryDistance)
	assert.Equal(t, sptr("Dr. Smith"), rec.DoctorName)
	assert.Equal(t, "2024-01-15", rec.Date)
}

func TestEngineValidateRecordNoteOrder(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	// One problem in every field category; notes must follow examination
	// order: right eye, left eye, pupillary distance, date.
	rec, notes := e.ValidateRecord(&models.CandidateRecord{
		RightEye:          &models.CandidateEye{Sphere: "bad", Cylinder: -30.0, Axis: 95.0, Add: 0.5},
		LeftEye:           &models.CandidateEye{Sphere: -2.25, Cylinder: 0.0, Axis: 175.0},
		PupillaryDistance: "90/60",
		Date:              "junk",
	})

	assert.Equal(t, []string{
		"right_eye sphere invalid format: bad",
		"right_eye cylinder -30 out of range (-20 to +20)",
		"right_eye axis invalid (cylinder is 0)",
		"right_eye add 0.5 outside typical range (0.75-3.50)",
		"left_eye axis invalid (cylinder is 0)",
		"PD 90 outside typical range (50-75mm)",
		"Date junk could not be parsed to ISO format",
	}, noteTexts(notes))

	require.NotNil(t, rec)
	assert.Equal(t, &models.ValidatedEye{Add: fptr(0.5)}, rec.RightEye)
	assert.Equal(t, &models.ValidatedEye{Sphere: fptr(-2.25), Cylinder: fptr(0)}, rec.LeftEye)
	assert.Equal(t, 60, rec.PupillaryDistance)
	assert.Equal(t, "junk", rec.Date)
}

func TestEngineValidateRecordAbsentParts(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	rec, notes := e.ValidateRecord(&models.CandidateRecord{
		RightEye: &models.CandidateEye{Sphere: -1.25},
	})

	assert.Empty(t, notes)
	require.NotNil(t, rec)
	assert.Equal(t, &models.ValidatedEye{Sphere: fptr(-1.25)}, rec.RightEye)
	assert.Nil(t, rec.LeftEye)
	assert.Nil(t, rec.PupillaryDistance)
	assert.Nil(t, rec.DoctorName)
	assert.Nil(t, rec.Date)
}

func TestEngineValidateRecordDoctorName(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	rec, _ := e.ValidateRecord(&models.CandidateRecord{DoctorName: "Dr. Jane Roe"})
	assert.Equal(t, sptr("Dr. Jane Roe"), rec.DoctorName)

	rec, notes := e.ValidateRecord(&models.CandidateRecord{DoctorName: 42.0})
	assert.Nil(t, rec.DoctorName)
	assert.Empty(t, notes)
}

func TestEngineValidateRecordNil(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	rec, notes := e.ValidateRecord(nil)
	assert.Nil(t, rec)
	assert.Nil(t, notes)
}

func TestEngineEndToEndScenario(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	out, sum := e.ValidateResult(&models.ExtractionResult{
		Status:  models.StatusOK,
		Message: "extracted",
		Data: &models.CandidateRecord{
			RightEye: &models.CandidateEye{Sphere: -2.27, Cylinder: -1.5, Axis: 95.0},
			LeftEye:  &models.CandidateEye{Sphere: -2.25, Cylinder: 0.0, Axis: 175.0},
		},
	})

	require.NotNil(t, out)
	assert.Equal(t, models.ValidationWarnings, sum.Status)
	assert.Equal(t, []string{
		"right_eye sphere -2.27 rounded to -2.25",
		"left_eye axis invalid (cylinder is 0)",
	}, sum.Notes)

	assert.Equal(t, &models.ValidatedEye{Sphere: fptr(-2.25), Cylinder: fptr(-1.5), Axis: iptr(95)}, out.Data.RightEye)
	assert.Equal(t, &models.ValidatedEye{Sphere: fptr(-2.25), Cylinder: fptr(0)}, out.Data.LeftEye)

	assert.Equal(t, sum.Notes, out.Diagnostics[models.DiagValidationNotes])
	assert.Equal(t, models.ValidationWarnings, out.Diagnostics[models.DiagValidationStatus])
}

func TestEngineValidateResultPassthrough(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	in := &models.ExtractionResult{
		Status:  models.StatusReuploadRequired,
		Message: "OCR text is empty. Please upload a clearer image.",
		Diagnostics: map[string]any{
			models.DiagConfidence: "low",
		},
	}

	out, sum := e.ValidateResult(in)

	require.NotNil(t, out)
	assert.Equal(t, models.StatusReuploadRequired, out.Status)
	assert.Equal(t, in.Message, out.Message)
	assert.Nil(t, out.Data)
	assert.Equal(t, models.ValidationPassed, sum.Status)
	assert.Empty(t, sum.Notes)

	// The envelope passes through untouched: no validation keys appear.
	assert.Equal(t, map[string]any{models.DiagConfidence: "low"}, out.Diagnostics)
	assert.NotContains(t, out.Diagnostics, models.DiagValidationStatus)
}

func TestEngineValidateResultAugmentsDiagnostics(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	in := &models.ExtractionResult{
		Status: models.StatusNeedsReview,
		Data:   &models.CandidateRecord{RightEye: &models.CandidateEye{Sphere: -2.25}},
		Diagnostics: map[string]any{
			models.DiagUncertainFields: []any{"right_eye.sphere"},
			models.DiagConfidence:      "medium",
			"model_version":            "v3",
		},
	}

	out, sum := e.ValidateResult(in)

	assert.Equal(t, models.ValidationPassed, sum.Status)

	// Upstream keys survive, including ones this system never wrote.
	assert.Equal(t, []any{"right_eye.sphere"}, out.Diagnostics[models.DiagUncertainFields])
	assert.Equal(t, "medium", out.Diagnostics[models.DiagConfidence])
	assert.Equal(t, "v3", out.Diagnostics["model_version"])
	assert.Equal(t, []string{}, out.Diagnostics[models.DiagValidationNotes])
	assert.Equal(t, models.ValidationPassed, out.Diagnostics[models.DiagValidationStatus])

	// The input envelope is never mutated.
	assert.NotContains(t, in.Diagnostics, models.DiagValidationNotes)
	assert.NotContains(t, in.Diagnostics, models.DiagValidationStatus)
}

func TestEngineValidateResultNilDiagnostics(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	out, _ := e.ValidateResult(&models.ExtractionResult{
		Status: models.StatusOK,
		Data:   &models.CandidateRecord{},
	})

	require.NotNil(t, out.Diagnostics)
	assert.Equal(t, []string{}, out.Diagnostics[models.DiagValidationNotes])
	assert.Equal(t, models.ValidationPassed, out.Diagnostics[models.DiagValidationStatus])
}

func TestEngineIdempotent(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	first, notes := e.ValidateRecord(&models.CandidateRecord{
		RightEye:          &models.CandidateEye{Sphere: "-2.27", Cylinder: "-1.53", Axis: "95"},
		PupillaryDistance: "90/60",
		Date:              "1/15/24",
	})
	require.NotEmpty(t, notes)

	second, secondNotes := e.ValidateRecord(candidateFromValidated(first))
	assert.Equal(t, first, second)
	assert.Empty(t, secondNotes)
}

func TestEngineIdempotentAtypicalAdd(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	// An atypical add is kept with a flag, so revalidation keeps the value
	// and repeats exactly that flag.
	first, notes := e.ValidateRecord(&models.CandidateRecord{
		RightEye: &models.CandidateEye{Add: 0.52},
	})
	require.Len(t, notes, 2)

	second, secondNotes := e.ValidateRecord(candidateFromValidated(first))
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"right_eye add 0.5 outside typical range (0.75-3.50)"}, noteTexts(secondNotes))
}

func TestEngineValidateResultJSON(t *testing.T) {
	e := validate.NewEngine(validate.DefaultPolicy())

	input := `{
		"status": "ok",
		"message": "Prescription extracted",
		"data": {
			"right_eye": {"sphere": "-2.25", "cylinder": "-0.75", "axis": 90, "add": null},
			"left_eye": {"sphere": "-2.00", "cylinder": null, "axis": null, "add": "2.00"},
			"pupillary_distance": "62/60",
			"doctor_name": "Dr. Smith",
			"date": "01/15/2024"
		},
		"diagnostics": {"uncertain_fields": [], "reasons": {}, "confidence": "high"}
	}`

	var envelope models.ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(input), &envelope))

	out, _ := e.ValidateResult(&envelope)
	got, err := json.Marshal(out)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"status": "ok",
		"message": "Prescription extracted",
		"data": {
			"right_eye": {"sphere": -2.25, "cylinder": -0.75, "axis": 90, "add": null},
			"left_eye": {"sphere": -2, "cylinder": null, "axis": null, "add": 2},
			"pupillary_distance": "62/60",
			"doctor_name": "Dr. Smith",
			"date": "2024-01-15"
		},
		"diagnostics": {
			"uncertain_fields": [],
			"reasons": {},
			"confidence": "high",
			"validation_notes": [],
			"validation_status": "passed"
		}
	}`, string(got))
}

func TestSummarize(t *testing.T) {
	sum := validate.Summarize(nil)
	assert.Equal(t, models.ValidationPassed, sum.Status)
	assert.NotNil(t, sum.Notes)
	assert.Empty(t, sum.Notes)

	sum = validate.Summarize([]validate.Note{{Kind: validate.KindRounded, Text: "rounded"}})
	assert.Equal(t, models.ValidationWarnings, sum.Status)
	assert.Equal(t, []string{"rounded"}, sum.Notes)
}

// candidateFromValidated feeds a validated record back in as a candidate,
// the shape a second validation pass would see.
func candidateFromValidated(rec *models.ValidatedRecord) *models.CandidateRecord {
	out := &models.CandidateRecord{
		PupillaryDistance: rec.PupillaryDistance,
		Date:              rec.Date,
	}
	if rec.DoctorName != nil {
		out.DoctorName = *rec.DoctorName
	}
	if rec.RightEye != nil {
		out.RightEye = candidateEye(rec.RightEye)
	}
	if rec.LeftEye != nil {
		out.LeftEye = candidateEye(rec.LeftEye)
	}
	return out
}

func candidateEye(eye *models.ValidatedEye) *models.CandidateEye {
	out := &models.CandidateEye{}
	if eye.Sphere != nil {
		out.Sphere = *eye.Sphere
	}
	if eye.Cylinder != nil {
		out.Cylinder = *eye.Cylinder
	}
	if eye.Axis != nil {
		out.Axis = float64(*eye.Axis)
	}
	if eye.Add != nil {
		out.Add = *eye.Add
	}
	return out
}
