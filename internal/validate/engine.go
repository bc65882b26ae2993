package validate

import (
	"github.com/rs/zerolog"

	"rxscan/internal/logger"
	"rxscan/pkg/metrics"
	"rxscan/pkg/models"
)

// Engine runs the full validation pass over a candidate record. It holds
// one validator per field category; tests and future field types can swap
// any of them through NewEngineWithValidators.
type Engine struct {
	sphere   PowerValidator
	cylinder PowerValidator
	add      PowerValidator
	axis     AxisValidator
	distance DistanceParser
	date     DateNormalizer
	log      zerolog.Logger
}

// NewEngine creates an engine with the default validator implementations
// bound to the given policy.
func NewEngine(policy Policy) *Engine {
	return NewEngineWithValidators(
		NewGridPowerValidator(policy.Sphere),
		NewGridPowerValidator(policy.Cylinder),
		NewAddPowerValidator(policy.Add, policy.AddTypical),
		NewCylinderAxisValidator(policy.AxisMin, policy.AxisMax),
		NewSplitDistanceParser(policy.Distance),
		NewLayoutDateNormalizer(policy.DateLayouts),
	)
}

// NewEngineWithValidators creates an engine with explicit validator
// implementations.
func NewEngineWithValidators(sphere, cylinder, add PowerValidator, axis AxisValidator, distance DistanceParser, date DateNormalizer) *Engine {
	return &Engine{
		sphere:   sphere,
		cylinder: cylinder,
		add:      add,
		axis:     axis,
		distance: distance,
		date:     date,
		log:      logger.WithComponent("validation"),
	}
}

// ValidateRecord validates one candidate record into a typed record plus
// the ordered note list. Notes follow examination order: right eye before
// left, sphere/cylinder/axis/add within an eye, then pupillary distance,
// then date. Absent eyes and fields stay nil without notes.
func (e *Engine) ValidateRecord(rec *models.CandidateRecord) (*models.ValidatedRecord, []Note) {
	if rec == nil {
		return nil, nil
	}

	out := &models.ValidatedRecord{}
	var notes []Note

	out.RightEye, notes = e.validateEye("right_eye", rec.RightEye, notes)
	out.LeftEye, notes = e.validateEye("left_eye", rec.LeftEye, notes)

	pd, pdNotes := e.distance.Parse(rec.PupillaryDistance)
	out.PupillaryDistance = pd
	notes = append(notes, pdNotes...)

	// Doctor names pass through untouched; there is no name validation.
	if name, ok := rec.DoctorName.(string); ok {
		out.DoctorName = &name
	}

	date, dateNotes := e.date.Normalize(rec.Date)
	out.Date = date
	notes = append(notes, dateNotes...)

	for _, n := range notes {
		metrics.RecordValidationNote(string(n.Kind))
		e.log.Debug().Str("kind", string(n.Kind)).Msg(n.Text)
	}

	return out, notes
}

// validateEye validates the four fields of one eye. The axis check uses
// the validated cylinder, not the raw candidate, so a corrected or
// rejected cylinder is what decides whether an axis is meaningful.
func (e *Engine) validateEye(eye string, in *models.CandidateEye, notes []Note) (*models.ValidatedEye, []Note) {
	if in == nil {
		return nil, notes
	}

	out := &models.ValidatedEye{}
	var ns []Note

	out.Sphere, ns = e.sphere.Validate(eye+" sphere", in.Sphere)
	notes = append(notes, ns...)

	out.Cylinder, ns = e.cylinder.Validate(eye+" cylinder", in.Cylinder)
	notes = append(notes, ns...)

	out.Axis, ns = e.axis.Validate(eye, in.Axis, out.Cylinder)
	notes = append(notes, ns...)

	out.Add, ns = e.add.Validate(eye+" add", in.Add)
	notes = append(notes, ns...)

	return out, notes
}

// ValidateResult applies the engine to a whole extraction envelope. An
// envelope without a data container passes through unchanged: there is
// nothing to validate and the upstream status (for example
// reupload_required) already tells the caller what happened. Otherwise the
// candidate data is replaced by the validated record and the diagnostics
// are augmented, never replaced, with the note list and validation status.
func (e *Engine) ValidateResult(in *models.ExtractionResult) (*models.ProcessingResult, models.ValidationSummary) {
	if in == nil {
		return nil, Summarize(nil)
	}

	if in.Data == nil {
		return &models.ProcessingResult{
			Status:      in.Status,
			Message:     in.Message,
			Diagnostics: cloneDiagnostics(in.Diagnostics),
		}, Summarize(nil)
	}

	rec, notes := e.ValidateRecord(in.Data)
	sum := Summarize(notes)

	diag := cloneDiagnostics(in.Diagnostics)
	if diag == nil {
		diag = map[string]any{}
	}
	diag[models.DiagValidationNotes] = sum.Notes
	diag[models.DiagValidationStatus] = sum.Status

	e.log.Info().
		Str("validation_status", sum.Status).
		Int("notes", len(sum.Notes)).
		Msg("Prescription validation completed")

	return &models.ProcessingResult{
		Status:      in.Status,
		Message:     in.Message,
		Data:        rec,
		Diagnostics: diag,
	}, sum
}

// Summarize folds a note list into the summary attached to diagnostics:
// passed with zero notes, warnings otherwise.
func Summarize(notes []Note) models.ValidationSummary {
	texts := make([]string, 0, len(notes))
	for _, n := range notes {
		texts = append(texts, n.Text)
	}
	status := models.ValidationPassed
	if len(texts) > 0 {
		status = models.ValidationWarnings
	}
	return models.ValidationSummary{Status: status, Notes: texts}
}

// cloneDiagnostics shallow-copies a diagnostics map so validation never
// mutates the input envelope.
func cloneDiagnostics(diag map[string]any) map[string]any {
	if diag == nil {
		return nil
	}
	out := make(map[string]any, len(diag))
	for k, v := range diag {
		out[k] = v
	}
	return out
}
