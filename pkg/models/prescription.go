package models

// Envelope status values. The first three are produced by the extraction
// model per the prompt contract; StatusError marks a pipeline failure.
const (
	StatusOK               = "ok"
	StatusNeedsReview      = "needs_review"
	StatusReuploadRequired = "reupload_required"
	StatusError            = "error"
)

// Validation status values attached by the validation engine.
const (
	ValidationPassed   = "passed"   // no corrections or rejections recorded
	ValidationWarnings = "warnings" // at least one validation note recorded
)

// Diagnostics keys written by this system. The diagnostics object itself is
// free-form: keys the extraction model invents are carried through untouched.
const (
	DiagUncertainFields  = "uncertain_fields"
	DiagReasons          = "reasons"
	DiagConfidence       = "confidence"
	DiagOCRConfidence    = "ocr_confidence_scores"
	DiagValidationNotes  = "validation_notes"
	DiagValidationStatus = "validation_status"
)

// CandidateEye holds per-eye values exactly as the extraction model returned
// them. Values are untyped: the model may emit numbers, numeric strings
// ("-2.25"), or null.
type CandidateEye struct {
	Sphere   any `json:"sphere"`   // Spherical correction power in diopters
	Cylinder any `json:"cylinder"` // Cylindrical correction power in diopters
	Axis     any `json:"axis"`     // Cylinder orientation in degrees
	Add      any `json:"add"`      // Near-vision addition power in diopters
}

// CandidateRecord is the unvalidated prescription payload of an extraction
// envelope. A nil eye means the extractor found no values for that eye.
type CandidateRecord struct {
	RightEye          *CandidateEye `json:"right_eye"`
	LeftEye           *CandidateEye `json:"left_eye"`
	PupillaryDistance any           `json:"pupillary_distance"` // Single value or "OD/OS" pair like "62/60"
	DoctorName        any           `json:"doctor_name"`
	Date              any           `json:"date"` // Any common date format
}

// ValidatedEye holds per-eye values after validation. A nil field was either
// absent in the candidate or rejected; rejections are explained in the
// validation notes.
type ValidatedEye struct {
	Sphere   *float64 `json:"sphere"`
	Cylinder *float64 `json:"cylinder"`
	Axis     *int     `json:"axis"`
	Add      *float64 `json:"add"`
}

// ValidatedRecord is the typed prescription produced by the validation
// engine.
type ValidatedRecord struct {
	RightEye *ValidatedEye `json:"right_eye"`
	LeftEye  *ValidatedEye `json:"left_eye"`

	// PupillaryDistance is an int (single measurement), an "int/int" string
	// (per-eye measurements, e.g. "31/32"), or nil.
	PupillaryDistance any `json:"pupillary_distance"`

	DoctorName *string `json:"doctor_name"`

	// Date is an ISO "YYYY-MM-DD" string when normalization succeeded, the
	// raw candidate when no layout matched (flagged in the notes), or nil.
	Date any `json:"date"`
}

// ValidationSummary reports the outcome of one validation pass.
type ValidationSummary struct {
	Status string   `json:"status"` // ValidationPassed or ValidationWarnings
	Notes  []string `json:"notes"`  // Ordered correction/rejection notes
}

// OCRConfidenceSample pairs one recognized text line with its confidence.
type OCRConfidenceSample struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0.0 - 1.0, rounded to 3 decimals
}

// OCRConfidenceReport summarizes OCR quality for the diagnostics object.
type OCRConfidenceReport struct {
	Average float64               `json:"average"` // Mean line confidence, rounded to 3 decimals
	Samples []OCRConfidenceSample `json:"samples"` // First 10 recognized lines
}

// ExtractionResult is the envelope returned by the extraction stage:
// status, operator-facing message, the candidate record (nil when the model
// could not produce one), and free-form diagnostics.
type ExtractionResult struct {
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	Data        *CandidateRecord `json:"data"`
	Diagnostics map[string]any   `json:"diagnostics,omitempty"`
}

// ProcessingResult is the final envelope: same shape as ExtractionResult
// with the candidate data replaced by the validated record and the
// diagnostics augmented with validation notes and status.
type ProcessingResult struct {
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	Data        *ValidatedRecord `json:"data"`
	Diagnostics map[string]any   `json:"diagnostics,omitempty"`
}
