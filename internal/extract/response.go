package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"rxscan/pkg/models"
)

// jsonObject grabs the widest {...} span in the answer, so markdown fences
// or commentary around the envelope do not break decoding.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseResponse decodes the extraction envelope from a raw model answer.
//
// Models are instructed to return bare JSON but regularly wrap it in code
// fences or prose anyway, so the parser locates the JSON object inside the
// answer before decoding. A missing diagnostics object is replaced with an
// empty one; downstream validation writes its notes there and should not
// have to care whether the model supplied it.
func ParseResponse(raw string) (*models.ExtractionResult, error) {
	const op = "ParseResponse"

	match := jsonObject.FindString(raw)
	if match == "" {
		return nil, WrapExtractionError(op, ErrNoJSON, snippet(raw))
	}

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(match), &result); err != nil {
		return nil, WrapExtractionError(op, ErrInvalidResponse, err.Error())
	}

	if result.Status == "" {
		return nil, WrapExtractionError(op, ErrInvalidResponse, "missing status field")
	}
	if result.Diagnostics == nil {
		result.Diagnostics = map[string]any{}
	}

	return &result, nil
}

// snippet shortens a model answer for inclusion in error details.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "..."
}

// EmptyOCRResult is the fixed envelope produced when OCR found no text at
// all. The model is never called in that case; there is nothing to extract
// and the only useful answer is to ask for a better image.
func EmptyOCRResult() *models.ExtractionResult {
	return &models.ExtractionResult{
		Status:  models.StatusReuploadRequired,
		Message: "OCR text is empty. Please upload a clearer image.",
		Diagnostics: map[string]any{
			models.DiagUncertainFields: []string{},
			models.DiagReasons:         map[string]any{},
			models.DiagConfidence:      "low",
		},
	}
}
