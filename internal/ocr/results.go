package ocr

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"rxscan/pkg/models"
)

// ResultsFileName is the staged recognition artifact read by the
// extraction stage.
const ResultsFileName = "results.json"

// TextLine is one recognized line of text with its confidence score and
// bounding box. The bounding box is a polygon of [x, y] points; engines
// that only report rectangles emit the four corner points.
type TextLine struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	BBox       [][]float64 `json:"bbox,omitempty"`
}

// Page groups the lines recognized on one page of an input image.
// Plain photos produce a single page 0.
type Page struct {
	Page      int        `json:"page"`
	TextLines []TextLine `json:"text_lines"`
}

// ResultSet holds recognition results keyed by image file name. Iteration
// helpers walk images in sorted name order so aggregated output is
// deterministic.
type ResultSet map[string][]Page

// Names returns the image names in sorted order.
func (rs ResultSet) Names() []string {
	names := make([]string, 0, len(rs))
	for name := range rs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lines returns every recognized line with a non-empty trimmed text,
// images in sorted name order and pages in recognition order.
func (rs ResultSet) Lines() []TextLine {
	var lines []TextLine
	for _, name := range rs.Names() {
		for _, page := range rs[name] {
			for _, line := range page.TextLines {
				text := strings.TrimSpace(line.Text)
				if text == "" {
					continue
				}
				lines = append(lines, TextLine{
					Text:       text,
					Confidence: line.Confidence,
					BBox:       line.BBox,
				})
			}
		}
	}
	return lines
}

// Text aggregates all recognized lines into newline-separated plain text,
// the form handed to the extraction model.
func (rs ResultSet) Text() string {
	lines := rs.Lines()
	texts := make([]string, 0, len(lines))
	for _, line := range lines {
		texts = append(texts, line.Text)
	}
	return strings.Join(texts, "\n")
}

// Empty reports whether recognition produced no readable text.
func (rs ResultSet) Empty() bool {
	return len(rs.Lines()) == 0
}

// ConfidenceReport summarizes line confidences for the diagnostics object:
// the average over all recognized lines plus the first ten lines as
// samples, confidences rounded to three decimals. Returns nil when nothing
// was recognized.
func (rs ResultSet) ConfidenceReport() *models.OCRConfidenceReport {
	lines := rs.Lines()
	if len(lines) == 0 {
		return nil
	}

	var sum float64
	samples := make([]models.OCRConfidenceSample, 0, len(lines))
	for _, line := range lines {
		conf := round3(line.Confidence)
		sum += conf
		samples = append(samples, models.OCRConfidenceSample{
			Text:       line.Text,
			Confidence: conf,
		})
	}

	report := &models.OCRConfidenceReport{
		Average: round3(sum / float64(len(samples))),
		Samples: samples,
	}
	if len(report.Samples) > 10 {
		report.Samples = report.Samples[:10]
	}
	return report
}

// Save writes the result set as indented JSON.
func (rs ResultSet) Save(path string) error {
	const op = "Save"

	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return WrapOCRError(op, err, "failed to encode results")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return WrapOCRError(op, err, fmt.Sprintf("failed to write %s", path))
	}
	return nil
}

// LoadResults reads a results.json file produced by Save or by an
// external recognition step.
func LoadResults(path string) (ResultSet, error) {
	const op = "LoadResults"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to read %s", path))
	}

	var rs ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, WrapOCRError(op, ErrInvalidResults, fmt.Sprintf("failed to decode %s: %v", path, err))
	}

	if err := rs.Verify(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Verify checks the result shape: every page must carry a text_lines
// array, even an empty one.
func (rs ResultSet) Verify() error {
	const op = "Verify"

	for name, pages := range rs {
		for i, page := range pages {
			if page.TextLines == nil {
				return NewOCRError(op, ErrInvalidResults,
					fmt.Sprintf("%s page %d has no text_lines", name, i))
			}
		}
	}
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
