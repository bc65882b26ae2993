package ocr_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/ocr"
)

func sampleResults() ocr.ResultSet {
	return ocr.ResultSet{
		"b.jpg": []ocr.Page{
			{Page: 0, TextLines: []ocr.TextLine{
				{Text: "PD: 62/60", Confidence: 0.92},
			}},
		},
		"a.jpg": []ocr.Page{
			{Page: 0, TextLines: []ocr.TextLine{
				{Text: "  OD -2.25 -0.75 x90  ", Confidence: 0.9, BBox: [][]float64{{10, 4}, {220, 4}, {220, 30}, {10, 30}}},
				{Text: "   ", Confidence: 0.1},
				{Text: "OS -2.00", Confidence: 0.84},
			}},
		},
	}
}

func TestResultSetText(t *testing.T) {
	rs := sampleResults()

	// Images in sorted name order, lines trimmed, blank lines dropped.
	assert.Equal(t, "OD -2.25 -0.75 x90\nOS -2.00\nPD: 62/60", rs.Text())

	lines := rs.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "OD -2.25 -0.75 x90", lines[0].Text)
	assert.Equal(t, 0.92, lines[2].Confidence)
}

func TestResultSetEmpty(t *testing.T) {
	assert.True(t, ocr.ResultSet{}.Empty())
	assert.True(t, ocr.ResultSet{
		"x.jpg": []ocr.Page{{Page: 0, TextLines: []ocr.TextLine{{Text: "   "}}}},
	}.Empty())
	assert.False(t, sampleResults().Empty())
}

func TestConfidenceReport(t *testing.T) {
	report := sampleResults().ConfidenceReport()
	require.NotNil(t, report)

	// 0.9, 0.84, 0.92 average to 0.886...; the blank line is excluded.
	assert.InDelta(t, 0.887, report.Average, 0.0005)
	require.Len(t, report.Samples, 3)
	assert.Equal(t, "OD -2.25 -0.75 x90", report.Samples[0].Text)
	assert.Equal(t, 0.9, report.Samples[0].Confidence)
}

func TestConfidenceReportRoundsToThreeDecimals(t *testing.T) {
	rs := ocr.ResultSet{
		"x.jpg": []ocr.Page{{Page: 0, TextLines: []ocr.TextLine{
			{Text: "SPH", Confidence: 0.98765},
		}}},
	}

	report := rs.ConfidenceReport()
	require.NotNil(t, report)
	assert.Equal(t, 0.988, report.Samples[0].Confidence)
	assert.Equal(t, 0.988, report.Average)
}

func TestConfidenceReportSampleCap(t *testing.T) {
	lines := make([]ocr.TextLine, 12)
	for i := range lines {
		lines[i] = ocr.TextLine{Text: "line", Confidence: 0.5}
	}
	rs := ocr.ResultSet{"x.jpg": []ocr.Page{{Page: 0, TextLines: lines}}}

	report := rs.ConfidenceReport()
	require.NotNil(t, report)
	assert.Len(t, report.Samples, 10)
	assert.Equal(t, 0.5, report.Average)
}

func TestConfidenceReportEmpty(t *testing.T) {
	assert.Nil(t, ocr.ResultSet{}.ConfidenceReport())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ocr.ResultsFileName)

	rs := sampleResults()
	require.NoError(t, rs.Save(path))

	loaded, err := ocr.LoadResults(path)
	require.NoError(t, err)
	assert.Equal(t, rs, loaded)
}

func TestLoadResultsMissingFile(t *testing.T) {
	_, err := ocr.LoadResults(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadResultsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte("[1, 2, 3]"), 0644))

	_, err := ocr.LoadResults(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ocr.ErrInvalidResults)
}

func TestLoadResultsRejectsPageWithoutLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scan.jpg": [{"page": 0}]}`), 0644))

	_, err := ocr.LoadResults(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ocr.ErrInvalidResults)
}
