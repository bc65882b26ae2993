// Package pipeline orchestrates the full prescription run: image
// validation, OCR, model extraction, and rule validation, staged as JSON
// artifacts under an output directory.
//
// Layout of one run:
//
//	<output-dir>/ocr/results.json          recognized lines per image
//	<output-dir>/prescription_result.json  final validated envelope
//
// A Pipeline holds only stateless services, so one instance can serve
// concurrent runs as long as each run gets its own output directory.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rxscan/internal/config"
	"rxscan/internal/extract"
	"rxscan/internal/logger"
	"rxscan/internal/ocr"
	"rxscan/internal/validate"
	"rxscan/pkg/metrics"
	"rxscan/pkg/models"
)

// ResultFileName is the final envelope artifact written under the output
// directory.
const ResultFileName = "prescription_result.json"

// Image extensions accepted by the pipeline and the upload endpoint.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
}

// AllowedFile reports whether a filename carries a supported image extension.
func AllowedFile(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Pipeline runs prescription images through OCR, extraction, and
// validation.
type Pipeline struct {
	ocr       ocr.OCRService
	extractor extract.Extractor
	engine    *validate.Engine
	outputDir string
	log       zerolog.Logger
}

// NewPipeline creates a pipeline with services built from the configuration.
func NewPipeline(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	const op = "NewPipeline"

	ocrService, err := ocr.NewService(ctx, cfg)
	if err != nil {
		return nil, WrapPipelineError(op, err, "failed to create OCR service")
	}

	extractor, err := extract.NewExtractor(cfg)
	if err != nil {
		ocrService.Close()
		return nil, WrapPipelineError(op, err, "failed to create extractor")
	}

	return NewPipelineWithServices(ocrService, extractor, validate.NewEngine(validate.DefaultPolicy()), cfg.OutputDir), nil
}

// NewPipelineWithServices creates a pipeline with explicit services.
// Used by tests and by callers that manage service lifecycles themselves.
func NewPipelineWithServices(ocrService ocr.OCRService, extractor extract.Extractor, engine *validate.Engine, outputDir string) *Pipeline {
	if outputDir == "" {
		outputDir = "pipeline_output"
	}

	return &Pipeline{
		ocr:       ocrService,
		extractor: extractor,
		engine:    engine,
		outputDir: outputDir,
		log:       logger.WithComponent("pipeline"),
	}
}

// OutputDir returns the directory this pipeline stages artifacts under.
func (p *Pipeline) OutputDir() string {
	return p.outputDir
}

// ResultsPath returns where the staged OCR results live.
func (p *Pipeline) ResultsPath() string {
	return filepath.Join(p.outputDir, "ocr", ocr.ResultsFileName)
}

// ResultPath returns where the final envelope lives.
func (p *Pipeline) ResultPath() string {
	return filepath.Join(p.outputDir, ResultFileName)
}

// Process runs a batch of image paths, treated as pages of one
// prescription, through the full pipeline and returns the final envelope.
//
// Extraction failures do not fail the run: they produce an error envelope
// that is staged and returned like any other result. OCR failures and
// staging failures do fail the run.
func (p *Pipeline) Process(ctx context.Context, imagePaths []string) (*models.ProcessingResult, error) {
	const op = "Process"

	paths, err := p.validateImages(imagePaths)
	if err != nil {
		return nil, err
	}

	p.log.Info().
		Int("images", len(paths)).
		Str("output_dir", p.outputDir).
		Msg("Starting prescription pipeline")

	if err := os.MkdirAll(filepath.Dir(p.ResultsPath()), 0o755); err != nil {
		return nil, NewPipelineError(op, ErrStagingFailed, err.Error())
	}

	start := time.Now()
	results, err := ocr.RecognizeFiles(ctx, p.ocr, paths)
	if err != nil {
		metrics.RecordStageError(metrics.StageOCR)
		return nil, WrapPipelineError(op, err, "OCR stage failed")
	}
	metrics.RecordStageLatency(metrics.StageOCR, float64(time.Since(start).Milliseconds()))

	if err := results.Save(p.ResultsPath()); err != nil {
		return nil, WrapPipelineError(op, err, "failed to stage OCR results")
	}
	p.log.Info().
		Str("path", p.ResultsPath()).
		Int("lines", len(results.Lines())).
		Msg("OCR results staged")

	extraction := p.runExtraction(ctx, results)

	start = time.Now()
	final, sum := p.engine.ValidateResult(extraction)
	metrics.RecordStageLatency(metrics.StageValidate, float64(time.Since(start).Milliseconds()))

	if err := SaveResult(final, p.ResultPath()); err != nil {
		return nil, err
	}

	metrics.RecordScanProcessed(final.Status)
	p.log.Info().
		Str("status", final.Status).
		Str("validation_status", sum.Status).
		Str("path", p.ResultPath()).
		Msg("Pipeline complete")

	return final, nil
}

// runExtraction turns staged OCR results into a candidate envelope. Empty
// OCR text short-circuits to the fixed reupload envelope without calling
// the model; an extraction failure becomes an error envelope.
func (p *Pipeline) runExtraction(ctx context.Context, results ocr.ResultSet) *models.ExtractionResult {
	text := results.Text()
	if strings.TrimSpace(text) == "" {
		p.log.Warn().Msg("OCR text is empty, skipping extraction")
		return extract.EmptyOCRResult()
	}

	report := results.ConfidenceReport()
	if report != nil {
		metrics.RecordOCRConfidence(report.Average)
		p.log.Info().
			Float64("average", report.Average).
			Int("lines", len(results.Lines())).
			Msg("OCR confidence")
	}

	start := time.Now()
	extraction, err := p.extractor.Extract(ctx, text)
	if err != nil {
		metrics.RecordStageError(metrics.StageExtract)
		p.log.Error().Err(err).Msg("Extraction failed")
		return &models.ExtractionResult{
			Status:  models.StatusError,
			Message: err.Error(),
		}
	}
	metrics.RecordStageLatency(metrics.StageExtract, float64(time.Since(start).Milliseconds()))

	if report != nil {
		if extraction.Diagnostics == nil {
			extraction.Diagnostics = map[string]any{}
		}
		extraction.Diagnostics[models.DiagOCRConfidence] = report
	}

	return extraction
}

// validateImages drops paths that do not point at readable image files.
// Every skip is logged; an empty survivor list is an error.
func (p *Pipeline) validateImages(paths []string) ([]string, error) {
	const op = "validateImages"

	valid := make([]string, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		switch {
		case err != nil:
			p.log.Warn().Str("path", path).Msg("Image not found, skipping")
		case info.IsDir():
			p.log.Warn().Str("path", path).Msg("Not a file, skipping")
		case !AllowedFile(path):
			p.log.Warn().Str("path", path).Msg("Not a supported image type, skipping")
		default:
			valid = append(valid, path)
		}
	}

	if len(valid) == 0 {
		return nil, NewPipelineError(op, ErrNoValidImages, fmt.Sprintf("%d path(s) checked", len(paths)))
	}

	return valid, nil
}

// Close releases the pipeline's services.
func (p *Pipeline) Close() error {
	var firstErr error
	if p.ocr != nil {
		firstErr = p.ocr.Close()
	}
	if p.extractor != nil {
		if err := p.extractor.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SaveResult writes a final envelope as indented JSON.
func SaveResult(result *models.ProcessingResult, path string) error {
	const op = "SaveResult"

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return NewPipelineError(op, err, path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewPipelineError(op, ErrStagingFailed, err.Error())
	}
	return nil
}

// LoadResult reads a previously saved final envelope.
func LoadResult(path string) (*models.ProcessingResult, error) {
	const op = "LoadResult"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewPipelineError(op, err, path)
	}

	var result models.ProcessingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewPipelineError(op, err, path)
	}
	return &result, nil
}
