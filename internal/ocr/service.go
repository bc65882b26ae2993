// Package ocr extracts text lines from prescription images.
//
// This package supports three interchangeable recognition engines, selected
// through the OCR_ENGINE configuration:
//   - tesseract: local recognition through the Tesseract library (default)
//   - vision: Google Cloud Vision document text detection
//   - docai: Google Document AI OCR processing
//
// Required Environment Variables (vision and docai engines):
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT: Google Cloud project ID (docai only)
//
// Implementation Details:
//   - Every engine produces the same line-level result shape (text,
//     confidence score in 0.0-1.0, bounding box), so downstream stages do
//     not care which engine ran
//   - Results are staged as results.json keyed by image file name
//   - Prescription photos are treated as single-page documents; multi-page
//     inputs keep their page numbering
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/api/option"

	"rxscan/internal/config"
)

// OCRService defines the interface for OCR text recognition engines.
type OCRService interface {
	// RecognizeImage extracts text lines from a single image.
	// Most engines return exactly one page per image.
	RecognizeImage(ctx context.Context, image []byte) ([]Page, error)

	// Close releases the engine's underlying resources.
	Close() error
}

// credentialOptions resolves Google Cloud credentials from the environment
// for the cloud engines. Inline GOOGLE_CREDENTIALS JSON takes precedence
// over a GOOGLE_APPLICATION_CREDENTIALS key file. The returned source names
// the variable that supplied them; it is empty when neither is set and
// application default credentials apply.
func credentialOptions() ([]option.ClientOption, string) {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}, "GOOGLE_CREDENTIALS"
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}, "GOOGLE_APPLICATION_CREDENTIALS"
	}
	return nil, ""
}

// NewService creates the OCR engine selected by the configuration.
func NewService(ctx context.Context, cfg *config.Config) (OCRService, error) {
	const op = "NewService"

	switch cfg.OCREngine {
	case config.EngineTesseract:
		return NewTesseractService(strings.Split(cfg.OCRLanguages, "+")), nil
	case config.EngineVision:
		return NewGoogleVisionService(ctx)
	case config.EngineDocumentAI:
		return NewDocumentAIService(ctx, DocumentAIConfig{
			ProjectID:        cfg.GoogleCloudProject,
			Location:         cfg.GoogleCloudLocation,
			ProcessorID:      cfg.DocumentAIProcessorID,
			ProcessorVersion: cfg.DocumentAIProcessorVersion,
			Timeout:          60 * time.Second,
		})
	default:
		return nil, NewOCRError(op, ErrUnknownEngine, cfg.OCREngine)
	}
}

// RecognizeFiles runs recognition over image files and collects the results
// keyed by base file name, the shape staged as results.json.
func RecognizeFiles(ctx context.Context, svc OCRService, paths []string) (ResultSet, error) {
	const op = "RecognizeFiles"

	results := make(ResultSet, len(paths))
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return nil, WrapOCRError(op, ctx.Err(), path)
		default:
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapOCRError(op, err, fmt.Sprintf("failed to read image: %s", path))
		}

		pages, err := svc.RecognizeImage(ctx, data)
		if err != nil {
			return nil, WrapOCRError(op, err, fmt.Sprintf("recognition failed: %s", path))
		}

		results[filepath.Base(path)] = pages
	}

	return results, nil
}
