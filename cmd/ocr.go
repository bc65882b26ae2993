package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rxscan/internal/config"
	"rxscan/internal/logger"
	"rxscan/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [images...]",
	Short: "Recognize text in prescription images",
	Long: `Run OCR over one or more prescription images and print the
line-oriented recognition results.

The engine is selected by OCR_ENGINE: tesseract (local, default), vision
(Google Cloud Vision document text detection) or docai (Google Document AI
OCR processor). Results carry per-line confidence scores and bounding
boxes, keyed by image file name, in the same shape the pipeline stages as
ocr/results.json.

Required environment variables (cloud engines only):
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID
  DOCUMENT_AI_PROCESSOR_ID - Document AI OCR processor (docai engine only)`,
	Example: `  # Recognize a prescription photo, results to stdout
  rxscan ocr prescription.jpg

  # Save results to a file
  rxscan ocr prescription.jpg -o results.json

  # Print only the aggregated plain text
  rxscan ocr front.jpg back.jpg --text

  # Use the Cloud Vision engine with a longer timeout
  rxscan ocr prescription.jpg --engine vision --timeout 600`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().String("engine", "", "OCR engine override: tesseract, vision or docai")
	ocrCmd.Flags().Bool("text", false, "Print aggregated plain text instead of JSON")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr-cmd")

	outputPath, _ := cmd.Flags().GetString("output")
	engine, _ := cmd.Flags().GetString("engine")
	textOnly, _ := cmd.Flags().GetBool("text")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	log.Info().
		Strs("images", args).
		Str("output", outputPath).
		Bool("text", textOnly).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if engine != "" {
		cfg.OCREngine = engine
	}

	ctx, cancel := signalContext(timeoutSecs, log)
	defer cancel()

	svc, err := createOCRService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR service")
		}
	}()

	startTime := time.Now()
	results, err := ocr.RecognizeFiles(ctx, svc, args)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Int("images", len(results)).
		Int("lines", len(results.Lines())).
		Dur("duration", time.Since(startTime)).
		Msg("OCR completed")

	if textOnly {
		return writeOutput([]byte(results.Text()), outputPath, log)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal results")
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return writeOutput(data, outputPath, log)
}

// createOCRService builds the configured OCR engine with credential
// guidance on failure.
func createOCRService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.OCRService, error) {
	svc, err := ocr.NewService(ctx, cfg)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Error().Err(err).Msg("Google Cloud credentials not configured")
			return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n"+
				"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n"+
				"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n"+
				"2. Export GOOGLE_CREDENTIALS with inline JSON:\n"+
				"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",...}'\n\n"+
				"Original error: %w", err)
		}
		if errors.Is(err, ocr.ErrUnknownEngine) {
			log.Error().Err(err).Str("engine", cfg.OCREngine).Msg("Unknown OCR engine")
			return nil, fmt.Errorf("unknown OCR engine %q. Supported engines: tesseract, vision, docai", cfg.OCREngine)
		}
		log.Error().Err(err).Msg("Failed to create OCR service")
		return nil, fmt.Errorf("failed to create OCR service: %w", err)
	}

	log.Debug().Str("engine", cfg.OCREngine).Msg("OCR service created")
	return svc, nil
}

// handleOCRError maps recognition failures to user-facing messages.
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or processing fewer images")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("image is too large for the selected engine (maximum 20MB). Try resizing or compressing it")
	case errors.Is(err, ocr.ErrInvalidImage):
		return fmt.Errorf("invalid or unsupported image data. Please check the file integrity")
	case errors.Is(err, ocr.ErrQuotaExceeded) || strings.Contains(errStr, "quota"):
		return fmt.Errorf("cloud OCR API quota exceeded. Check your project quotas in the Google Cloud Console")
	case strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "permission"):
		return fmt.Errorf("permission denied. Ensure the service account can call the selected OCR API")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials: %v", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
