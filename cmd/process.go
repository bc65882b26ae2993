package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rxscan/internal/config"
	"rxscan/internal/export"
	"rxscan/internal/extract"
	"rxscan/internal/logger"
	"rxscan/internal/ocr"
	"rxscan/internal/pipeline"
	"rxscan/pkg/models"
)

var processCmd = &cobra.Command{
	Use:   "process [images...]",
	Short: "Run the full prescription pipeline on images",
	Long: `Run OCR, LLM extraction and validation over one or more images of a
single prescription, and print the final result envelope.

Artifacts are staged under the output directory: ocr/results.json holds
the raw recognition output and prescription_result.json the final
envelope. The envelope status is ok, needs_review, reupload_required or
error; every validation correction or rejection is listed under
diagnostics.validation_notes.

Required environment variables:
  GEMINI_API_KEY - Gemini API key (default provider), OR
  OPENAI_API_KEY - OpenAI API key (with EXTRACTOR_PROVIDER=openai)
Cloud OCR engines additionally need Google credentials, see
"rxscan ocr --help".`,
	Example: `  # Process a prescription photo
  rxscan process prescription.jpg

  # Both sides of a prescription card as one record
  rxscan process front.jpg back.jpg

  # Custom artifact directory, compact stdout
  rxscan process prescription.jpg --output-dir run42 --pretty=false

  # Append the result to a Google Sheets ledger
  rxscan process prescription.jpg --sheet-url "https://docs.google.com/spreadsheets/d/..."`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("output-dir", "o", "", "Artifact directory (default: OUTPUT_DIR or pipeline_output)")
	processCmd.Flags().Bool("pretty", true, "Indent the printed result envelope")
	processCmd.Flags().String("sheet-url", "", "Google Sheets ledger URL (default: GOOGLE_SHEET_URL)")
	processCmd.Flags().String("worksheet", "", "Ledger worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	processCmd.Flags().Int("timeout", 600, "Processing timeout in seconds")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	outputDir, _ := cmd.Flags().GetString("output-dir")
	pretty, _ := cmd.Flags().GetBool("pretty")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if sheetURL == "" {
		sheetURL = cfg.GoogleSheetURL
	}
	if worksheet == "" {
		worksheet = cfg.GoogleSheetWorksheet
	}

	log.Info().
		Strs("images", args).
		Str("output_dir", cfg.OutputDir).
		Str("provider", cfg.ExtractorProvider).
		Str("engine", cfg.OCREngine).
		Int("timeout", timeoutSecs).
		Msg("Starting prescription processing")

	ctx, cancel := signalContext(timeoutSecs, log)
	defer cancel()

	p, err := createPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close pipeline services")
		}
	}()

	final, err := p.Process(ctx, args)
	if err != nil {
		return handleProcessError(err, log)
	}

	log.Info().
		Str("status", final.Status).
		Str("result", p.ResultPath()).
		Msg("Processing completed")

	if sheetURL != "" {
		if err := appendToLedger(ctx, sheetURL, worksheet, args, final, log); err != nil {
			return err
		}
	}

	var data []byte
	if pretty {
		data, err = json.MarshalIndent(final, "", "  ")
	} else {
		data, err = json.Marshal(final)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal result")
		return fmt.Errorf("failed to encode result: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

// createPipeline builds the pipeline with credential guidance on failure.
func createPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pipeline.Pipeline, error) {
	p, err := pipeline.NewPipeline(ctx, cfg)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrMissingAPIKey):
			log.Error().Err(err).Msg("Extraction credentials not configured")
			return nil, fmt.Errorf("extraction API key not configured. Set GEMINI_API_KEY, "+
				"or OPENAI_API_KEY with EXTRACTOR_PROVIDER=openai: %w", err)
		case errors.Is(err, ocr.ErrMissingCredentials):
			log.Error().Err(err).Msg("OCR credentials not configured")
			return nil, fmt.Errorf("Google Cloud credentials not configured. Set "+
				"GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %w", err)
		}
		log.Error().Err(err).Msg("Failed to create pipeline")
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	log.Debug().Msg("Pipeline created")
	return p, nil
}

// handleProcessError maps pipeline failures to user-facing messages.
func handleProcessError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Processing failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, pipeline.ErrNoValidImages):
		return fmt.Errorf("no valid images provided. Supported formats: png, jpg, jpeg, bmp, gif, tiff, webp")
	default:
		return fmt.Errorf("processing failed: %w", err)
	}
}

// appendToLedger writes the final envelope to the Google Sheets ledger.
func appendToLedger(ctx context.Context, sheetURL, worksheet string, images []string, final *models.ProcessingResult, log zerolog.Logger) error {
	svc, err := export.NewSheetsService(ctx, sheetURL, worksheet)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create ledger service")
		return fmt.Errorf("failed to create ledger service: %w", err)
	}

	names := make([]string, 0, len(images))
	for _, image := range images {
		names = append(names, filepath.Base(image))
	}

	row := export.NewLedgerRow(strings.Join(names, ", "), final)
	if err := svc.AppendResult(ctx, row); err != nil {
		log.Error().Err(err).Msg("Failed to append to ledger")
		return fmt.Errorf("failed to append to ledger: %w", err)
	}

	log.Info().Msg("Result appended to ledger")
	return nil
}
