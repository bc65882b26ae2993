package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"rxscan/internal/logger"
	"rxscan/internal/validate"
	"rxscan/pkg/models"
)

var validateCmd = &cobra.Command{
	Use:   "validate [result-file]",
	Short: "Validate a saved extraction envelope",
	Long: `Run the validation engine over a previously saved extraction envelope
without touching OCR or the extraction model.

The input is a {status, message, data, diagnostics} JSON envelope as
produced by the extraction stage or by "rxscan process". Powers are
checked against the 0.25 diopter grid and the -20 to +20 range, axes
against their cylinders and the 0-180 range, pupillary distances against
the typical 50-75mm band, and dates are normalized to ISO YYYY-MM-DD. The
validated envelope is printed with diagnostics.validation_notes and
diagnostics.validation_status attached.

Reads stdin when the file argument is "-" or absent.`,
	Example: `  # Validate a saved extraction result
  rxscan validate prescription_result.json

  # Validate from stdin
  cat result.json | rxscan validate

  # Write the validated envelope to a file
  rxscan validate result.json -o validated.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("validate-cmd")

	outputPath, _ := cmd.Flags().GetString("output")

	input := "-"
	if len(args) == 1 {
		input = args[0]
	}

	var data []byte
	var err error
	if input == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read stdin")
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(input)
		if err != nil {
			log.Error().Err(err).Str("file", input).Msg("Failed to read input file")
			return fmt.Errorf("failed to read %s: %w", input, err)
		}
	}

	var envelope models.ExtractionResult
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Error().Err(err).Msg("Input is not a valid extraction envelope")
		return fmt.Errorf("failed to decode envelope: %w", err)
	}

	engine := validate.NewEngine(validate.DefaultPolicy())
	final, summary := engine.ValidateResult(&envelope)

	log.Info().
		Str("status", summary.Status).
		Int("notes", len(summary.Notes)).
		Msg("Validation completed")

	out, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal result")
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return writeOutput(out, outputPath, log)
}
