package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rxscan/internal/config"
	"rxscan/internal/extract"
	"rxscan/internal/logger"
	"rxscan/internal/ocr"
	"rxscan/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prescription pipeline over HTTP",
	Long: `Start the HTTP server exposing the prescription pipeline.

Endpoints:
  POST /upload  - multipart images under the "files" field; responds with
                  the final result envelope
  GET  /health  - liveness probe
  GET  /metrics - Prometheus metrics

Uploads are staged in per-request directories under the upload dir and
removed when the request finishes. The server shuts down gracefully on
SIGINT/SIGTERM.

Required environment variables: same as "rxscan process".`,
	Example: `  # Serve on the default address :8080
  rxscan serve

  # Custom bind address and upload cap
  rxscan serve --addr :9000 --max-upload-mb 20`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: SERVER_ADDR or :8080)")
	serveCmd.Flags().String("upload-dir", "", "Staging directory for uploads (default: UPLOAD_DIR or uploads)")
	serveCmd.Flags().Int("max-upload-mb", 0, "Maximum request size in MB (default: MAX_UPLOAD_MB or 10)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	addr, _ := cmd.Flags().GetString("addr")
	uploadDir, _ := cmd.Flags().GetString("upload-dir")
	maxUploadMB, _ := cmd.Flags().GetInt("max-upload-mb")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}
	if uploadDir != "" {
		cfg.UploadDir = uploadDir
	}
	if maxUploadMB > 0 {
		cfg.MaxUploadMB = maxUploadMB
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrMissingAPIKey):
			log.Error().Err(err).Msg("Extraction credentials not configured")
			return fmt.Errorf("extraction API key not configured. Set GEMINI_API_KEY, "+
				"or OPENAI_API_KEY with EXTRACTOR_PROVIDER=openai: %w", err)
		case errors.Is(err, ocr.ErrMissingCredentials):
			log.Error().Err(err).Msg("OCR credentials not configured")
			return fmt.Errorf("Google Cloud credentials not configured. Set "+
				"GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %w", err)
		}
		log.Error().Err(err).Msg("Failed to create server")
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info().
		Str("addr", cfg.ServerAddr).
		Str("provider", cfg.ExtractorProvider).
		Str("engine", cfg.OCREngine).
		Int("max_upload_mb", cfg.MaxUploadMB).
		Msg("Starting server")

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Server failed")
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
