// Package server exposes the prescription pipeline over HTTP: multipart
// image upload, a health probe, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"rxscan/internal/config"
	"rxscan/internal/extract"
	"rxscan/internal/logger"
	"rxscan/internal/ocr"
	"rxscan/internal/validate"
	"rxscan/pkg/metrics"
)

// HTTP server timeouts. The write timeout has to cover a full pipeline run
// (OCR plus one or more model calls), which happens inside the upload
// handler.
const (
	readTimeout       = 60 * time.Second
	writeTimeout      = 5 * time.Minute
	idleTimeout       = 120 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server wires the prescription pipeline behind HTTP routes.
type Server struct {
	cfg       *config.Config
	ocr       ocr.OCRService
	extractor extract.Extractor
	engine    *validate.Engine
	log       zerolog.Logger
}

// NewServer creates a server with services built from the configuration.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	const op = "NewServer"

	ocrService, err := ocr.NewService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create OCR service: %w", op, err)
	}

	extractor, err := extract.NewExtractor(cfg)
	if err != nil {
		ocrService.Close()
		return nil, fmt.Errorf("%s: failed to create extractor: %w", op, err)
	}

	return NewServerWithServices(cfg, ocrService, extractor, validate.NewEngine(validate.DefaultPolicy())), nil
}

// NewServerWithServices creates a server with explicit services.
// Used by tests to stub out OCR and extraction.
func NewServerWithServices(cfg *config.Config, ocrService ocr.OCRService, extractor extract.Extractor, engine *validate.Engine) *Server {
	return &Server{
		cfg:       cfg,
		ocr:       ocrService,
		extractor: extractor,
		engine:    engine,
		log:       logger.WithComponent("server"),
	}
}

// Handler returns the HTTP handler with all routes attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", RequestIDMiddleware(MetricsMiddleware(s.handleUpload, "upload")))
	mux.HandleFunc("/health", MetricsMiddleware(s.handleHealth, "health"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ServerAddr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("Server stopped")
	return s.Close()
}

// Close releases the server's services.
func (s *Server) Close() error {
	var firstErr error
	if s.ocr != nil {
		firstErr = s.ocr.Close()
	}
	if s.extractor != nil {
		if err := s.extractor.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeServerError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Status: "error"})
}
