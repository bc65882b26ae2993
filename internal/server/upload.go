package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"rxscan/internal/logger"
	"rxscan/internal/pipeline"
)

// uploadField is the multipart form field carrying the images.
const uploadField = "files"

func (s *Server) maxUploadBytes() int64 {
	return int64(s.cfg.MaxUploadMB) << 20
}

// handleUpload accepts prescription images under the "files" multipart
// field, runs them through the pipeline, and answers with the result
// envelope. Rejected requests carry an "error" body; pipeline outcomes,
// including error and reupload_required envelopes, are answered with 200.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	log := logger.WithContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum size: %dMB", s.cfg.MaxUploadMB))
			return
		}
		writeError(w, http.StatusBadRequest, "No files provided")
		return
	}

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		// A file input submitted with no selection arrives as a plain form
		// value: the parser drops parts whose filename is empty from File.
		if _, ok := r.MultipartForm.Value[uploadField]; ok {
			writeError(w, http.StatusBadRequest, "No files selected")
			return
		}
		writeError(w, http.StatusBadRequest, "No files provided")
		return
	}

	staging := filepath.Join(s.cfg.UploadDir, uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		log.Error().Err(err).Msg("Failed to create staging directory")
		writeServerError(w, err)
		return
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			log.Warn().Err(err).Str("dir", staging).Msg("Failed to clean staging directory")
		}
	}()

	saved, rejected := s.saveUploads(files, staging)
	if len(saved) == 0 {
		msg := "No valid image files"
		if len(rejected) > 0 {
			msg = strings.Join(rejected, "; ")
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p := pipeline.NewPipelineWithServices(s.ocr, s.extractor, s.engine, filepath.Join(staging, "results"))

	final, err := p.Process(r.Context(), saved)
	if err != nil {
		log.Error().Err(err).Msg("Pipeline failed")
		writeServerError(w, err)
		return
	}

	log.Info().Str("status", final.Status).Int("images", len(saved)).Msg("Upload processed")
	writeJSON(w, http.StatusOK, final)
}

// saveUploads writes the supported images into the staging directory and
// collects a message for every rejected file.
func (s *Server) saveUploads(files []*multipart.FileHeader, dir string) (saved, rejected []string) {
	for _, fh := range files {
		if !pipeline.AllowedFile(fh.Filename) {
			rejected = append(rejected, fmt.Sprintf("Invalid file type: %s", fh.Filename))
			continue
		}

		// Base strips any client-supplied directory components.
		dst := filepath.Join(dir, filepath.Base(fh.Filename))
		if err := saveUpload(fh, dst); err != nil {
			s.log.Warn().Err(err).Str("file", fh.Filename).Msg("Failed to save upload")
			rejected = append(rejected, fmt.Sprintf("Failed to save %s", fh.Filename))
			continue
		}
		saved = append(saved, dst)
	}
	return saved, rejected
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
