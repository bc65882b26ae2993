package ocr

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"rxscan/internal/logger"
)

// DocumentAIConfig holds the processor settings for the Document AI engine.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	Timeout          time.Duration
}

// DocumentAIService implements OCRService using a Google Document AI OCR
// processor.
type DocumentAIService struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIService creates the service with credentials from environment.
// Expects: GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
func NewDocumentAIService(ctx context.Context, config DocumentAIConfig) (OCRService, error) {
	const op = "NewDocumentAIService"

	if config.ProjectID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us" // Default location
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	clientOptions, credSource := credentialOptions()

	// Processors outside the multi-region "us" live behind a regional endpoint
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if credSource == "" {
			return nil, WrapOCRError(op, ErrMissingCredentials, "default credentials unavailable")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// NewDocumentAIServiceWithClient creates the service with an explicit client (for testing).
func NewDocumentAIServiceWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) OCRService {
	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// RecognizeImage extracts text lines from a single image or PDF.
func (p *DocumentAIService) RecognizeImage(ctx context.Context, image []byte) ([]Page, error) {
	const op = "RecognizeImage"

	if len(image) > MaxImageSizeBytes {
		return nil, WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: http.DetectContentType(image),
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, p.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapOCRError(op, ErrOCRFailed, "no document in response")
	}

	return p.extractLines(resp.Document), nil
}

// processorName constructs the full processor name for the Document AI API.
func (p *DocumentAIService) processorName() string {
	if p.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			p.config.ProjectID, p.config.Location, p.config.ProcessorID, p.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
}

// extractLines flattens the page/line structure of a processed document
// into the staged result shape.
func (p *DocumentAIService) extractLines(doc *documentaipb.Document) []Page {
	pages := make([]Page, 0, len(doc.Pages))
	for idx, page := range doc.Pages {
		lines := make([]TextLine, 0, len(page.Lines))
		for _, line := range page.Lines {
			layout := line.GetLayout()
			text := strings.TrimSpace(anchorText(doc, layout.GetTextAnchor()))
			if text == "" {
				continue
			}
			lines = append(lines, TextLine{
				Text:       text,
				Confidence: float64(layout.GetConfidence()),
				BBox:       layoutPoints(layout.GetBoundingPoly()),
			})
		}
		pages = append(pages, Page{Page: idx, TextLines: lines})
	}

	p.log.Debug().Int("pages", len(pages)).Msg("Document AI recognition completed")

	if len(pages) == 0 {
		pages = []Page{{Page: 0, TextLines: []TextLine{}}}
	}
	return pages
}

// anchorText resolves a text anchor against the document's full text.
func anchorText(doc *documentaipb.Document, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil {
		return ""
	}
	text := doc.GetText()
	var sb strings.Builder
	for _, segment := range anchor.GetTextSegments() {
		start, end := segment.GetStartIndex(), segment.GetEndIndex()
		if start < 0 || end < start || end > int64(len(text)) {
			continue
		}
		sb.WriteString(text[start:end])
	}
	return sb.String()
}

// layoutPoints converts a bounding polygon to [x, y] points, preferring
// pixel vertices over normalized ones.
func layoutPoints(poly *documentaipb.BoundingPoly) [][]float64 {
	if poly == nil {
		return nil
	}
	points := make([][]float64, 0, len(poly.GetVertices()))
	for _, v := range poly.GetVertices() {
		points = append(points, []float64{float64(v.GetX()), float64(v.GetY())})
	}
	if len(points) == 0 {
		for _, v := range poly.GetNormalizedVertices() {
			points = append(points, []float64{float64(v.GetX()), float64(v.GetY())})
		}
	}
	return points
}

// handleProcessingError converts Document AI errors to recognizable OCR errors.
func (p *DocumentAIService) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapOCRError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return WrapOCRError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapOCRError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapOCRError(op, ErrInvalidImage, "image format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return WrapOCRError(op, context.DeadlineExceeded, "processing timeout")
	case strings.Contains(errStr, "Canceled") || strings.Contains(errStr, "context canceled"):
		return WrapOCRError(op, ErrContextCanceled, "processing was canceled")
	default:
		return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (p *DocumentAIService) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
