package ocr

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// MaxImageSizeBytes is the maximum input size for synchronous cloud
// processing (20MB).
const MaxImageSizeBytes = 20 * 1024 * 1024

// GoogleVisionService implements OCRService using Google Cloud Vision
// document text detection.
type GoogleVisionService struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionService builds an OCR service backed by the Cloud Vision
// API, with credentials resolved from the environment.
func NewGoogleVisionService(ctx context.Context) (OCRService, error) {
	const op = "NewGoogleVisionService"

	opts, credSource := credentialOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if credSource == "" {
			return nil, WrapOCRError(op, ErrMissingCredentials, "default credentials unavailable")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("client creation with %s failed", credSource))
	}

	return &GoogleVisionService{client: client}, nil
}

// NewGoogleVisionServiceWithClient creates a new OCR service with an explicit client (for testing).
func NewGoogleVisionServiceWithClient(client *vision.ImageAnnotatorClient) OCRService {
	return &GoogleVisionService{client: client}
}

// RecognizeImage extracts text lines from a single image.
func (g *GoogleVisionService) RecognizeImage(ctx context.Context, image []byte) ([]Page, error) {
	const op = "RecognizeImage"

	if len(image) > MaxImageSizeBytes {
		return nil, WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", annotation.Error.Message))
	}

	return processAnnotation(annotation), nil
}

// processAnnotation flattens the block/paragraph hierarchy of a Vision
// response into text lines. Vision has no explicit line granularity;
// paragraphs are the closest equivalent on printed prescription forms.
func processAnnotation(annotation *visionpb.AnnotateImageResponse) []Page {
	full := annotation.FullTextAnnotation
	if full == nil {
		return []Page{{Page: 0, TextLines: []TextLine{}}}
	}

	pages := make([]Page, 0, len(full.Pages))
	for idx, page := range full.Pages {
		lines := make([]TextLine, 0, len(page.Blocks))
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				text := strings.TrimSpace(paragraphText(paragraph))
				if text == "" {
					continue
				}
				lines = append(lines, TextLine{
					Text:       text,
					Confidence: float64(paragraph.Confidence),
					BBox:       polyPoints(paragraph.BoundingBox),
				})
			}
		}
		pages = append(pages, Page{Page: idx, TextLines: lines})
	}

	if len(pages) == 0 {
		pages = []Page{{Page: 0, TextLines: []TextLine{}}}
	}
	return pages
}

// paragraphText joins the symbols of a paragraph, honoring detected word
// and line breaks.
func paragraphText(paragraph *visionpb.Paragraph) string {
	var sb strings.Builder
	for _, word := range paragraph.Words {
		for _, symbol := range word.Symbols {
			sb.WriteString(symbol.Text)
			if brk := symbol.GetProperty().GetDetectedBreak(); brk != nil {
				switch brk.Type {
				case visionpb.TextAnnotation_DetectedBreak_SPACE,
					visionpb.TextAnnotation_DetectedBreak_SURE_SPACE,
					visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE,
					visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
					sb.WriteString(" ")
				}
			}
		}
	}
	return sb.String()
}

// polyPoints converts a bounding polygon to [x, y] points, preferring
// pixel vertices over normalized ones.
func polyPoints(poly *visionpb.BoundingPoly) [][]float64 {
	if poly == nil {
		return nil
	}
	points := make([][]float64, 0, len(poly.Vertices))
	for _, v := range poly.Vertices {
		points = append(points, []float64{float64(v.X), float64(v.Y)})
	}
	if len(points) == 0 {
		for _, v := range poly.NormalizedVertices {
			points = append(points, []float64{float64(v.X), float64(v.Y)})
		}
	}
	return points
}

// Close closes the underlying Vision client.
func (g *GoogleVisionService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
