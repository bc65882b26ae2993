package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"rxscan/internal/logger"
)

// TesseractService implements OCRService using a local Tesseract
// installation through gosseract. A fresh client is created per image;
// client setup is cheap next to recognition itself, and clients are not
// safe to share across goroutines.
type TesseractService struct {
	languages     []string
	clientFactory func() *gosseract.Client
	log           zerolog.Logger
}

// NewTesseractService creates a local OCR service recognizing the given
// languages ("eng", "deu", ...).
func NewTesseractService(languages []string) *TesseractService {
	return &TesseractService{
		languages:     languages,
		clientFactory: gosseract.NewClient,
		log:           logger.WithComponent("tesseract"),
	}
}

// RecognizeImage extracts text lines from a single image.
func (t *TesseractService) RecognizeImage(ctx context.Context, image []byte) ([]Page, error) {
	const op = "RecognizeImage"

	select {
	case <-ctx.Done():
		return nil, WrapOCRError(op, ctx.Err(), "recognition canceled")
	default:
	}

	prepared, err := PrepareImage(image)
	if err != nil {
		return nil, WrapOCRError(op, ErrInvalidImage, err.Error())
	}

	client := t.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(prepared); err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("set image: %v", err))
	}
	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("set languages: %v", err))
		}
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("bounding boxes: %v", err))
	}

	lines := make([]TextLine, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		lines = append(lines, TextLine{
			Text:       text,
			Confidence: box.Confidence / 100.0,
			BBox: rectPoints(
				float64(box.Box.Min.X), float64(box.Box.Min.Y),
				float64(box.Box.Max.X), float64(box.Box.Max.Y),
			),
		})
	}

	t.log.Debug().Int("lines", len(lines)).Msg("Tesseract recognition completed")

	return []Page{{Page: 0, TextLines: lines}}, nil
}

// Close implements OCRService. Clients are created per image, so there is
// nothing to release.
func (t *TesseractService) Close() error { return nil }

// rectPoints converts a rectangle into the four-point polygon of the
// staged result shape, corners in clockwise order from top-left.
func rectPoints(x0, y0, x1, y1 float64) [][]float64 {
	return [][]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}
