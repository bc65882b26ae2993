// Package extract turns recognized prescription text into a candidate
// extraction envelope using a language model.
//
// Two providers are supported, selected through EXTRACTOR_PROVIDER:
//
//   - gemini: Google Gemini via the genai SDK (the default)
//   - openai: OpenAI chat completions
//
// Both providers receive the same extraction prompt and must answer with
// the JSON envelope the prompt describes. The response parser tolerates
// code fences and prose around the JSON object, since models emit those
// despite instructions not to.
package extract

import (
	"context"

	"rxscan/internal/config"
	"rxscan/pkg/models"
)

// Extractor produces a candidate extraction envelope from OCR text.
//
// The returned envelope carries raw model output: field values are still
// strings or numbers as the model wrote them, and no validation has been
// applied yet.
type Extractor interface {
	// Extract sends the OCR text to the model and parses its answer.
	Extract(ctx context.Context, ocrText string) (*models.ExtractionResult, error)

	// Close releases any resources held by the provider client.
	Close() error
}

// NewExtractor creates the extraction provider selected by the configuration.
func NewExtractor(cfg *config.Config) (Extractor, error) {
	const op = "NewExtractor"

	switch cfg.ExtractorProvider {
	case config.ProviderGemini:
		return NewGeminiExtractor(GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
	case config.ProviderOpenAI:
		return NewOpenAIExtractor(OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		})
	default:
		return nil, NewExtractionError(op, ErrUnknownProvider, cfg.ExtractorProvider)
	}
}
