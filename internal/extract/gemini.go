package extract

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"rxscan/internal/logger"
	"rxscan/pkg/models"
)

// GeminiConfig holds configuration for the Gemini extraction provider.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Required.
	APIKey string

	// Model is the model identifier (default: "gemini-2.5-flash").
	Model string

	// Temperature controls sampling randomness. Extraction needs to be
	// reproducible for the same OCR text, so the zero value is the intended
	// setting and is sent to the API as-is.
	Temperature float32
}

// GeminiExtractor implements Extractor using the Gemini API.
type GeminiExtractor struct {
	client *genai.Client
	config GeminiConfig
	log    zerolog.Logger
}

// NewGeminiExtractor creates a Gemini-backed extractor.
func NewGeminiExtractor(config GeminiConfig) (*GeminiExtractor, error) {
	const op = "NewGeminiExtractor"

	if config.APIKey == "" {
		return nil, NewExtractionError(op, ErrMissingAPIKey, "GEMINI_API_KEY is not set")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, WrapExtractionError(op, err, "failed to create Gemini client")
	}

	return &GeminiExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("gemini-extract"),
	}, nil
}

// Extract sends the OCR text to Gemini and parses the returned envelope.
func (g *GeminiExtractor) Extract(ctx context.Context, ocrText string) (*models.ExtractionResult, error) {
	const op = "Extract"

	prompt := BuildPrompt(ocrText)

	g.log.Debug().
		Str("model", g.config.Model).
		Int("prompt_length", len(prompt)).
		Msg("Sending extraction request to Gemini")

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(g.config.Temperature),
		})
	if err != nil {
		return nil, WrapExtractionError(op, err, "Gemini request failed")
	}

	raw := resp.Text()
	if raw == "" {
		return nil, NewExtractionError(op, ErrEmptyResponse, "no text in Gemini response")
	}

	result, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}

	g.log.Info().
		Str("model", g.config.Model).
		Str("status", result.Status).
		Msg("Gemini extraction completed")

	return result, nil
}

// Close implements Extractor. The genai client exposes no close
// operation, so there is nothing to release.
func (g *GeminiExtractor) Close() error {
	return nil
}
