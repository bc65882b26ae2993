package extract

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"rxscan/internal/logger"
	"rxscan/pkg/models"
)

// CompletionClient is the subset of the OpenAI client used for extraction.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig holds configuration for the OpenAI extraction provider.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// Model is the model identifier (default: "gpt-4o-mini").
	Model string

	// Temperature controls sampling randomness. The zero value requests
	// deterministic output.
	Temperature float32

	// MaxRetries is the number of request attempts (default: 3).
	MaxRetries int

	// MaxTokens caps the answer length (default: 1000, enough for the
	// extraction envelope).
	MaxTokens int
}

// OpenAIExtractor implements Extractor using OpenAI chat completions.
type OpenAIExtractor struct {
	client CompletionClient
	config OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAIExtractor creates an OpenAI-backed extractor.
func NewOpenAIExtractor(config OpenAIConfig) (*OpenAIExtractor, error) {
	const op = "NewOpenAIExtractor"

	if config.APIKey == "" {
		return nil, NewExtractionError(op, ErrMissingAPIKey, "OPENAI_API_KEY is not set")
	}

	return NewOpenAIExtractorWithClient(openai.NewClient(config.APIKey), config), nil
}

// NewOpenAIExtractorWithClient creates an extractor with an explicit client.
// Used by tests to stub out the OpenAI API.
func NewOpenAIExtractorWithClient(client CompletionClient, config OpenAIConfig) *OpenAIExtractor {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1000
	}
	if config.Temperature == 0 {
		// The client omits a literal zero from the request, which the API
		// then replaces with its default. The smallest positive value is
		// sent as-is and keeps sampling effectively deterministic.
		config.Temperature = math.SmallestNonzeroFloat32
	}

	return &OpenAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("openai-extract"),
	}
}

// Extract sends the OCR text to OpenAI and parses the returned envelope.
// Failed requests and unparseable answers are retried up to MaxRetries times.
func (o *OpenAIExtractor) Extract(ctx context.Context, ocrText string) (*models.ExtractionResult, error) {
	const op = "Extract"

	o.log.Debug().
		Str("model", o.config.Model).
		Int("ocr_text_length", len(ocrText)).
		Msg("Sending extraction request to OpenAI")

	var lastErr error
	for attempt := 1; attempt <= o.config.MaxRetries; attempt++ {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       o.config.Model,
			Temperature: o.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: strings.TrimSpace(masterPrompt),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: ocrText,
				},
			},
			MaxTokens: o.config.MaxTokens,
		})

		if err != nil {
			lastErr = err
			o.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", o.config.MaxRetries).
				Msg("OpenAI request failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = NewExtractionError(op, ErrEmptyResponse, "no response choices from OpenAI")
			continue
		}

		result, err := ParseResponse(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			o.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Failed to parse OpenAI response, retrying")
			continue
		}

		o.log.Info().
			Str("model", o.config.Model).
			Str("status", result.Status).
			Int("attempt", attempt).
			Msg("OpenAI extraction completed")

		return result, nil
	}

	return nil, WrapExtractionError(op, lastErr, fmt.Sprintf("all %d attempts failed", o.config.MaxRetries))
}

// Close implements Extractor. The OpenAI client holds no resources to release.
func (o *OpenAIExtractor) Close() error {
	return nil
}
