package config

import (
	"fmt"
	"os"
	"strconv"

	"rxscan/internal/logger"
)

// Extraction providers understood by the pipeline.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// OCR engines understood by the pipeline.
const (
	EngineTesseract  = "tesseract"
	EngineVision     = "vision"
	EngineDocumentAI = "docai"
)

type Config struct {
	// Extraction Configuration
	ExtractorProvider string
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIModel       string

	// OCR Configuration
	OCREngine    string
	OCRLanguages string

	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Server Configuration
	ServerAddr  string
	UploadDir   string
	MaxUploadMB int

	// Artifact Configuration
	OutputDir string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. Credential presence
// is checked by the stage constructors, not here, so OCR-only and
// validation-only invocations work without extraction keys.
func Load() (*Config, error) {
	config := &Config{
		ExtractorProvider:          getEnv("EXTRACTOR_PROVIDER", ProviderGemini),
		GeminiAPIKey:               getEnv("GEMINI_API_KEY", ""),
		GeminiModel:                getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:                getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OCREngine:                  getEnv("OCR_ENGINE", EngineTesseract),
		OCRLanguages:               getEnv("OCR_LANGUAGES", "eng"),
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		GoogleSheetURL:             getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:       getEnv("GOOGLE_SHEET_WORKSHEET", "Prescriptions"),
		ServerAddr:                 getEnv("SERVER_ADDR", ":8080"),
		UploadDir:                  getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadMB:                getEnvInt("MAX_UPLOAD_MB", 10),
		OutputDir:                  getEnv("OUTPUT_DIR", "pipeline_output"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.ExtractorProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("EXTRACTOR_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.ExtractorProvider)
	}
	switch c.OCREngine {
	case EngineTesseract, EngineVision, EngineDocumentAI:
	default:
		return fmt.Errorf("OCR_ENGINE must be %q, %q or %q, got %q", EngineTesseract, EngineVision, EngineDocumentAI, c.OCREngine)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// GetLoggerConfig maps the logging fields into the logger package's config.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
