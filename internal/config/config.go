package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/usamaalam01/LabReportAI/internal/logger"
)

// Supported OCR backends.
const (
	OCREngineVision     = "vision"
	OCREngineDocumentAI = "documentai"
)

type Config struct {
	// Database
	DatabaseURL string

	// LLM provider (any OpenAI-compatible chat completions endpoint;
	// Groq and OpenAI are both reachable through the base URL)
	LLMAPIKey           string
	LLMBaseURL          string
	LLMAnalysisModel    string
	LLMValidationModel  string
	LLMTranslationModel string
	LLMChatModel        string

	// ChatMessageLimit caps the number of questions per report in a chat
	// session. Zero disables the cap.
	ChatMessageLimit int

	// OCR backend: "vision" or "documentai"
	OCREngine string

	// Google Cloud (Vision / Document AI)
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Validation
	ValidationThreshold  float64
	ValidationFailClosed bool // reject on classifier transport failure instead of failing open
	ValidationRetries    int
	AnalysisRetries      int
	TranslationRetries   int

	// Storage
	StoragePath    string
	RetentionHours int

	// PDF rendering (external HTML-to-PDF converter)
	PDFConverter string

	// Twilio (WhatsApp notifications)
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string

	// Public URL this service is reachable at, used for PDF download links
	// in notifications. Empty disables media attachments.
	PublicBaseURL string

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		LLMAPIKey:             getEnv("LLM_API_KEY", ""),
		LLMBaseURL:            getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAnalysisModel:      getEnv("LLM_ANALYSIS_MODEL", "llama-3.3-70b-versatile"),
		LLMValidationModel:    getEnv("LLM_VALIDATION_MODEL", "llama-3.1-8b-instant"),
		LLMTranslationModel:   getEnv("LLM_TRANSLATION_MODEL", "llama-3.1-8b-instant"),
		LLMChatModel:          getEnv("LLM_CHAT_MODEL", "llama-3.3-70b-versatile"),
		ChatMessageLimit:      getIntEnv("CHAT_MESSAGE_LIMIT", 20),
		OCREngine:             getEnv("OCR_ENGINE", OCREngineVision),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		ValidationThreshold:   getFloatEnv("VALIDATION_THRESHOLD", 0.8),
		ValidationFailClosed:  getBoolEnv("VALIDATION_FAIL_CLOSED", false),
		ValidationRetries:     getIntEnv("VALIDATION_RETRIES", 2),
		AnalysisRetries:       getIntEnv("ANALYSIS_RETRIES", 2),
		TranslationRetries:    getIntEnv("TRANSLATION_RETRIES", 2),
		StoragePath:           getEnv("STORAGE_PATH", "./storage"),
		RetentionHours:        getIntEnv("RETENTION_HOURS", 48),
		PDFConverter:          getEnv("PDF_CONVERTER", "weasyprint"),
		TwilioAccountSID:      getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:       getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppNumber:  getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.OCREngine != OCREngineVision && c.OCREngine != OCREngineDocumentAI {
		return fmt.Errorf("OCR_ENGINE must be %q or %q, got %q", OCREngineVision, OCREngineDocumentAI, c.OCREngine)
	}
	if c.OCREngine == OCREngineDocumentAI && c.DocumentAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required when OCR_ENGINE=documentai")
	}
	if c.ValidationThreshold < 0 || c.ValidationThreshold > 1 {
		return fmt.Errorf("VALIDATION_THRESHOLD must be in [0,1], got %v", c.ValidationThreshold)
	}
	return nil
}

// UploadsPath is where submitted documents live.
func (c *Config) UploadsPath() string {
	return c.StoragePath + "/uploads"
}

// OutputsPath is where rendered charts and PDFs are written, one
// directory per job.
func (c *Config) OutputsPath() string {
	return c.StoragePath + "/outputs"
}

// GetLoggerConfig returns a logger configuration from the main config
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

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true") || value == "1"
	}
	return defaultValue
}
