package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Vision  VisionConfig
	Sink    SinkConfig
	History HistoryConfig
	Catalog CatalogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// VisionConfig holds vision-model configuration. The model identifier
// is resolved here, once, at startup; nothing re-derives it per call.
type VisionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
	Structured  bool
}

// SinkConfig selects and configures the spreadsheet sink.
type SinkConfig struct {
	// Kind is "sheets" or "xlsx".
	Kind string

	SpreadsheetID   string
	SheetRange      string
	CredentialsFile string

	WorkbookPath string
	SheetName    string
}

// HistoryConfig holds the local intake-history database settings.
type HistoryConfig struct {
	DSN string
}

// CatalogConfig points at the known-product-names list.
type CatalogConfig struct {
	Path          string
	MinSimilarity float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: getEnv("INTAKE_ADDR", ":8080"),
		},
		Vision: VisionConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			BaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout:     getEnvAsDuration("GEMINI_TIMEOUT", 45*time.Second),
			Temperature: getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			Structured:  getEnvAsBool("GEMINI_STRUCTURED", true),
		},
		Sink: SinkConfig{
			Kind:            getEnv("SINK_KIND", "xlsx"),
			SpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
			SheetRange:      getEnv("SHEETS_RANGE", "Intake!A:F"),
			CredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", ""),
			WorkbookPath:    getEnv("XLSX_PATH", "./intake.xlsx"),
			SheetName:       getEnv("XLSX_SHEET", "Intake"),
		},
		History: HistoryConfig{
			DSN: getEnv("HISTORY_DSN", "./intake.db"),
		},
		Catalog: CatalogConfig{
			Path:          getEnv("CATALOG_PATH", ""),
			MinSimilarity: getEnvAsFloat64("CATALOG_MIN_SIMILARITY", 0.55),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Vision.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "INTAKE_ADDR is required", ErrInvalidInput)
	}
	switch c.Sink.Kind {
	case "sheets":
		if c.Sink.SpreadsheetID == "" {
			return NewAppError("CONFIG_ERROR", "SHEETS_SPREADSHEET_ID is required for the sheets sink", ErrInvalidInput)
		}
	case "xlsx":
		if c.Sink.WorkbookPath == "" {
			return NewAppError("CONFIG_ERROR", "XLSX_PATH is required for the xlsx sink", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "SINK_KIND must be \"sheets\" or \"xlsx\"", ErrInvalidInput)
	}
	return nil
}
