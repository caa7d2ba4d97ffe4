// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Model artifacts
	ModelDir string // directory holding feature_schema.json and model artifacts

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory audit store if not set)

	// Rate limiting
	RateLimitRPM int

	// Tracing
	OTLPEndpoint string // OTLP gRPC endpoint (optional, tracing disabled if not set)
}

// Defaults
const (
	DefaultPort      = "8080"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultModelDir  = "models"
	DefaultRateLimit = 120
)

// Artifact filenames expected inside ModelDir.
const (
	SchemaFile     = "feature_schema.json"
	ClassifierFile = "calibrated_classifier.json"
	DetectorFile   = "drift_detector.json"
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", DefaultPort),
		Env:          getEnv("ENV", DefaultEnv),
		LogLevel:     getEnv("LOG_LEVEL", DefaultLogLevel),
		ModelDir:     getEnv("MODEL_DIR", DefaultModelDir),
		DatabaseURL:  os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.ModelDir == "" {
		return fmt.Errorf("MODEL_DIR is required")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}
	return nil
}

// SchemaPath returns the full path to the feature schema artifact.
func (c *Config) SchemaPath() string {
	return filepath.Join(c.ModelDir, SchemaFile)
}

// ClassifierPath returns the full path to the calibrated classifier artifact.
func (c *Config) ClassifierPath() string {
	return filepath.Join(c.ModelDir, ClassifierFile)
}

// DetectorPath returns the full path to the drift detector artifact.
func (c *Config) DetectorPath() string {
	return filepath.Join(c.ModelDir, DetectorFile)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
