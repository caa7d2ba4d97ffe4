package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "PORT", "")
	setEnv(t, "MODEL_DIR", "")
	setEnv(t, "RATE_LIMIT_RPM", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultModelDir, cfg.ModelDir)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimitRPM)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "ENV", "production")
	setEnv(t, "MODEL_DIR", "/opt/sentinel/models")
	setEnv(t, "RATE_LIMIT_RPM", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "/opt/sentinel/models", cfg.ModelDir)
	assert.Equal(t, 30, cfg.RateLimitRPM)
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	setEnv(t, "RATE_LIMIT_RPM", "-5")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPM")
}

func TestArtifactPaths(t *testing.T) {
	cfg := &Config{ModelDir: "models"}

	assert.Equal(t, "models/feature_schema.json", cfg.SchemaPath())
	assert.Equal(t, "models/calibrated_classifier.json", cfg.ClassifierPath())
	assert.Equal(t, "models/drift_detector.json", cfg.DetectorPath())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "valid config",
			config:  Config{ModelDir: "models", RateLimitRPM: 60},
			wantErr: "",
		},
		{
			name:    "missing model dir",
			config:  Config{ModelDir: "", RateLimitRPM: 60},
			wantErr: "MODEL_DIR is required",
		},
		{
			name:    "zero rate limit",
			config:  Config{ModelDir: "models", RateLimitRPM: 0},
			wantErr: "RATE_LIMIT_RPM must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
