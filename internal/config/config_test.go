package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("CANARY_HTTP_PORT", "9090")
	t.Setenv("CANARY_JWT_SECRET", "s3cret")
	t.Setenv("CANARY_DB_DRIVER", "sqlite")
	t.Setenv("CANARY_SQLITE_PATH", "/tmp/canary-test.db")
	t.Setenv("CANARY_GEMINI_API_KEY", "g-key")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, ":9090", cfg.GetHTTPAddr())
	assert.Equal(t, "g-key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, 30, cfg.TokenTTLDays)
}

func TestValidateRequiresSecret(t *testing.T) {
	cfg := NewForTesting()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateDriverRequirements(t *testing.T) {
	cfg := NewForTesting()
	cfg.DBDriver = "postgres"
	cfg.PostgresDSN = ""
	assert.Error(t, cfg.Validate())

	cfg.PostgresDSN = "postgres://localhost/canary"
	assert.NoError(t, cfg.Validate())

	cfg.DBDriver = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestNewForTesting(t *testing.T) {
	cfg := NewForTesting()
	assert.True(t, cfg.IsTesting())
	assert.False(t, cfg.IsProduction())
	require.NoError(t, cfg.Validate())
}
