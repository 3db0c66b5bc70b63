package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, int64(10<<20), cfg.MaxContentLength)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 0.8, cfg.ConfidenceThreshold)
	assert.False(t, cfg.UseS3())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestYAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\nocr_languages: ind\n"), 0644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7001", cfg.Port, "environment wins over the file")
	assert.Equal(t, "ind", cfg.OCRLanguages)
}

func TestInvalidValuesRejected(t *testing.T) {
	t.Setenv("MAX_CONTENT_LENGTH", "-1")

	_, err := Load()
	assert.Error(t, err)
}

func TestAllowsContentType(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.AllowsContentType("image/jpeg"))
	assert.True(t, cfg.AllowsContentType("image/png"))
	assert.True(t, cfg.AllowsContentType("IMAGE/PNG"))
	assert.False(t, cfg.AllowsContentType("application/pdf"))
	assert.False(t, cfg.AllowsContentType("image/gif"))
}
