package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "base", cfg.OCR.Mode)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "cl100k_base", cfg.Tokenizer.Encoding)
	assert.False(t, cfg.PII.Enabled)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ocr:
  mode: small
  endpoint: http://ocr.internal:9000/infer
batch:
  concurrency: 4
cache:
  driver: redis
  ttl: 1h
  redis:
    addr: redis.internal:6379
pii:
  enabled: true
  patterns:
    - name: case_id
      regexp: CASE-\d{6}
      replacement: "[REDACTED-CASE]"
`), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "small", cfg.OCR.Mode)
	assert.Equal(t, "http://ocr.internal:9000/infer", cfg.OCR.Endpoint)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Addr)
	require.Len(t, cfg.PII.Patterns, 1)
	assert.Equal(t, "case_id", cfg.PII.Patterns[0].Name)
	// Untouched sections keep defaults.
	assert.Equal(t, 3, cfg.Batch.MaxAttempts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("DEEPCOMPRESS_OCR_MODE", "small")
	t.Setenv("DEEPCOMPRESS_CONCURRENCY", "2")
	t.Setenv("DEEPCOMPRESS_CACHE_TTL", "30m")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "small", cfg.OCR.Mode)
	assert.Equal(t, 2, cfg.Batch.Concurrency)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		yaml string
	}{
		{"bad ocr mode", "ocr:\n  mode: huge\n"},
		{"zero concurrency", "batch:\n  concurrency: 0\n"},
		{"unknown cache driver", "cache:\n  driver: memcached\n"},
		{"bad image quality", "document:\n  image_quality: 150\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)

			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestFingerprintConfig_CarriesOutputAffectingFieldsOnly(t *testing.T) {
	cfg := DefaultConfig()
	fp := cfg.FingerprintConfig()

	assert.Equal(t, cfg.OCR.Mode, fp.OCRMode)
	assert.Equal(t, cfg.OCR.Endpoint, fp.OCREndpoint)
	assert.Equal(t, cfg.PII.Enabled, fp.PIIScrubbing)
	assert.Equal(t, cfg.Tokenizer.Encoding, fp.TokenizerEncoding)
	assert.NotEmpty(t, fp.FormatVersion)

	// Throughput tuning must not change the fingerprint inputs.
	tuned := DefaultConfig()
	tuned.Batch.Concurrency = 32
	tuned.Cache.TTL = time.Minute
	assert.Equal(t, fp, tuned.FingerprintConfig())
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, "/abs/path", ResolveRelativePath("/etc/dc/config.yaml", "/abs/path"))
	assert.Equal(t, filepath.Join("/etc/dc", "index"), ResolveRelativePath("/etc/dc/config.yaml", "index"))
}
