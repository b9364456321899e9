// Package config provides unified configuration loading for the compression
// pipeline. Supports YAML files, environment variables, and programmatic
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deepcompress/deepcompress/internal/cache"
	"github.com/deepcompress/deepcompress/internal/dtoon"
)

// Config holds all configuration for the compression pipeline.
type Config struct {
	Document      DocumentConfig      `yaml:"document"`
	OCR           OCRConfig           `yaml:"ocr"`
	Batch         BatchConfig         `yaml:"batch"`
	Cache         CacheConfig         `yaml:"cache"`
	LLM           LLMConfig           `yaml:"llm"`
	Vector        VectorConfig        `yaml:"vector"`
	PII           PIIConfig           `yaml:"pii"`
	Tokenizer     TokenizerConfig     `yaml:"tokenizer"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DocumentConfig holds input document limits.
type DocumentConfig struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
	MaxPages     int   `yaml:"max_pages"`
	ImageQuality int   `yaml:"image_quality"`
}

// OCRConfig holds OCR inference server settings.
type OCRConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Mode              string        `yaml:"mode"` // small or base
	MaxNewTokens      int           `yaml:"max_new_tokens"`
	Temperature       float64       `yaml:"temperature"`
	RepetitionPenalty float64       `yaml:"repetition_penalty"`
	Timeout           time.Duration `yaml:"timeout"`
}

// BatchConfig holds page extraction concurrency settings.
type BatchConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// CacheConfig holds compression cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

// LLMConfig holds question answering settings.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	CostPerMTok float64       `yaml:"cost_per_mtok"` // USD per million input tokens
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Compress   bool   `yaml:"compress"`
}

// PIIConfig holds PII scrubbing settings.
type PIIConfig struct {
	Enabled  bool            `yaml:"enabled"`
	Patterns []CustomPattern `yaml:"patterns"`
}

// CustomPattern is a user-supplied redaction pattern.
type CustomPattern struct {
	Name        string `yaml:"name"`
	Regexp      string `yaml:"regexp"`
	Replacement string `yaml:"replacement"`
}

// TokenizerConfig holds token counting settings.
type TokenizerConfig struct {
	Encoding string `yaml:"encoding"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or console
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Document: DocumentConfig{
			MaxSizeBytes: 200 * 1024 * 1024,
			MaxPages:     1000,
			ImageQuality: 85,
		},
		OCR: OCRConfig{
			Endpoint:          "http://localhost:8000/infer",
			Mode:              "base",
			MaxNewTokens:      2048,
			Temperature:       0.0,
			RepetitionPenalty: 1.05,
			Timeout:           2 * time.Minute,
		},
		Batch: BatchConfig{
			Concurrency:    8,
			MaxAttempts:    3,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				DB:        0,
				PoolSize:  10,
				KeyPrefix: "dc:",
			},
		},
		LLM: LLMConfig{
			Model:       "anthropic/claude-3.5-haiku",
			BaseURL:     "https://openrouter.ai/api/v1/chat/completions",
			Timeout:     2 * time.Minute,
			CostPerMTok: 3.0,
		},
		Vector: VectorConfig{
			Enabled:    false,
			Path:       "",
			Collection: "deepcompress",
		},
		PII: PIIConfig{
			Enabled: false,
		},
		Tokenizer: TokenizerConfig{
			Encoding: "cl100k_base",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.OCR.Mode != "small" && c.OCR.Mode != "base" {
		return fmt.Errorf("invalid ocr mode: %s", c.OCR.Mode)
	}

	if c.OCR.Endpoint == "" {
		return fmt.Errorf("ocr endpoint cannot be empty")
	}

	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch concurrency must be at least 1")
	}

	if c.Batch.MaxAttempts < 1 {
		return fmt.Errorf("batch max_attempts must be at least 1")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Document.ImageQuality < 1 || c.Document.ImageQuality > 100 {
		return fmt.Errorf("image quality must be between 1 and 100")
	}

	return nil
}

// FingerprintConfig returns the output-affecting settings that participate
// in the cache fingerprint. Throughput knobs stay out so tuning them does
// not invalidate cached results.
func (c *Config) FingerprintConfig() cache.FingerprintConfig {
	return cache.FingerprintConfig{
		OCRMode:           c.OCR.Mode,
		OCREndpoint:       c.OCR.Endpoint,
		PIIScrubbing:      c.PII.Enabled,
		TokenizerEncoding: c.Tokenizer.Encoding,
		FormatVersion:     dtoon.Version,
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEEPCOMPRESS_OCR_ENDPOINT"); v != "" {
		cfg.OCR.Endpoint = v
	}

	if v := os.Getenv("DEEPCOMPRESS_OCR_MODE"); v != "" {
		cfg.OCR.Mode = v
	}

	if v := os.Getenv("DEEPCOMPRESS_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Concurrency = n
		}
	}

	if v := os.Getenv("DEEPCOMPRESS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	if v := os.Getenv("DEEPCOMPRESS_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("DEEPCOMPRESS_PII_SCRUBBING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.PII.Enabled = b
		}
	}

	if v := os.Getenv("DEEPCOMPRESS_VECTOR_PATH"); v != "" {
		cfg.Vector.Enabled = true
		cfg.Vector.Path = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	return filepath.Join(filepath.Dir(configPath), targetPath)
}
