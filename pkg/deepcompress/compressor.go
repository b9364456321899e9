// Package deepcompress compresses OCR'd documents into a compact textual
// encoding that preserves their full structure while cutting token counts.
package deepcompress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"github.com/deepcompress/deepcompress/internal/batch"
	"github.com/deepcompress/deepcompress/internal/cache"
	"github.com/deepcompress/deepcompress/internal/config"
	"github.com/deepcompress/deepcompress/internal/domain"
	"github.com/deepcompress/deepcompress/internal/dtoon"
	"github.com/deepcompress/deepcompress/internal/llm"
	"github.com/deepcompress/deepcompress/internal/ocr"
	"github.com/deepcompress/deepcompress/internal/pdf"
	"github.com/deepcompress/deepcompress/internal/pii"
	"github.com/deepcompress/deepcompress/internal/tokenizer"
	"github.com/deepcompress/deepcompress/internal/vectorindex"
)

// Compressor is the high-level entry point: PDF in, compressed document out.
// Safe for concurrent use.
type Compressor struct {
	cfg          *config.Config
	rasterizer   domain.Rasterizer
	orchestrator *batch.Orchestrator
	store        *cache.Store
	counter      domain.TokenCounter
	scrubber     *pii.Scrubber
	index        *vectorindex.Index
	llmClient    *llm.Client
	logger       zerolog.Logger
}

// Dependencies lets callers substitute collaborators. Nil fields are wired
// from the configuration.
type Dependencies struct {
	Rasterizer   domain.Rasterizer
	Extractor    domain.PageExtractor
	CacheClient  cache.Client
	TokenCounter domain.TokenCounter
	Index        *vectorindex.Index
}

// New creates a compressor with collaborators wired from the configuration.
func New(cfg *config.Config, logger zerolog.Logger) (*Compressor, error) {
	return NewWithDependencies(cfg, Dependencies{}, logger)
}

// NewWithDependencies creates a compressor, using the supplied collaborators
// where given and wiring the rest from the configuration.
func NewWithDependencies(cfg *config.Config, deps Dependencies, logger zerolog.Logger) (*Compressor, error) {
	if cfg == nil {
		return nil, domain.ConfigError("configuration is required", nil)
	}

	rasterizer := deps.Rasterizer
	if rasterizer == nil {
		validator := pdf.NewValidator(cfg.Document.MaxSizeBytes)
		rasterizer = pdf.NewConverter(validator, cfg.Document.MaxPages, logger)
	}

	extractor := deps.Extractor
	if extractor == nil {
		extractor = ocr.NewClient(ocr.Config{
			Endpoint:          cfg.OCR.Endpoint,
			Mode:              cfg.OCR.Mode,
			MaxNewTokens:      cfg.OCR.MaxNewTokens,
			Temperature:       cfg.OCR.Temperature,
			RepetitionPenalty: cfg.OCR.RepetitionPenalty,
			Timeout:           cfg.OCR.Timeout,
		}, logger)
	}

	cacheClient := deps.CacheClient
	if cacheClient == nil {
		var err error
		cacheClient, err = newCacheClient(cfg)
		if err != nil {
			return nil, err
		}
	}

	counter := deps.TokenCounter
	if counter == nil {
		counter = tokenizer.NewCounter(cfg.Tokenizer.Encoding, logger)
	}

	var scrubber *pii.Scrubber
	if cfg.PII.Enabled {
		scrubber = pii.NewScrubber()
		for _, p := range cfg.PII.Patterns {
			if err := scrubber.AddPattern(p.Name, p.Regexp, p.Replacement); err != nil {
				return nil, domain.ConfigError("invalid PII pattern", err)
			}
		}
	}

	index := deps.Index
	if index == nil && cfg.Vector.Enabled {
		// With an API key present, index embeddings come from an
		// OpenAI-compatible endpoint; otherwise chromem uses its default.
		var embed chromem.EmbeddingFunc
		if cfg.LLM.APIKey != "" {
			embed = chromem.NewEmbeddingFuncOpenAI(cfg.LLM.APIKey, chromem.EmbeddingModelOpenAI3Small)
		}
		var err error
		index, err = vectorindex.New(vectorindex.Config{
			Path:       cfg.Vector.Path,
			Collection: cfg.Vector.Collection,
			Compress:   cfg.Vector.Compress,
		}, embed, logger)
		if err != nil {
			return nil, err
		}
	}

	var llmClient *llm.Client
	if cfg.LLM.APIKey != "" {
		llmClient = llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger)
	}

	orchestrator := batch.New(extractor, batch.Config{
		Concurrency:    cfg.Batch.Concurrency,
		MaxAttempts:    cfg.Batch.MaxAttempts,
		InitialBackoff: cfg.Batch.InitialBackoff,
		MaxBackoff:     cfg.Batch.MaxBackoff,
	}, logger)

	return &Compressor{
		cfg:          cfg,
		rasterizer:   rasterizer,
		orchestrator: orchestrator,
		store:        cache.NewStore(cacheClient, logger),
		counter:      counter,
		scrubber:     scrubber,
		index:        index,
		llmClient:    llmClient,
		logger:       logger.With().Str("component", "compressor").Logger(),
	}, nil
}

func newCacheClient(cfg *config.Config) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
			Prefix:   cfg.Cache.Redis.KeyPrefix,
		})
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
}

// Compress runs the full pipeline for one file. Results are cached by
// content fingerprint: an unchanged file compressed again under the same
// output-affecting configuration is served from the cache, and concurrent
// calls for the same file share a single computation.
func (c *Compressor) Compress(ctx context.Context, path string) (*domain.CompressedDocument, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.UnsupportedDocumentError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return nil, domain.IOError(fmt.Sprintf("cannot read file: %s", path), err)
	}

	key := cache.Fingerprint(fileBytes, c.cfg.FingerprintConfig())

	doc, hit, err := c.store.GetOrCompute(ctx, key, c.cfg.Cache.TTL, func(ctx context.Context) (*domain.CompressedDocument, error) {
		return c.compress(ctx, path, key)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("document_id", doc.DocumentID).
		Bool("cache_hit", hit).
		Int("original_tokens", doc.OriginalTokens).
		Int("compressed_tokens", doc.CompressedTokens).
		Float64("compression_ratio", doc.CompressionRatio).
		Msg("document compressed")

	return doc, nil
}

// compress is the uncached pipeline: rasterize, extract pages, encode,
// scrub, and account tokens.
func (c *Compressor) compress(ctx context.Context, path, fingerprint string) (*domain.CompressedDocument, error) {
	start := time.Now()

	images, cleanup, err := c.rasterizer.Rasterize(ctx, path, c.cfg.Document.ImageQuality)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cleanup(); err != nil {
			c.logger.Warn().Err(err).Msg("rasterizer cleanup failed")
		}
	}()

	result, err := c.orchestrator.Run(ctx, images)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		Pages:       result.Pages,
	}

	text, err := dtoon.Encode(doc)
	if err != nil {
		return nil, err
	}
	if c.scrubber != nil {
		text = c.scrubber.Scrub(text)
	}

	originalTokens := c.counter.Count(canonicalJSON(doc))
	compressedTokens := c.counter.Count(text)

	compressed := &domain.CompressedDocument{
		DocumentID:       doc.ID,
		Fingerprint:      fingerprint,
		Text:             text,
		OriginalTokens:   originalTokens,
		CompressedTokens: compressedTokens,
		CompressionRatio: ratio(originalTokens, compressedTokens),
		ProcessingTime:   time.Since(start),
		CacheHit:         false,
		PageErrors:       result.PageErrors,
	}

	if c.index != nil {
		if err := c.index.Upsert(ctx, compressed); err != nil {
			c.logger.Warn().Err(err).Str("document_id", doc.ID).Msg("vector indexing failed")
		}
	}

	return compressed, nil
}

// Decode parses previously compressed text back into the document tree.
func (c *Compressor) Decode(text string) (*domain.Document, error) {
	return dtoon.Decode(text)
}

// Invalidate drops the cached result for the given file, if any.
func (c *Compressor) Invalidate(ctx context.Context, path string) error {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return domain.IOError(fmt.Sprintf("cannot read file: %s", path), err)
	}
	return c.store.Invalidate(ctx, cache.Fingerprint(fileBytes, c.cfg.FingerprintConfig()))
}

// Close releases the cache backing.
func (c *Compressor) Close() error {
	return c.store.Close()
}

// ratio reports how many times smaller the compact encoding is, so 4.0
// means the original costs four times the tokens of the compressed text.
func ratio(original, compressed int) float64 {
	if original == 0 || compressed == 0 {
		return 1
	}
	return float64(original) / float64(compressed)
}

// canonicalJSON is the uncompressed baseline representation used for token
// accounting. Entity field order is preserved, so the baseline is stable
// for a given document.
func canonicalJSON(doc *domain.Document) string {
	data, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(data)
}
