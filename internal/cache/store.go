package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// ComputeFunc produces a compressed document when the key is not resident.
type ComputeFunc func(ctx context.Context) (*domain.CompressedDocument, error)

// Store wraps a backing Client with single-flight computation: concurrent
// callers for the same key share one in-flight computation instead of
// duplicating it.
type Store struct {
	backing Client
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewStore creates a cache store over the given backing.
func NewStore(backing Client, logger zerolog.Logger) *Store {
	return &Store{
		backing: backing,
		logger:  logger.With().Str("component", "cache").Logger(),
	}
}

// GetOrCompute returns a cached, non-expired artifact for key, or invokes
// compute exactly once across all concurrent callers and stores the result
// with now+ttl expiry. The returned bool reports whether the value was
// already resident; every sharer of a fresh computation observes false.
// A failed computation propagates to all waiters and leaves the key
// uncached, so the next call retries.
func (s *Store) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (*domain.CompressedDocument, bool, error) {
	if doc, ok := s.lookup(ctx, key); ok {
		return annotate(doc, true), true, nil
	}

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		// A computation that finished while we queued may have stored
		// the artifact already.
		if doc, ok := s.lookup(ctx, key); ok {
			return doc, nil
		}

		doc, err := compute(ctx)
		if err != nil {
			return nil, domain.CacheComputationError("compute failed for key "+key, err)
		}

		payload, err := json.Marshal(doc)
		if err != nil {
			return nil, domain.CacheComputationError("marshal compressed document", err)
		}
		if err := s.backing.Set(ctx, key, payload, ttl); err != nil {
			// The artifact is still valid; only reuse is lost.
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to store cache entry")
		}
		return doc, nil
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug().Str("key", key).Bool("shared", shared).Msg("cache computation settled")
	return annotate(v.(*domain.CompressedDocument), false), false, nil
}

// Invalidate drops a key so the next lookup recomputes.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	return s.backing.Delete(ctx, key)
}

// Close releases the backing client.
func (s *Store) Close() error {
	return s.backing.Close()
}

func (s *Store) lookup(ctx context.Context, key string) (*domain.CompressedDocument, bool) {
	payload, err := s.backing.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache lookup failed, computing")
		return nil, false
	}

	var doc domain.CompressedDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = s.backing.Delete(ctx, key)
		return nil, false
	}
	return &doc, true
}

// annotate returns a copy with the cache-hit flag set; cached artifacts are
// never mutated in place.
func annotate(doc *domain.CompressedDocument, hit bool) *domain.CompressedDocument {
	out := *doc
	out.CacheHit = hit
	return &out
}
