// Package vectorindex stores compressed documents in an embedded vector
// database so they can be retrieved by semantic similarity.
package vectorindex

import (
	"context"
	"fmt"
	"os"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// Config configures the embedded vector index.
type Config struct {
	// Path is the directory for persistent storage. Empty means in-memory.
	Path       string
	Collection string
	Compress   bool
}

// SearchResult is a single similarity hit.
type SearchResult struct {
	DocumentID  string
	Fingerprint string
	Content     string
	Similarity  float32
}

// Index wraps a chromem-go collection keyed by document ID.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     zerolog.Logger
}

// New opens or creates the index. The embedding function is applied both at
// insert and at query time; pass nil to use chromem's default embedder.
func New(cfg Config, embed chromem.EmbeddingFunc, logger zerolog.Logger) (*Index, error) {
	if cfg.Collection == "" {
		cfg.Collection = "deepcompress"
	}

	var (
		db  *chromem.DB
		err error
	)
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, domain.IOError(fmt.Sprintf("cannot create index directory %s", cfg.Path), err)
		}
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, domain.IOError("cannot open vector index", err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("cannot open collection %s", cfg.Collection), err)
	}

	return &Index{
		db:         db,
		collection: collection,
		logger:     logger.With().Str("component", "vectorindex").Logger(),
	}, nil
}

// Upsert stores a compressed document under its document ID. Re-indexing the
// same ID replaces the previous entry.
func (i *Index) Upsert(ctx context.Context, doc *domain.CompressedDocument) error {
	entry := chromem.Document{
		ID:      doc.DocumentID,
		Content: doc.Text,
		Metadata: map[string]string{
			"fingerprint":       doc.Fingerprint,
			"original_tokens":   strconv.Itoa(doc.OriginalTokens),
			"compressed_tokens": strconv.Itoa(doc.CompressedTokens),
		},
	}
	if err := i.collection.AddDocuments(ctx, []chromem.Document{entry}, 1); err != nil {
		return domain.IOError(fmt.Sprintf("cannot index document %s", doc.DocumentID), err)
	}

	i.logger.Debug().Str("document_id", doc.DocumentID).Msg("document indexed")
	return nil
}

// Search returns up to k documents most similar to the query text.
func (i *Index) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if query == "" {
		return nil, domain.ValidationError("query cannot be empty", nil)
	}
	if k <= 0 {
		k = 5
	}
	if count := i.collection.Count(); k > count {
		if count == 0 {
			return nil, nil
		}
		k = count
	}

	results, err := i.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, domain.IOError("vector query failed", err)
	}

	hits := make([]SearchResult, len(results))
	for n, r := range results {
		hits[n] = SearchResult{
			DocumentID:  r.ID,
			Fingerprint: r.Metadata["fingerprint"],
			Content:     r.Content,
			Similarity:  r.Similarity,
		}
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() int {
	return i.collection.Count()
}
