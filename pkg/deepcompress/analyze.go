package deepcompress

import (
	"context"

	"github.com/deepcompress/deepcompress/internal/domain"
	"github.com/deepcompress/deepcompress/internal/llm"
)

// SearchResult is a similarity hit from the vector index.
type SearchResult struct {
	DocumentID  string
	Fingerprint string
	Content     string
	Similarity  float32
}

// Analysis pairs a compressed document with the answer produced over it.
type Analysis struct {
	Document *domain.CompressedDocument
	Answer   *llm.Answer
}

// CompressAndAnalyze compresses the file and answers the question using the
// compressed text as the model's only context. The compression step hits
// the cache like any other Compress call.
func (c *Compressor) CompressAndAnalyze(ctx context.Context, path, question string) (*Analysis, error) {
	if c.llmClient == nil {
		return nil, domain.ConfigError("LLM client is not configured, set an API key", nil)
	}

	doc, err := c.Compress(ctx, path)
	if err != nil {
		return nil, err
	}

	answer, err := c.llmClient.Query(ctx, doc.Text, question)
	if err != nil {
		return nil, err
	}

	return &Analysis{Document: doc, Answer: answer}, nil
}

// Search finds previously compressed documents similar to the query text.
// Requires the vector index to be enabled.
func (c *Compressor) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if c.index == nil {
		return nil, domain.ConfigError("vector index is not enabled", nil)
	}
	hits, err := c.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult(h)
	}
	return results, nil
}
