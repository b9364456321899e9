package domain

import "context"

// Rasterizer converts a source document into per-page images. Each call
// renders into its own scratch space so concurrent invocations never share
// files; the returned cleanup releases that call's scratch space.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, quality int) ([]PageImage, func() error, error)
}

// PageExtractor turns one page image into structured page content.
// Implementations classify failures as retryable or fatal via the
// domain error types; the batch orchestrator owns the retry policy.
type PageExtractor interface {
	ExtractPage(ctx context.Context, image PageImage) (*Page, error)
}

// TokenCounter counts model tokens in a text. Used identically on the
// original serialization and on the compact encoding so reported ratios
// compare like with like.
type TokenCounter interface {
	Count(text string) int
}
