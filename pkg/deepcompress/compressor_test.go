package deepcompress

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcompress/deepcompress/internal/config"
	"github.com/deepcompress/deepcompress/internal/domain"
)

// fakeRasterizer emits one image per configured page, ignoring the file
// contents.
type fakeRasterizer struct {
	pages int
	calls atomic.Int32
}

func (f *fakeRasterizer) Rasterize(_ context.Context, path string, _ int) ([]domain.PageImage, func() error, error) {
	f.calls.Add(1)
	images := make([]domain.PageImage, f.pages)
	for i := range images {
		images[i] = domain.PageImage{
			PageNumber: i + 1,
			ImagePath:  fmt.Sprintf("%s.page%d.jpg", path, i+1),
		}
	}
	return images, func() error { return nil }, nil
}

// fakeExtractor produces a deterministic page per image, with an optional
// per-page failure.
type fakeExtractor struct {
	failPage int
}

func (f *fakeExtractor) ExtractPage(_ context.Context, img domain.PageImage) (*domain.Page, error) {
	if img.PageNumber == f.failPage {
		return nil, domain.FatalExtractionError("scripted failure", nil)
	}
	entities := make([]domain.Entity, 3)
	for i := range entities {
		entities[i] = domain.Entity{Fields: []domain.Field{
			{Name: "name", Value: domain.String(fmt.Sprintf("person-%d-%d", img.PageNumber, i+1))},
			{Name: "income", Value: domain.Number(50000 + float64(i))},
			{Name: "ssn", Value: domain.String("123-45-6789")},
		}}
	}
	return &domain.Page{
		Number:   img.PageNumber,
		Entities: entities,
		Text:     fmt.Sprintf("notes for page %d", img.PageNumber),
	}, nil
}

// charCounter is a trivial token counter for deterministic assertions.
type charCounter struct{}

func (charCounter) Count(text string) int { return len(text) }

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Batch.Concurrency = 2
	cfg.Batch.MaxAttempts = 1
	return cfg
}

func newTestCompressor(t *testing.T, cfg *config.Config, rast *fakeRasterizer, ext *fakeExtractor) *Compressor {
	t.Helper()
	c, err := NewWithDependencies(cfg, Dependencies{
		Rasterizer:   rast,
		Extractor:    ext,
		TokenCounter: charCounter{},
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func writePDF(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompress_EndToEnd(t *testing.T) {
	c := newTestCompressor(t, testConfig(), &fakeRasterizer{pages: 2}, &fakeExtractor{})
	path := writePDF(t, "loan.pdf", "%PDF-1.7 sample")

	doc, err := c.Compress(context.Background(), path)

	require.NoError(t, err)
	assert.NotEmpty(t, doc.DocumentID)
	assert.NotEmpty(t, doc.Fingerprint)
	assert.False(t, doc.CacheHit)
	assert.Empty(t, doc.PageErrors)
	assert.Greater(t, doc.OriginalTokens, 0)
	assert.Greater(t, doc.CompressedTokens, 0)
	assert.InDelta(t, float64(doc.OriginalTokens)/float64(doc.CompressedTokens), doc.CompressionRatio, 1e-9)
	assert.Greater(t, doc.CompressionRatio, 1.0, "compact text must cost fewer tokens than the original")
	assert.Contains(t, doc.Text, "page:1")
	assert.Contains(t, doc.Text, "page:2")

	// The compressed text parses back into the full two-page tree.
	parsed, err := c.Decode(doc.Text)
	require.NoError(t, err)
	require.Len(t, parsed.Pages, 2)
	v, ok := parsed.Pages[0].Entities[0].Get("name")
	require.True(t, ok)
	assert.Equal(t, domain.String("person-1-1"), v)
}

func TestCompress_SecondCallHitsCache(t *testing.T) {
	rast := &fakeRasterizer{pages: 1}
	c := newTestCompressor(t, testConfig(), rast, &fakeExtractor{})
	path := writePDF(t, "loan.pdf", "%PDF-1.7 sample")
	ctx := context.Background()

	first, err := c.Compress(ctx, path)
	require.NoError(t, err)
	second, err := c.Compress(ctx, path)
	require.NoError(t, err)

	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, int32(1), rast.calls.Load())
}

func TestCompress_ChangedContentRecomputes(t *testing.T) {
	rast := &fakeRasterizer{pages: 1}
	c := newTestCompressor(t, testConfig(), rast, &fakeExtractor{})
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("version one"), 0o644))
	first, err := c.Compress(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version two"), 0o644))
	second, err := c.Compress(ctx, path)
	require.NoError(t, err)

	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
	assert.False(t, second.CacheHit)
	assert.Equal(t, int32(2), rast.calls.Load())
}

func TestCompress_PIIScrubbing(t *testing.T) {
	cfg := testConfig()
	cfg.PII.Enabled = true
	c := newTestCompressor(t, cfg, &fakeRasterizer{pages: 1}, &fakeExtractor{})
	path := writePDF(t, "loan.pdf", "%PDF-1.7 sample")

	doc, err := c.Compress(context.Background(), path)

	require.NoError(t, err)
	assert.NotContains(t, doc.Text, "123-45-6789")
	assert.Contains(t, doc.Text, "[REDACTED-SSN]")
}

func TestCompress_FailedPageRecordedAsPageError(t *testing.T) {
	c := newTestCompressor(t, testConfig(), &fakeRasterizer{pages: 3}, &fakeExtractor{failPage: 2})
	path := writePDF(t, "loan.pdf", "%PDF-1.7 sample")

	doc, err := c.Compress(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, doc.PageErrors, 1)
	assert.Equal(t, 2, doc.PageErrors[0].Page)

	// Surviving pages are intact and the failed page decodes as empty.
	parsed, err := c.Decode(doc.Text)
	require.NoError(t, err)
	require.Len(t, parsed.Pages, 3)
	assert.False(t, parsed.Pages[0].Empty())
	assert.True(t, parsed.Pages[1].Empty())
	assert.False(t, parsed.Pages[2].Empty())
}

func TestCompress_MissingFile(t *testing.T) {
	c := newTestCompressor(t, testConfig(), &fakeRasterizer{pages: 1}, &fakeExtractor{})

	_, err := c.Compress(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))

	require.Error(t, err)
	assert.True(t, domain.IsUnsupported(err))
}

func TestCompressAndAnalyze_RequiresLLMConfig(t *testing.T) {
	c := newTestCompressor(t, testConfig(), &fakeRasterizer{pages: 1}, &fakeExtractor{})

	_, err := c.CompressAndAnalyze(context.Background(), "any.pdf", "what is this?")

	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestProcessDirectory_AggregatesProgress(t *testing.T) {
	c := newTestCompressor(t, testConfig(), &fakeRasterizer{pages: 1}, &fakeExtractor{})
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("doc a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("doc a"), 0o644)) // same bytes as a.pdf
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	var seen []string
	progress, err := c.ProcessDirectory(context.Background(), dir, func(r FileResult) {
		seen = append(seen, filepath.Base(r.Path))
	})

	require.NoError(t, err)
	assert.Equal(t, 2, progress.Total)
	assert.Equal(t, 2, progress.Processed)
	assert.Equal(t, 0, progress.Failed)
	assert.Equal(t, 1, progress.CacheHits) // b.pdf shares a.pdf's fingerprint
	assert.Greater(t, progress.TokensSaved, 0)
	assert.Greater(t, progress.CostSavedUSD, 0.0)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, seen)
}

func TestProcessDirectory_EmptyDirectory(t *testing.T) {
	c := newTestCompressor(t, testConfig(), &fakeRasterizer{pages: 1}, &fakeExtractor{})

	progress, err := c.ProcessDirectory(context.Background(), t.TempDir(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, progress.Total)
}

func TestCostSavedUSD(t *testing.T) {
	doc := &domain.CompressedDocument{OriginalTokens: 1_000_000, CompressedTokens: 400_000}

	assert.InDelta(t, 1.8, CostSavedUSD(doc, 3.0), 1e-9)
	// Unknown pricing falls back to the default.
	assert.InDelta(t, 1.8, CostSavedUSD(doc, 0), 1e-9)
	assert.Equal(t, 0.80, CostPerMTok("anthropic/claude-3.5-haiku"))
	assert.Equal(t, defaultCostPerMTok, CostPerMTok("unknown/model"))
}
