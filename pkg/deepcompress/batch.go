package deepcompress

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// Progress accumulates totals across a directory run.
type Progress struct {
	Total        int
	Processed    int
	Failed       int
	CacheHits    int
	TokensSaved  int
	CostSavedUSD float64
}

// FileResult reports the outcome for one file in a directory run.
type FileResult struct {
	Path     string
	Document *domain.CompressedDocument
	Err      error
}

// ProcessDirectory compresses every PDF in dir, in name order, invoking
// onResult after each file. Per-file failures are recorded and do not stop
// the run; only context cancellation aborts it. onResult may be nil.
func (c *Compressor) ProcessDirectory(ctx context.Context, dir string, onResult func(FileResult)) (*Progress, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("cannot read directory: %s", dir), err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	progress := &Progress{Total: len(paths)}
	if len(paths) == 0 {
		return progress, nil
	}

	costPerMTok := c.cfg.LLM.CostPerMTok
	if costPerMTok <= 0 {
		costPerMTok = CostPerMTok(c.cfg.LLM.Model)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return progress, err
		}

		doc, err := c.Compress(ctx, path)
		if err != nil {
			progress.Failed++
			c.logger.Error().Err(err).Str("path", path).Msg("file compression failed")
		} else {
			progress.Processed++
			progress.TokensSaved += doc.TokensSaved()
			progress.CostSavedUSD += CostSavedUSD(doc, costPerMTok)
			if doc.CacheHit {
				progress.CacheHits++
			}
		}

		if onResult != nil {
			onResult(FileResult{Path: path, Document: doc, Err: err})
		}
	}

	return progress, nil
}
