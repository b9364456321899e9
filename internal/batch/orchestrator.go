// Package batch drives concurrency-bounded page extraction: pages are
// dispatched in windows sized to the concurrency ceiling, retried per page
// on transient failures, and reassembled strictly by page number.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// Config holds the orchestration knobs. None of them affect the produced
// document, only how fast it is produced.
type Config struct {
	Concurrency    int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns the orchestration defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:    8,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// Result is the ordered outcome of one batch run.
type Result struct {
	// Pages is ordered strictly by page number, one slot per input image.
	// Failed pages hold the sentinel empty Page for their number.
	Pages []domain.Page

	// PageErrors lists the pages whose extraction failed terminally.
	PageErrors []domain.PageError
}

// Orchestrator fans page images out to the extraction collaborator under a
// bounded window.
type Orchestrator struct {
	extractor domain.PageExtractor
	cfg       Config
	logger    zerolog.Logger
}

// New creates an orchestrator. Zero or negative config values fall back to
// the defaults.
func New(extractor domain.PageExtractor, cfg Config, logger zerolog.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	return &Orchestrator{
		extractor: extractor,
		cfg:       cfg,
		logger:    logger.With().Str("component", "batch").Logger(),
	}
}

// Run extracts all pages and returns them ordered by page number. A single
// page failure never aborts the batch; it fills the page's slot with a
// sentinel and records the failure. Cancellation stops dispatching further
// windows but lets in-flight window work drain.
func (o *Orchestrator) Run(ctx context.Context, images []domain.PageImage) (*Result, error) {
	for i, img := range images {
		if img.PageNumber != i+1 {
			return nil, domain.ValidationError(
				fmt.Sprintf("page image at index %d has number %d, want %d", i, img.PageNumber, i+1), nil)
		}
	}

	// Result slots are pre-allocated by page number, so completion order
	// within a window cannot reorder the output.
	pages := make([]domain.Page, len(images))

	var mu sync.Mutex
	var pageErrors []domain.PageError

	// In-flight extraction calls are never hard-killed by cancellation;
	// they drain so the collaborator is not left mid-request.
	workCtx := context.WithoutCancel(ctx)

	for start := 0; start < len(images); start += o.cfg.Concurrency {
		if err := ctx.Err(); err != nil {
			o.logger.Info().Int("dispatched", start).Int("total", len(images)).
				Msg("batch cancelled, suppressing remaining windows")
			return nil, err
		}

		window := images[start:min(start+o.cfg.Concurrency, len(images))]
		o.logger.Debug().Int("window_start", window[0].PageNumber).Int("window_size", len(window)).
			Msg("dispatching extraction window")

		g := new(errgroup.Group)
		for _, img := range window {
			g.Go(func() error {
				page, err := o.extractPage(ctx, workCtx, img)
				if err != nil {
					o.logger.Warn().Int("page", img.PageNumber).Err(err).Msg("page extraction failed")
					mu.Lock()
					pageErrors = append(pageErrors, domain.PageError{Page: img.PageNumber, Message: err.Error()})
					mu.Unlock()
					pages[img.PageNumber-1] = domain.Page{Number: img.PageNumber}
					return nil
				}
				pages[img.PageNumber-1] = *page
				return nil
			})
		}
		// The whole window settles before the next one is dispatched.
		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(pageErrors, func(i, j int) bool { return pageErrors[i].Page < pageErrors[j].Page })
	return &Result{Pages: pages, PageErrors: pageErrors}, nil
}

// extractPage runs one page through the retry policy: transient failures
// back off exponentially up to MaxAttempts, fatal failures stop immediately.
// ctx gates the scheduling of further attempts; workCtx carries the call.
func (o *Orchestrator) extractPage(ctx, workCtx context.Context, img domain.PageImage) (*domain.Page, error) {
	var lastErr error

	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		page, err := o.extractor.ExtractPage(workCtx, img)
		if err == nil {
			if page.Number != img.PageNumber {
				return nil, domain.FatalExtractionError(
					fmt.Sprintf("collaborator returned page %d for image %d", page.Number, img.PageNumber), nil)
			}
			return page, nil
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == o.cfg.MaxAttempts {
			break
		}

		backoff := o.backoff(attempt)
		o.logger.Warn().Int("page", img.PageNumber).Int("attempt", attempt).
			Dur("backoff", backoff).Err(err).Msg("transient extraction failure, retrying")

		select {
		case <-ctx.Done():
			// No further attempts once the batch is cancelled.
			return nil, lastErr
		case <-time.After(backoff):
		}
	}

	return nil, domain.FatalExtractionError(
		fmt.Sprintf("page %d failed after %d attempts", img.PageNumber, o.cfg.MaxAttempts), lastErr)
}

// backoff doubles the delay per attempt, capped at MaxBackoff.
func (o *Orchestrator) backoff(attempt int) time.Duration {
	d := o.cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= o.cfg.MaxBackoff {
			return o.cfg.MaxBackoff
		}
	}
	if d > o.cfg.MaxBackoff {
		return o.cfg.MaxBackoff
	}
	return d
}
