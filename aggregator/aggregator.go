// Package aggregator fans a query out to every configured source, isolates
// each source's failures and merges the survivors into one price-ordered list.
package aggregator

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/shopsavvy/engine"
	"github.com/use-agent/shopsavvy/extractor"
	"github.com/use-agent/shopsavvy/models"
	"github.com/use-agent/shopsavvy/simhash"
)

// DefaultResultCap is used when a caller passes a non-positive cap.
const DefaultResultCap = 50

// Fetcher retrieves one search page. *engine.Dispatcher and every
// engine.Engine satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// Options tune how sources are visited.
type Options struct {
	// Delay separates requests to consecutive sources. Zero disables pacing.
	Delay time.Duration

	// Concurrent fetches all sources at once, staggering source i by i*Delay.
	Concurrent bool

	// Drift, when set, fingerprints every fetched page and flags layout changes.
	Drift *simhash.DriftMonitor

	// Headers are sent with every fetch on top of the engine defaults.
	Headers map[string]string
}

// Aggregator searches a fixed list of sources in invocation order.
// It is safe for concurrent use; each search paces its own sources.
type Aggregator struct {
	fetcher Fetcher
	sources []extractor.Extractor
	opts    Options
}

// Result is the outcome of one search: the merged records plus a report per
// source in invocation order.
type Result struct {
	Products []models.ProductRecord
	Sources  []models.SourceReport
}

// New creates an Aggregator.
func New(fetcher Fetcher, sources []extractor.Extractor, opts Options) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		sources: sources,
		opts:    opts,
	}
}

// Platforms lists the configured sources in invocation order.
func (a *Aggregator) Platforms() []models.Platform {
	out := make([]models.Platform, len(a.sources))
	for i, s := range a.sources {
		out[i] = s.Platform()
	}
	return out
}

// SearchAll returns at most resultCap records sorted ascending by price.
// Records with equal prices keep source invocation order. It never fails:
// a failing source contributes nothing.
func (a *Aggregator) SearchAll(ctx context.Context, query string, resultCap int) []models.ProductRecord {
	return a.Search(ctx, query, resultCap).Products
}

// Search is SearchAll with per-source reports. When ctx ends mid-search the
// sources that already completed are still returned; the rest report the
// context error.
func (a *Aggregator) Search(ctx context.Context, query string, resultCap int) *Result {
	if resultCap <= 0 {
		resultCap = DefaultResultCap
	}
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return &Result{Products: []models.ProductRecord{}, Sources: []models.SourceReport{}}
	}

	var outcomes []sourceOutcome
	if a.opts.Concurrent {
		outcomes = a.concurrent(ctx, query)
	} else {
		outcomes = a.sequential(ctx, query)
	}

	res := merge(outcomes, resultCap)
	slog.Info("search completed",
		"query", query,
		"products", len(res.Products),
		"sources", len(res.Sources),
		"duration", time.Since(start),
	)
	return res
}

// sourceOutcome is one source's explicit result.
type sourceOutcome struct {
	records []models.ProductRecord
	report  models.SourceReport
}

// sequential paces the sources of one search with its own limiter, so
// concurrent searches never queue behind each other.
func (a *Aggregator) sequential(ctx context.Context, query string) []sourceOutcome {
	limiter := rate.NewLimiter(rate.Every(a.opts.Delay), 1)
	outcomes := make([]sourceOutcome, len(a.sources))
	for i, src := range a.sources {
		if err := limiter.Wait(ctx); err != nil {
			outcomes[i] = skipped(src, err)
			continue
		}
		outcomes[i] = a.runSource(ctx, src, query)
	}
	return outcomes
}

func (a *Aggregator) concurrent(ctx context.Context, query string) []sourceOutcome {
	outcomes := make([]sourceOutcome, len(a.sources))
	var wg sync.WaitGroup

	for i, src := range a.sources {
		delay := time.Duration(i) * a.opts.Delay
		wg.Add(1)
		go func() {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-ctx.Done():
					outcomes[i] = skipped(src, ctx.Err())
					return
				case <-timer.C:
				}
			}
			outcomes[i] = a.runSource(ctx, src, query)
		}()
	}

	wg.Wait()
	return outcomes
}

func skipped(src extractor.Extractor, err error) sourceOutcome {
	return sourceOutcome{report: models.SourceReport{
		Platform: src.Platform(),
		Error:    fmt.Sprintf("skipped: %v", err),
	}}
}

// runSource fetches and extracts one source. Every failure, including a
// panic in the extractor, is folded into the report.
func (a *Aggregator) runSource(ctx context.Context, src extractor.Extractor, query string) (out sourceOutcome) {
	start := time.Now()
	platform := src.Platform()
	out.report.Platform = platform
	log := slog.With("source", platform, "query", query)

	defer func() {
		if r := recover(); r != nil {
			out.records = nil
			out.report.Error = fmt.Sprintf("panic: %v", r)
			log.Error("source panicked", "panic", r)
		}
		out.report.DurationMs = time.Since(start).Milliseconds()
	}()

	site := src.Site()
	res, err := a.fetcher.Fetch(ctx, &engine.FetchRequest{
		URL:     site.SearchURL(query),
		Headers: a.opts.Headers,
		Timeout: site.Timeout,
	})
	if err != nil {
		out.report.Error = err.Error()
		log.Warn("source fetch failed", "error", err, "duration", time.Since(start))
		return out
	}
	out.report.Engine = res.EngineName

	extracted, err := extractor.Run(src, res.HTML, query)

	if a.opts.Drift != nil {
		productive := err == nil && len(extracted.Records)+len(extracted.Rejected) > 0
		if dist, drifted := a.opts.Drift.Observe(string(platform), res.HTML, productive); drifted {
			out.report.LayoutDrift = true
			log.Warn("source layout drifted", "distance", dist, "productive", productive)
		}
	}

	if err != nil {
		out.report.Error = err.Error()
		log.Warn("source extraction failed", "error", err)
		return out
	}
	for _, rej := range extracted.Rejected {
		log.Debug("candidate rejected", "error", rej)
	}

	out.records = extracted.Records
	out.report.Found = len(extracted.Records)
	out.report.Rejected = len(extracted.Rejected)
	return out
}

// merge concatenates in source order, stable-sorts by price and truncates.
func merge(outcomes []sourceOutcome, resultCap int) *Result {
	res := &Result{
		Products: []models.ProductRecord{},
		Sources:  make([]models.SourceReport, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		res.Products = append(res.Products, o.records...)
		res.Sources = append(res.Sources, o.report)
	}

	slices.SortStableFunc(res.Products, func(x, y models.ProductRecord) int {
		return cmp.Compare(x.Price, y.Price)
	})
	if len(res.Products) > resultCap {
		res.Products = res.Products[:resultCap]
	}
	return res
}
