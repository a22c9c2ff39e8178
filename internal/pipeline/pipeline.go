// Package pipeline runs one pass of fetch, filter, deduplicate, analyze,
// save and write over the configured sources.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/amishk599/jobfacet/internal/dedup"
	"github.com/amishk599/jobfacet/internal/model"
)

// Analyzer enriches postings, returning one result per input in input order.
type Analyzer interface {
	AnalyzeBatch(ctx context.Context, postings []model.Posting) []model.EnrichedPosting
}

// Report counts what happened during one run.
type Report struct {
	Sources  int
	Failed   int // sources that returned an error
	Fetched  int
	Matched  int
	Unique   int
	Analyzed int
	Errored  int // enriched postings carrying an _error
	Duration time.Duration
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("sources", r.Sources),
		slog.Int("failed_sources", r.Failed),
		slog.Int("fetched", r.Fetched),
		slog.Int("matched", r.Matched),
		slog.Int("unique", r.Unique),
		slog.Int("analyzed", r.Analyzed),
		slog.Int("errored", r.Errored),
		slog.Duration("duration", r.Duration),
	)
}

// Pipeline owns the full run for all sources.
type Pipeline struct {
	sources  []model.PostingSource
	filter   model.PostingFilter
	dedup    *dedup.Deduplicator
	analyzer Analyzer
	store    model.ResultStore
	sink     model.Sink
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a pipeline wired with all its dependencies. A nil filter
// matches every posting; a nil store or sink is skipped.
func New(
	sources []model.PostingSource,
	filter model.PostingFilter,
	analyzer Analyzer,
	store model.ResultStore,
	sink model.Sink,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		sources:  sources,
		filter:   filter,
		dedup:    dedup.New(logger),
		analyzer: analyzer,
		store:    store,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// Run fetches every source and processes the combined postings. A failing
// source is logged and skipped; Run fails only when every source failed or
// persisting the results failed.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := p.now()
	report := Report{Sources: len(p.sources)}

	var (
		all  []model.Posting
		errs []error
	)
	for _, src := range p.sources {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run cancelled: %w", err)
		}
		postings, err := src.FetchPostings(ctx)
		if err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			p.logger.Error("source failed", "source", src.Name(), "error", err)
			continue
		}
		p.logger.Info("fetched source", "source", src.Name(), "postings", len(postings))
		all = append(all, postings...)
	}
	if len(p.sources) > 0 && report.Failed == len(p.sources) {
		report.Duration = p.now().Sub(start)
		return report, fmt.Errorf("all %d sources failed: %w", len(p.sources), errors.Join(errs...))
	}

	return p.process(ctx, all, report, start)
}

// Process runs the pipeline over postings that were fetched elsewhere, such
// as a saved scrape.
func (p *Pipeline) Process(ctx context.Context, postings []model.Posting) (Report, error) {
	return p.process(ctx, postings, Report{}, p.now())
}

func (p *Pipeline) process(ctx context.Context, postings []model.Posting, report Report, start time.Time) (Report, error) {
	report.Fetched = len(postings)

	matched := postings
	if p.filter != nil {
		matched = make([]model.Posting, 0, len(postings))
		for _, posting := range postings {
			if p.filter.Match(posting) {
				matched = append(matched, posting)
			}
		}
	}
	report.Matched = len(matched)

	unique, stats := p.dedup.Deduplicate(matched)
	report.Unique = len(unique)
	p.logger.Info("deduplicated postings",
		"input", stats.Input,
		"kept", stats.Kept,
		"duplicate_urls", stats.DroppedURL,
		"duplicate_fingerprints", stats.DroppedFingerprint,
	)

	enriched := []model.EnrichedPosting{}
	if len(unique) > 0 {
		enriched = p.analyzer.AnalyzeBatch(ctx, unique)
	}
	report.Analyzed = len(enriched)
	for _, e := range enriched {
		if e.Error != "" {
			report.Errored++
		}
	}

	if p.store != nil {
		if err := p.store.Save(ctx, enriched); err != nil {
			report.Duration = p.now().Sub(start)
			return report, fmt.Errorf("saving results: %w", err)
		}
	}
	if p.sink != nil {
		if err := p.sink.Write(ctx, enriched); err != nil {
			report.Duration = p.now().Sub(start)
			return report, fmt.Errorf("writing results: %w", err)
		}
	}

	report.Duration = p.now().Sub(start)
	p.logger.Info("pipeline run complete", "report", report)
	return report, nil
}
