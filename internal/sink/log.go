// Package sink delivers the enriched output of a pipeline run.
package sink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/amishk599/jobfacet/internal/model"
)

// Ensure LogSink implements model.Sink.
var _ model.Sink = (*LogSink)(nil)

// LogSink writes one structured line per enriched posting.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that logs each posting via slog.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogSink{logger: logger}
}

// Write logs each posting with its headline facets. It never fails.
func (s *LogSink) Write(_ context.Context, postings []model.EnrichedPosting) error {
	for _, p := range postings {
		args := []any{
			"company", p.Company,
			"title", p.Title,
			"location", p.Location,
			"url", p.URL,
			"experience", string(p.ExperienceLevel),
			"languages", strings.Join(p.Language.Required, ","),
			"method", p.Metadata.Method,
		}
		if p.Error != "" {
			args = append(args, "error", p.Error)
		}
		s.logger.Info("analyzed posting", args...)
	}
	return nil
}

// Multi fans out to several sinks. Every sink is tried; errors are joined.
type Multi []model.Sink

var _ model.Sink = Multi(nil)

// Write implements model.Sink.
func (m Multi) Write(ctx context.Context, postings []model.EnrichedPosting) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, postings); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
