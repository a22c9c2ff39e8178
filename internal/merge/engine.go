package merge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobfacet/internal/model"
	"github.com/amishk599/jobfacet/internal/secondary"
)

// FacetClassifier is the rule-based tier.
type FacetClassifier interface {
	Classify(description string) model.Facets
}

// Options configures an Engine.
type Options struct {
	Strategy  Strategy
	BatchSize int
}

// Engine analyzes postings with the rule classifier and, when available, the
// secondary classifier. Output order always equals input order and no
// posting is ever dropped.
type Engine struct {
	rules  FacetClassifier
	sec    secondary.Classifier
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine builds an engine. A nil sec behaves like an unreachable
// secondary classifier.
func NewEngine(rules FacetClassifier, sec secondary.Classifier, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if sec == nil {
		sec = secondary.Nop{}
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyOverride
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = secondary.DefaultBatchSize
	}
	return &Engine{rules: rules, sec: sec, opts: opts, logger: logger, now: time.Now}
}

// Analyze enriches a single posting.
func (e *Engine) Analyze(ctx context.Context, p model.Posting) model.EnrichedPosting {
	return e.AnalyzeBatch(ctx, []model.Posting{p})[0]
}

// AnalyzeBatch enriches postings, returning one result per input at the
// same index. Secondary failures are recorded on the affected postings.
func (e *Engine) AnalyzeBatch(ctx context.Context, postings []model.Posting) []model.EnrichedPosting {
	run := runInfo{
		id:        uuid.NewString(),
		at:        e.now().UTC(),
		available: e.sec.Available(),
	}
	out := make([]model.EnrichedPosting, len(postings))
	done := make([]bool, len(postings))

	var pending []int
	for i, p := range postings {
		if !p.HasDescription() || !run.available {
			out[i] = e.ruleOnly(p, run, nil)
			done[i] = true
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		e.analyzeHybrid(ctx, postings, pending, run, out, done)
	}

	e.logger.Debug("analysis complete",
		"run_id", run.id,
		"postings", len(postings),
		"secondary", len(pending),
		"strategy", string(e.opts.Strategy),
	)
	return out
}

type runInfo struct {
	id        string
	at        time.Time
	available bool
}

func (e *Engine) analyzeHybrid(ctx context.Context, postings []model.Posting, pending []int, run runInfo, out []model.EnrichedPosting, done []bool) {
	indexBatches := secondary.Partition(pending, e.opts.BatchSize)
	descBatches := make([][]string, len(indexBatches))
	for b, idxs := range indexBatches {
		descBatches[b] = make([]string, len(idxs))
		for j, i := range idxs {
			descBatches[b][j] = postings[i].Description
		}
	}

	// Only this goroutine writes to out, each index exactly once.
	for res := range e.sec.Stream(ctx, descBatches) {
		if res.Index < 0 || res.Index >= len(indexBatches) {
			continue
		}
		for j, i := range indexBatches[res.Index] {
			if done[i] {
				continue
			}
			p := postings[i]
			switch {
			case res.Err != nil:
				out[i] = e.ruleOnly(p, run, res.Err)
			case j >= len(res.Items):
				out[i] = e.ruleOnly(p, run, fmt.Errorf("missing result for item %d", j))
			case res.Items[j].Err != nil:
				out[i] = e.ruleOnly(p, run, res.Items[j].Err)
			default:
				out[i] = e.hybrid(p, res.Items[j].Facets, run)
			}
			done[i] = true
		}
	}

	for _, i := range pending {
		if !done[i] {
			out[i] = e.ruleOnly(postings[i], run, fmt.Errorf("no result returned"))
			done[i] = true
		}
	}
}

func (e *Engine) hybrid(p model.Posting, sec model.Facets, run runInfo) model.EnrichedPosting {
	rule := e.rules.Classify(p.Description)
	return Merge(p, rule, sec, e.opts.Strategy, model.Metadata{
		Method:             e.opts.Strategy.Method(),
		Stages:             []string{model.StageRuleBased, model.StageSecondary},
		SecondaryAvailable: run.available,
		SecondaryApplied:   true,
		AnalyzedAt:         run.at,
		RunID:              run.id,
	})
}

func (e *Engine) ruleOnly(p model.Posting, run runInfo, secErr error) model.EnrichedPosting {
	enriched := Enrich(p, e.rules.Classify(p.Description), model.Metadata{
		Method:             model.MethodRuleBased,
		Stages:             []string{model.StageRuleBased},
		SecondaryAvailable: run.available,
		AnalyzedAt:         run.at,
		RunID:              run.id,
	})
	if secErr != nil {
		enriched.Error = "secondary classifier: " + secErr.Error()
	}
	return enriched
}
