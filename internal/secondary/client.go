// Package secondary talks to the out-of-process, higher-accuracy facet
// classifier. It owns batching concurrency, per-batch timeouts and the
// normalization of the classifier's loosely typed responses.
package secondary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobfacet/internal/model"
)

// Defaults for Options.
const (
	DefaultWorkers   = 5
	DefaultTimeout   = 15 * time.Second
	// DefaultBatchSize keeps exec batches of typical descriptions well under
	// MaxArgPayload; larger batches need ExecTransport in stdin mode.
	DefaultBatchSize = 10
)

// Transport performs one classification call for a batch of descriptions
// and returns the raw JSON array the classifier produced.
type Transport interface {
	Name() string
	Probe(ctx context.Context) error
	Classify(ctx context.Context, descriptions []string) ([]byte, error)
}

// Options bound the client's concurrency.
type Options struct {
	Workers int           // batches in flight at once
	Timeout time.Duration // per batch call
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// BatchResult is the outcome of one batch. Either Err is set and covers
// every item of the batch, or Items is aligned with the batch input.
type BatchResult struct {
	Index int
	Items []Result
	Err   error
}

// BatchError is a failure of a whole batch call.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Classifier is what the merge engine depends on.
type Classifier interface {
	// Available reports whether the classifier was reachable at startup.
	Available() bool
	// Stream classifies batches concurrently and delivers results in
	// completion order. The channel is closed after the last batch.
	Stream(ctx context.Context, batches [][]string) <-chan BatchResult
	// ClassifyBatches classifies batches and returns results by batch index.
	ClassifyBatches(ctx context.Context, batches [][]string) []BatchResult
}

var _ Classifier = (*Client)(nil)

// Client dispatches batches to a Transport with at most Options.Workers
// calls in flight. Batch failures never affect sibling batches and are not
// retried.
type Client struct {
	transport Transport
	opts      Options
	logger    *slog.Logger
}

// NewClient returns a client over t. Zero options take the defaults.
func NewClient(t Transport, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{transport: t, opts: opts.withDefaults(), logger: logger}
}

// Connect probes t once. When the probe fails the process runs without the
// secondary classifier: the returned Nop answers every batch immediately
// with no evidence.
func Connect(ctx context.Context, t Transport, opts Options, logger *slog.Logger) Classifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts = opts.withDefaults()

	probeCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := t.Probe(probeCtx); err != nil {
		logger.Warn("secondary classifier unavailable, continuing with rule-based analysis",
			"transport", t.Name(),
			"error", err,
		)
		return Nop{}
	}

	logger.Info("secondary classifier available",
		"transport", t.Name(),
		"workers", opts.Workers,
		"timeout", opts.Timeout.String(),
	)
	return NewClient(t, opts, logger)
}

// Available always reports true; unreachable transports never get a Client.
func (c *Client) Available() bool { return true }

// Stream implements Classifier.
func (c *Client) Stream(ctx context.Context, batches [][]string) <-chan BatchResult {
	// Buffered so workers never block on a slow or departed consumer.
	out := make(chan BatchResult, len(batches))

	go func() {
		defer close(out)

		// A plain group: one failed batch must not cancel its siblings.
		var g errgroup.Group
		g.SetLimit(c.opts.Workers)
		for i, batch := range batches {
			g.Go(func() error {
				out <- c.classify(ctx, i, batch)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return out
}

// ClassifyBatches implements Classifier.
func (c *Client) ClassifyBatches(ctx context.Context, batches [][]string) []BatchResult {
	return Collect(c.Stream(ctx, batches), len(batches))
}

type reply struct {
	raw []byte
	err error
}

// classify runs one batch under its own timeout. The transport call runs in
// its own goroutine so a call that ignores cancellation is abandoned rather
// than waited on.
func (c *Client) classify(ctx context.Context, index int, batch []string) BatchResult {
	if len(batch) == 0 {
		return BatchResult{Index: index, Items: []Result{}}
	}
	if err := ctx.Err(); err != nil {
		return BatchResult{Index: index, Err: &BatchError{Index: index, Err: err}}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("transport panic: %v", r)}
			}
		}()
		raw, err := c.transport.Classify(callCtx, batch)
		done <- reply{raw: raw, err: err}
	}()

	var (
		items []Result
		err   error
	)
	select {
	case r := <-done:
		err = r.err
		if err == nil {
			items, err = ParseResponse(r.raw, len(batch))
		}
	case <-callCtx.Done():
		err = fmt.Errorf("timed out after %s: %w", c.opts.Timeout, callCtx.Err())
	}

	if err != nil {
		c.logger.Warn("secondary batch failed",
			"batch", index,
			"size", len(batch),
			"transport", c.transport.Name(),
			"elapsed", time.Since(start).Round(time.Millisecond),
			"error", err,
		)
		return BatchResult{Index: index, Err: &BatchError{Index: index, Err: err}}
	}

	c.logger.Debug("secondary batch done",
		"batch", index,
		"size", len(batch),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return BatchResult{Index: index, Items: items}
}

// Collect drains ch into a slice indexed by BatchResult.Index.
func Collect(ch <-chan BatchResult, n int) []BatchResult {
	results := make([]BatchResult, n)
	for r := range ch {
		if r.Index >= 0 && r.Index < n {
			results[r.Index] = r
		}
	}
	return results
}

// Partition splits items into consecutive batches of at most size elements.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}

// Nop stands in for an unreachable classifier.
type Nop struct{}

var _ Classifier = Nop{}

// Available reports false.
func (Nop) Available() bool { return false }

// Stream answers every batch with empty facets and no error.
func (n Nop) Stream(_ context.Context, batches [][]string) <-chan BatchResult {
	out := make(chan BatchResult, len(batches))
	for i, b := range batches {
		out <- n.empty(i, len(b))
	}
	close(out)
	return out
}

// ClassifyBatches answers every batch with empty facets and no error.
func (n Nop) ClassifyBatches(ctx context.Context, batches [][]string) []BatchResult {
	return Collect(n.Stream(ctx, batches), len(batches))
}

func (Nop) empty(index, size int) BatchResult {
	items := make([]Result, size)
	for i := range items {
		items[i] = Result{Facets: model.EmptyFacets()}
	}
	return BatchResult{Index: index, Items: items}
}
