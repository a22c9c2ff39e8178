package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/jobfacet/internal/model"
	"github.com/amishk599/jobfacet/internal/secondary"
)

// DefaultWebhookChunk is the number of postings per webhook request.
const DefaultWebhookChunk = 50

// Ensure WebhookSink implements model.Sink.
var _ model.Sink = (*WebhookSink)(nil)

// WebhookSink POSTs enriched postings as JSON arrays to an ingest endpoint,
// for example the service that loads results into the job database.
type WebhookSink struct {
	url        string
	chunk      int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookSink returns a sink posting to url in chunks of at most chunk postings.
func NewWebhookSink(url string, chunk int, httpClient *http.Client, logger *slog.Logger) *WebhookSink {
	if chunk <= 0 {
		chunk = DefaultWebhookChunk
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WebhookSink{url: url, chunk: chunk, httpClient: httpClient, logger: logger}
}

// Write sends every chunk. Returns an error only if ALL chunks fail.
// Individual failures are logged.
func (s *WebhookSink) Write(ctx context.Context, postings []model.EnrichedPosting) error {
	if len(postings) == 0 {
		return nil
	}

	chunks := secondary.Partition(postings, s.chunk)
	failures := 0
	for i, c := range chunks {
		if err := s.send(ctx, c); err != nil {
			s.logger.Error("webhook delivery failed", "chunk", i, "postings", len(c), "error", err)
			failures++
		}
	}

	if failures == len(chunks) {
		return fmt.Errorf("all %d webhook deliveries failed", failures)
	}
	s.logger.Info("webhook delivery complete", "sent", len(chunks)-failures, "failed", failures)
	return nil
}

// send posts one chunk, retrying once after a 429.
func (s *WebhookSink) send(ctx context.Context, postings []model.EnrichedPosting) error {
	body, err := json.Marshal(postings)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	err = s.post(ctx, body)
	var httpErr *model.HTTPError
	if err == nil || !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		return err
	}

	wait := httpErr.RetryAfter
	if wait <= 0 {
		wait = time.Second
	}
	s.logger.Warn("webhook rate limited, retrying", "retry_after", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("webhook retry cancelled: %w", ctx.Err())
	case <-timer.C:
	}

	if err := s.post(ctx, body); err != nil {
		return fmt.Errorf("webhook retry: %w", err)
	}
	return nil
}

func (s *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return model.NewHTTPError(resp, respBody)
	}
	return nil
}
