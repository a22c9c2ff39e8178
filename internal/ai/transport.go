package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/amishk599/jobfacet/internal/model"
	"github.com/amishk599/jobfacet/internal/secondary"
)

var _ secondary.Transport = (*BatchTransport)(nil)

// BatchTransport is a secondary.Transport that classifies a whole batch
// with a single LLM completion.
type BatchTransport struct {
	provider LLMProvider
	tmpl     *template.Template
	ready    bool
}

// NewBatchTransport returns a transport over provider. configured reports
// whether an API key and model were supplied; without them Probe fails and
// the process falls back to rule-based analysis.
func NewBatchTransport(provider LLMProvider, tmpl *template.Template, configured bool) *BatchTransport {
	if tmpl == nil {
		tmpl = FacetAnalysisTemplate
	}
	return &BatchTransport{provider: provider, tmpl: tmpl, ready: configured}
}

// Name implements secondary.Transport.
func (t *BatchTransport) Name() string { return "openai" }

// Probe implements secondary.Transport. It makes no network call.
func (t *BatchTransport) Probe(context.Context) error {
	if !t.ready || t.provider == nil {
		return fmt.Errorf("llm provider not configured: %w", model.ErrUnavailable)
	}
	return nil
}

// Classify renders the batch into one prompt and returns the results array
// from the model's answer.
func (t *BatchTransport) Classify(ctx context.Context, descriptions []string) ([]byte, error) {
	var promptBuf bytes.Buffer
	if err := t.tmpl.Execute(&promptBuf, struct{ Descriptions []string }{
		Descriptions: descriptions,
	}); err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := t.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	var envelope struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal llm results: %w", err)
	}
	if len(envelope.Results) == 0 {
		return nil, fmt.Errorf("llm answer has no results")
	}
	return envelope.Results, nil
}
