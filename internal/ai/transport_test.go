package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/amishk599/jobfacet/internal/model"
	"github.com/amishk599/jobfacet/internal/secondary"
)

type stubProvider struct {
	prompt string
	answer string
	err    error
}

func (s *stubProvider) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

func TestBatchTransport_RendersEveryDescription(t *testing.T) {
	p := &stubProvider{answer: `{"results":[{"job_type":["full_time"]},{"job_type":["internship"]}]}`}
	tr := NewBatchTransport(p, nil, true)

	raw, err := tr.Classify(context.Background(), []string{"Kokoaikainen kehittäjä", "Summer trainee"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Kokoaikainen kehittäjä", "Summer trainee", "Return exactly 2 results", "### Description 1"} {
		if !strings.Contains(p.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	results, err := secondary.ParseResponse(raw, 2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if results[1].Facets.JobType[0] != model.JobTypeInternship {
		t.Errorf("expected internship for second item, got %v", results[1].Facets.JobType)
	}
}

func TestBatchTransport_ProviderError(t *testing.T) {
	tr := NewBatchTransport(&stubProvider{err: errors.New("boom")}, nil, true)
	if _, err := tr.Classify(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestBatchTransport_AnswerWithoutResults(t *testing.T) {
	for _, answer := range []string{`not json`, `{}`} {
		tr := NewBatchTransport(&stubProvider{answer: answer}, nil, true)
		if _, err := tr.Classify(context.Background(), []string{"x"}); err == nil {
			t.Errorf("answer %q: expected error", answer)
		}
	}
}

func TestBatchTransport_Probe(t *testing.T) {
	if err := NewBatchTransport(&stubProvider{}, nil, true).Probe(context.Background()); err != nil {
		t.Errorf("expected configured transport to pass probe, got %v", err)
	}
	err := NewBatchTransport(&stubProvider{}, nil, false).Probe(context.Background())
	if !errors.Is(err, model.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
