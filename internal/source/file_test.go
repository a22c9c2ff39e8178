package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/amishk599/jobfacet/internal/model"
)

func TestFileSource_FillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	content := `[
  {"title": "Developer", "url": "https://example.fi/1", "company": "ABC Oy", "location": "Helsinki", "description": "Full-time"},
  {"title": "Kokki", "source": "duunitori.fi"}
]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileSource("archive", path)
	if s.Name() != "archive" {
		t.Errorf("Name() = %q", s.Name())
	}
	postings, err := s.FetchPostings(context.Background())
	if err != nil {
		t.Fatalf("FetchPostings: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}
	if postings[0].Source != "archive" || postings[0].PublishDate != model.NotAvailable {
		t.Errorf("unexpected first posting %+v", postings[0])
	}
	if postings[1].Source != "duunitori.fi" || postings[1].Description != model.NotAvailable || postings[1].URL != model.NotAvailable {
		t.Errorf("unexpected second posting %+v", postings[1])
	}
}

func TestFileSource_Errors(t *testing.T) {
	if _, err := NewFileSource("x", filepath.Join(t.TempDir(), "missing.json")).FetchPostings(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{"title": "not an array"}`), 0o644)
	if _, err := NewFileSource("x", path).FetchPostings(context.Background()); err == nil {
		t.Error("expected error for non-array JSON")
	}
}
