package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobfacet/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func samplePosting(title, company string) model.EnrichedPosting {
	f := model.EmptyFacets()
	f.Language.Required = []string{"finnish"}
	f.ExperienceLevel = model.ExperienceEntry
	return model.EnrichedPosting{
		Posting: model.Posting{
			Title:    title,
			Company:  company,
			Location: "Tampere",
			URL:      "https://example.fi/jobs?id=1&ref=list",
			Source:   "duunitori",
		},
		Facets:   f,
		Metadata: model.Metadata{Method: model.MethodRuleBased},
	}
}

func TestLogSink_WritesOneLinePerPosting(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	failed := samplePosting("Myyjä", "Kauppa Oy")
	failed.Error = "secondary classifier: timed out"
	if err := s.Write(context.Background(), []model.EnrichedPosting{samplePosting("Kokki", "Ravintola Oy"), failed}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "languages=finnish") || strings.Contains(lines[0], "error=") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "timed out") {
		t.Errorf("expected error on second line, got %q", lines[1])
	}
}

func TestLogSink_ZeroPostings(t *testing.T) {
	if err := NewLogSink(nil).Write(context.Background(), nil); err != nil {
		t.Errorf("Write(nil) = %v, want nil", err)
	}
}

func TestJSONFileSink_WritesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	s := NewJSONFileSink(dir)
	s.now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }

	path, err := s.WriteFile([]model.EnrichedPosting{samplePosting("Kokki", "Ravintola Oy")})
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if want := filepath.Join(dir, "pipeline_results_20260203_040506.json"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Contains(data, []byte("?id=1&ref=list")) {
		t.Errorf("expected unescaped URL in output, got %s", data)
	}
	if !bytes.Contains(data, []byte("\n  {")) {
		t.Errorf("expected indented output")
	}

	got, err := ReadResults(path)
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Kokki" || got[0].ExperienceLevel != model.ExperienceEntry {
		t.Errorf("unexpected round trip %+v", got)
	}
}

func TestJSONFileSink_EmptyRunWritesEmptyArray(t *testing.T) {
	s := NewJSONFileSink(t.TempDir())
	path, err := s.WriteFile(nil)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("expected empty array, got %q", data)
	}
}

func TestLatestResultsFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"pipeline_results_20260101_120000.json",
		"pipeline_results_20260301_080000.json",
		"pipeline_results_20260201_235959.json",
		"other.json",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := LatestResultsFile(dir)
	if err != nil {
		t.Fatalf("LatestResultsFile: %v", err)
	}
	if filepath.Base(got) != "pipeline_results_20260301_080000.json" {
		t.Errorf("got %s", got)
	}

	all, err := ListResultsFiles(dir)
	if err != nil {
		t.Fatalf("ListResultsFiles: %v", err)
	}
	if len(all) != 3 || filepath.Base(all[2]) != "pipeline_results_20260101_120000.json" {
		t.Errorf("expected 3 files newest first, got %v", all)
	}

	if _, err := LatestResultsFile(t.TempDir()); err == nil {
		t.Error("expected error for empty dir")
	}
}

type failingSink struct{ err error }

func (f failingSink) Write(context.Context, []model.EnrichedPosting) error { return f.err }

type countingSink struct{ n int }

func (c *countingSink) Write(_ context.Context, p []model.EnrichedPosting) error {
	c.n += len(p)
	return nil
}

func TestMulti_TriesEverySink(t *testing.T) {
	boom := errors.New("disk full")
	counter := &countingSink{}
	m := Multi{failingSink{err: boom}, counter}

	err := m.Write(context.Background(), []model.EnrichedPosting{samplePosting("A", "B")})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error, got %v", err)
	}
	if counter.n != 1 {
		t.Errorf("expected second sink to receive the posting, got %d", counter.n)
	}
}

func TestWebhookSink_EmptyPostings(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, 10, srv.Client(), discardLogger())
	if err := s.Write(context.Background(), nil); err != nil {
		t.Errorf("Write(nil) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestWebhookSink_ChunksPostings(t *testing.T) {
	sizes := make(chan int, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(got) > 0 && got[0]["_metadata"] == nil {
			t.Errorf("expected flat enriched objects, got %v", got[0])
		}
		sizes <- len(got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	postings := make([]model.EnrichedPosting, 5)
	for i := range postings {
		postings[i] = samplePosting("Kokki", "Ravintola Oy")
	}
	s := NewWebhookSink(srv.URL, 2, srv.Client(), discardLogger())
	if err := s.Write(context.Background(), postings); err != nil {
		t.Fatalf("Write: %v", err)
	}
	close(sizes)

	var got []int
	for n := range sizes {
		got = append(got, n)
	}
	if len(got) != 3 || got[0] != 2 || got[1] != 2 || got[2] != 1 {
		t.Errorf("chunk sizes = %v, want [2 2 1]", got)
	}
}

func TestWebhookSink_RetriesOnceAfter429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, 10, srv.Client(), discardLogger())
	if err := s.Write(context.Background(), []model.EnrichedPosting{samplePosting("A", "B")}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 calls, got %d", c)
	}
}

func TestWebhookSink_AllChunksFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, 1, srv.Client(), discardLogger())
	err := s.Write(context.Background(), []model.EnrichedPosting{samplePosting("A", "B"), samplePosting("C", "D")})
	if err == nil || !strings.Contains(err.Error(), "all 2") {
		t.Errorf("expected all-failed error, got %v", err)
	}
}

func TestWebhookSink_PartialFailureIsNotAnError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, 1, srv.Client(), discardLogger())
	if err := s.Write(context.Background(), []model.EnrichedPosting{samplePosting("A", "B"), samplePosting("C", "D")}); err != nil {
		t.Errorf("expected partial failure to be logged only, got %v", err)
	}
}
