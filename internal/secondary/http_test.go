package secondary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/amishk599/jobfacet/internal/model"
)

func TestHTTPTransport_Classify(t *testing.T) {
	bodies := make(chan []classifyRequestItem, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/classify" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		var items []classifyRequestItem
		if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
			t.Errorf("decode request: %v", err)
		}
		bodies <- items
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"job_type": "full-time"}, {"job_type": "part-time"}]`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL+"/", srv.Client())
	raw, err := tr.Classify(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := <-bodies
	if len(got) != 2 || got[0].Description != "first" || got[1].Description != "second" {
		t.Errorf("unexpected request body %+v", got)
	}

	results, err := ParseResponse(raw, 2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if results[1].Facets.JobType[0] != model.JobTypePartTime {
		t.Errorf("expected part_time for second item, got %v", results[1].Facets.JobType)
	}
}

func TestHTTPTransport_ClassifyNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("busy"))
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(srv.URL, srv.Client()).Classify(context.Background(), []string{"x"})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", httpErr.StatusCode)
	}
}

func TestHTTPTransport_Probe(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, srv.Client())
	if err := tr.Probe(context.Background()); err != nil {
		t.Errorf("expected healthy probe, got %v", err)
	}
	healthy.Store(false)
	if err := tr.Probe(context.Background()); err == nil {
		t.Error("expected probe failure on 503")
	}
}

func TestHTTPTransport_ProbeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := NewHTTPTransport(url, nil).Probe(context.Background()); err == nil {
		t.Error("expected error for closed server")
	}
}
