package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amishk599/jobfacet/internal/config"
	"github.com/amishk599/jobfacet/internal/sink"
)

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("JOBFACET_CONFIG", "")
	if got := resolveConfigPath(""); got != "config.yaml" {
		t.Errorf("default = %q", got)
	}

	t.Setenv("JOBFACET_CONFIG", "/etc/jobfacet.yaml")
	if got := resolveConfigPath(""); got != "/etc/jobfacet.yaml" {
		t.Errorf("env = %q", got)
	}
	if got := resolveConfigPath("local.yaml"); got != "local.yaml" {
		t.Errorf("flag should win, got %q", got)
	}
}

func TestReadDescription(t *testing.T) {
	got, err := readDescription(strings.NewReader("  from stdin \n"), []string{"-"})
	if err != nil || got != "from stdin" {
		t.Errorf("stdin: got %q, %v", got, err)
	}
	got, _ = readDescription(strings.NewReader("ignored"), []string{"Python", "developer"})
	if got != "Python developer" {
		t.Errorf("args: got %q", got)
	}
	got, _ = readDescription(strings.NewReader("piped"), nil)
	if got != "piped" {
		t.Errorf("no args: got %q", got)
	}
}

func TestBuildSink_DryRunLogsOnly(t *testing.T) {
	cfg := &config.Config{Output: config.OutputConfig{Dir: t.TempDir(), WebhookURL: "https://hooks.example.com/x"}}

	if s, ok := buildSink(cfg, true, newLogger(io.Discard, false)).(sink.Multi); !ok || len(s) != 1 {
		t.Errorf("dry run sink = %#v, want log sink only", s)
	}
	if s, ok := buildSink(cfg, false, newLogger(io.Discard, false)).(sink.Multi); !ok || len(s) != 3 {
		t.Errorf("sink = %#v, want log, file and webhook", s)
	}
}

func TestReviewChoices(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"pipeline_results_20260101_120000.json", "pipeline_results_20260201_120000.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := &config.Config{Output: config.OutputConfig{Dir: dir, Database: filepath.Join(dir, "results.db")}}

	choices := reviewChoices(cfg)
	if len(choices) != 3 {
		t.Fatalf("expected store + 2 files, got %d", len(choices))
	}
	if !strings.HasPrefix(choices[0].label, "store: ") {
		t.Errorf("store should be listed first, got %q", choices[0].label)
	}
	if filepath.Base(choices[1].label) != "pipeline_results_20260201_120000.json" {
		t.Errorf("newest file should follow the store, got %q", choices[1].label)
	}

	postings, err := choices[1].load(t.Context())
	if err != nil || len(postings) != 0 {
		t.Errorf("load = %v, %v", postings, err)
	}
}
