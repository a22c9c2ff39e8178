package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalSources = `
sources:
  - name: jobly
    type: jobly
    url: https://www.jobly.fi/en/jobs
    enabled: true
`

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
interval: 30m
sources:
  - name: jobly
    type: Jobly
    url: https://www.jobly.fi/en/jobs
    max_pages: 3
    enabled: true
  - name: archive
    type: file
    path: logs/jobs.json
fetch:
  page_delay: 1s
  host_overrides:
    duunitori.fi: 4s
filters:
  title_keywords:
    - developer
analysis:
  strategy: additive
  batch_size: 5
secondary:
  enabled: true
  transport: http
  workers: 3
  timeout: 20s
  http:
    base_url: http://localhost:8090
output:
  dir: out
  database: results.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Interval != 30*time.Minute {
		t.Errorf("Interval = %v, want 30m", cfg.Interval)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0].Type != SourceJobly || cfg.Sources[0].MaxPages != 3 {
		t.Errorf("Sources = %+v", cfg.Sources)
	}
	if cfg.Sources[1].MaxPages != 1 {
		t.Errorf("expected default max_pages 1, got %d", cfg.Sources[1].MaxPages)
	}
	if got := cfg.EnabledSources(); len(got) != 1 || got[0].Name != "jobly" {
		t.Errorf("EnabledSources = %+v", got)
	}
	if cfg.Fetch.PageDelayFor("duunitori.fi") != 4*time.Second || cfg.Fetch.PageDelayFor("jobly.fi") != time.Second {
		t.Errorf("unexpected page delays %+v", cfg.Fetch)
	}
	if cfg.Analysis.Strategy != "additive" || cfg.Analysis.BatchSize != 5 {
		t.Errorf("Analysis = %+v", cfg.Analysis)
	}
	if !cfg.Secondary.Enabled || cfg.Secondary.Workers != 3 || cfg.Secondary.Timeout != 20*time.Second {
		t.Errorf("Secondary = %+v", cfg.Secondary)
	}
	if cfg.Output.Dir != "out" || cfg.Output.Database != "results.db" {
		t.Errorf("Output = %+v", cfg.Output)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalSources))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Interval != 6*time.Hour {
		t.Errorf("Interval = %v, want 6h", cfg.Interval)
	}
	if cfg.Fetch.Timeout != 10*time.Second || cfg.Fetch.PageDelay != 2*time.Second || cfg.Fetch.MaxRetries != 2 {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Analysis.Strategy != "override" || cfg.Analysis.BatchSize != 10 {
		t.Errorf("Analysis = %+v", cfg.Analysis)
	}
	if cfg.Secondary.Enabled || cfg.Secondary.Transport != TransportExec || cfg.Secondary.Workers != 5 || cfg.Secondary.Timeout != 15*time.Second {
		t.Errorf("Secondary = %+v", cfg.Secondary)
	}
	if cfg.Secondary.OpenAI.BaseURL != defaultOpenAIBaseURL {
		t.Errorf("OpenAI.BaseURL = %q", cfg.Secondary.OpenAI.BaseURL)
	}
	if cfg.Output.Dir != "logs" || cfg.Output.Database != "" || cfg.Output.Retention != defaultRetention {
		t.Errorf("Output = %+v", cfg.Output)
	}
}

func TestLoad_Schedule(t *testing.T) {
	cfg, err := Load(writeConfig(t, "schedule: \"0 6,18 * * *\"\n"+minimalSources))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule != "0 6,18 * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
}

func TestLoad_ExecStdin(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalSources+"secondary:\n  enabled: true\n  transport: exec\n  exec: {command: node, script: classify.js, stdin: true}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Secondary.Exec.Stdin || cfg.Secondary.Exec.Command != "node" {
		t.Errorf("unexpected exec config %+v", cfg.Secondary.Exec)
	}
}

func TestLoad_OutputSection(t *testing.T) {
	t.Setenv("JOBFACET_TEST_HOOK", "https://hooks.example.com/jobs")
	cfg, err := Load(writeConfig(t, minimalSources+`
output:
  database: results.db
  webhook_url: ${JOBFACET_TEST_HOOK}
  retention: 72h
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.Dir != "" {
		t.Errorf("expected explicit output section without dir to disable files, got %q", cfg.Output.Dir)
	}
	if cfg.Output.WebhookURL != "https://hooks.example.com/jobs" || cfg.Output.Retention != 72*time.Hour {
		t.Errorf("Output = %+v", cfg.Output)
	}
}

func TestLoad_ZeroRetriesIsKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalSources+"fetch:\n  max_retries: 0\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fetch.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.Fetch.MaxRetries)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JOBFACET_TEST_KEY", "sk-test")
	cfg, err := Load(writeConfig(t, minimalSources+`
secondary:
  enabled: true
  transport: openai
  openai:
    model: gpt-4o-mini
    api_key: ${JOBFACET_TEST_KEY}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Secondary.OpenAI.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", cfg.Secondary.OpenAI.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "interval: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]struct {
		content string
		want    string
	}{
		"no enabled source": {
			content: "sources:\n  - {name: a, type: jobly, url: http://x}\n",
			want:    "at least one source",
		},
		"unknown source type": {
			content: "sources:\n  - {name: a, type: monster, url: http://x, enabled: true}\n",
			want:    "unknown type",
		},
		"site without url": {
			content: "sources:\n  - {name: a, type: duunitori, enabled: true}\n",
			want:    "url is required",
		},
		"file without path": {
			content: "sources:\n  - {name: a, type: file, enabled: true}\n",
			want:    "path is required",
		},
		"bad interval": {
			content: "interval: often\n" + minimalSources,
			want:    "interval",
		},
		"bad strategy": {
			content: minimalSources + "analysis:\n  strategy: replace\n",
			want:    "analysis.strategy",
		},
		"negative batch size": {
			content: minimalSources + "analysis:\n  batch_size: -1\n",
			want:    "batch_size",
		},
		"exec without command": {
			content: minimalSources + "secondary:\n  enabled: true\n  transport: exec\n",
			want:    "secondary.exec.command",
		},
		"http without base url": {
			content: minimalSources + "secondary:\n  enabled: true\n  transport: http\n",
			want:    "secondary.http.base_url",
		},
		"openai without model": {
			content: minimalSources + "secondary:\n  enabled: true\n  transport: openai\n",
			want:    "secondary.openai.model",
		},
		"unknown transport": {
			content: minimalSources + "secondary:\n  enabled: true\n  transport: grpc\n",
			want:    "secondary.transport",
		},
		"bad schedule": {
			content: "schedule: every morning\n" + minimalSources,
			want:    "schedule",
		},
		"bad retention": {
			content: minimalSources + "output:\n  retention: forever\n",
			want:    "output.retention",
		},
		"webhook without scheme": {
			content: minimalSources + "output:\n  webhook_url: hooks.example.com/x\n",
			want:    "output.webhook_url",
		},
		"bad host override": {
			content: minimalSources + "fetch:\n  host_overrides:\n    jobly.fi: soon\n",
			want:    "host_overrides",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoad_DisabledSecondaryNeedsNoTransportSettings(t *testing.T) {
	if _, err := Load(writeConfig(t, minimalSources+"secondary:\n  enabled: false\n  transport: exec\n")); err != nil {
		t.Errorf("expected disabled secondary to skip transport validation, got %v", err)
	}
}
