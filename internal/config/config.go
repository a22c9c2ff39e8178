package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the jobfacet pipeline.
type Config struct {
	Interval  time.Duration
	Schedule  string // optional cron expression, takes precedence over Interval
	Sources   []SourceConfig
	Fetch     FetchConfig
	Filters   FilterConfig
	Taxonomy  string // optional YAML file replacing the embedded tables
	Analysis  AnalysisConfig
	Secondary SecondaryConfig
	Output    OutputConfig
}

// Source types understood by the CLI.
const (
	SourceJobly     = "jobly"
	SourceDuunitori = "duunitori"
	SourceFile      = "file"
)

// Secondary classifier transports.
const (
	TransportExec   = "exec"
	TransportHTTP   = "http"
	TransportOpenAI = "openai"
)

// SourceConfig describes a single recruitment site or saved scrape.
type SourceConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	URL      string `yaml:"url"`       // listing URL for site sources
	Path     string `yaml:"path"`      // JSON file for file sources
	MaxPages int    `yaml:"max_pages"` // listing pages to walk, default 1
	Enabled  bool   `yaml:"enabled"`
}

// FetchConfig controls politeness and retries for site sources.
type FetchConfig struct {
	Timeout       time.Duration
	PageDelay     time.Duration            // minimum gap between requests to the same host
	HostOverrides map[string]time.Duration // per-host delays, keyed by hostname
	MaxRetries    int
	RetryDelay    time.Duration
}

// PageDelayFor returns the configured delay for host, falling back to PageDelay.
func (f FetchConfig) PageDelayFor(host string) time.Duration {
	if d, ok := f.HostOverrides[host]; ok {
		return d
	}
	return f.PageDelay
}

// FilterConfig holds title keyword filters.
type FilterConfig struct {
	TitleKeywords   []string `yaml:"title_keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// AnalysisConfig controls the merge engine.
type AnalysisConfig struct {
	Strategy  string `yaml:"strategy"` // "override" or "additive"
	BatchSize int    `yaml:"batch_size"`
}

// SecondaryConfig controls the optional secondary classifier.
type SecondaryConfig struct {
	Enabled   bool
	Transport string
	Workers   int
	Timeout   time.Duration // per batch
	Exec      ExecConfig
	HTTP      HTTPConfig
	OpenAI    OpenAIConfig
}

// ExecConfig runs the classifier as a subprocess: `command script batch <json>`.
// With Stdin the argument is "-" and the JSON is piped, which lifts the
// per-argument size limit on large batches.
type ExecConfig struct {
	Command string `yaml:"command"`
	Script  string `yaml:"script"`
	Stdin   bool   `yaml:"stdin"`
}

// HTTPConfig points at a classifier service exposing /health and /classify.
type HTTPConfig struct {
	BaseURL string `yaml:"base_url"`
}

// OpenAIConfig configures the chat-completions backed classifier.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"` // defaults to https://api.openai.com/v1
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"` // expanded from env var by Load
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Dir        string `yaml:"dir"`         // timestamped JSON results, "" disables
	Database   string `yaml:"database"`    // sqlite path, "" disables
	WebhookURL string `yaml:"webhook_url"` // optional, expanded from env var by Load
	Retention  time.Duration // stored rows older than this are cleaned up, 0 keeps all
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultRetention     = 30 * 24 * time.Hour
)

// rawConfig is used for YAML unmarshaling (durations as strings).
type rawConfig struct {
	Interval  string             `yaml:"interval"`
	Schedule  string             `yaml:"schedule"`
	Sources   []SourceConfig     `yaml:"sources"`
	Fetch     rawFetchConfig     `yaml:"fetch"`
	Filters   FilterConfig       `yaml:"filters"`
	Taxonomy  string             `yaml:"taxonomy"`
	Analysis  AnalysisConfig     `yaml:"analysis"`
	Secondary rawSecondaryConfig `yaml:"secondary"`
	Output    *rawOutputConfig   `yaml:"output"`
}

type rawOutputConfig struct {
	Dir        string `yaml:"dir"`
	Database   string `yaml:"database"`
	WebhookURL string `yaml:"webhook_url"`
	Retention  string `yaml:"retention"`
}

type rawFetchConfig struct {
	Timeout       string            `yaml:"timeout"`
	PageDelay     string            `yaml:"page_delay"`
	HostOverrides map[string]string `yaml:"host_overrides"`
	MaxRetries    *int              `yaml:"max_retries"`
	RetryDelay    string            `yaml:"retry_delay"`
}

type rawSecondaryConfig struct {
	Enabled   bool         `yaml:"enabled"`
	Transport string       `yaml:"transport"`
	Workers   int          `yaml:"workers"`
	Timeout   string       `yaml:"timeout"`
	Exec      ExecConfig   `yaml:"exec"`
	HTTP      HTTPConfig   `yaml:"http"`
	OpenAI    OpenAIConfig `yaml:"openai"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes. Environment variables are expanded first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	interval, err := parseDuration("interval", raw.Interval, 6*time.Hour)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("fetch.timeout", raw.Fetch.Timeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	pageDelay, err := parseDuration("fetch.page_delay", raw.Fetch.PageDelay, 2*time.Second)
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("fetch.retry_delay", raw.Fetch.RetryDelay, 5*time.Second)
	if err != nil {
		return nil, err
	}
	hostOverrides := make(map[string]time.Duration, len(raw.Fetch.HostOverrides))
	for host, v := range raw.Fetch.HostOverrides {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse fetch.host_overrides[%q]: %w", host, err)
		}
		hostOverrides[host] = d
	}
	maxRetries := 2
	if raw.Fetch.MaxRetries != nil {
		maxRetries = *raw.Fetch.MaxRetries
	}

	secTimeout, err := parseDuration("secondary.timeout", raw.Secondary.Timeout, 15*time.Second)
	if err != nil {
		return nil, err
	}

	sources := raw.Sources
	for i := range sources {
		sources[i].Type = strings.ToLower(strings.TrimSpace(sources[i].Type))
		if sources[i].MaxPages == 0 {
			sources[i].MaxPages = 1
		}
	}

	analysis := raw.Analysis
	if analysis.Strategy == "" {
		analysis.Strategy = "override"
	}
	analysis.Strategy = strings.ToLower(analysis.Strategy)
	if analysis.BatchSize == 0 {
		analysis.BatchSize = 10
	}

	secondary := SecondaryConfig{
		Enabled:   raw.Secondary.Enabled,
		Transport: strings.ToLower(raw.Secondary.Transport),
		Workers:   raw.Secondary.Workers,
		Timeout:   secTimeout,
		Exec:      raw.Secondary.Exec,
		HTTP:      raw.Secondary.HTTP,
		OpenAI:    raw.Secondary.OpenAI,
	}
	if secondary.Transport == "" {
		secondary.Transport = TransportExec
	}
	if secondary.Workers == 0 {
		secondary.Workers = 5
	}
	if secondary.OpenAI.BaseURL == "" {
		secondary.OpenAI.BaseURL = defaultOpenAIBaseURL
	}

	output := OutputConfig{Dir: "logs", Retention: defaultRetention}
	if raw.Output != nil {
		retention, err := parseDuration("output.retention", raw.Output.Retention, defaultRetention)
		if err != nil {
			return nil, err
		}
		output = OutputConfig{
			Dir:        raw.Output.Dir,
			Database:   raw.Output.Database,
			WebhookURL: raw.Output.WebhookURL,
			Retention:  retention,
		}
	}

	cfg := &Config{
		Interval: interval,
		Schedule: strings.TrimSpace(raw.Schedule),
		Sources:  sources,
		Fetch: FetchConfig{
			Timeout:       fetchTimeout,
			PageDelay:     pageDelay,
			HostOverrides: hostOverrides,
			MaxRetries:    maxRetries,
			RetryDelay:    retryDelay,
		},
		Filters:   raw.Filters,
		Taxonomy:  raw.Taxonomy,
		Analysis:  analysis,
		Secondary: secondary,
		Output:    output,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

// EnabledSources returns the sources with enabled set.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", cfg.Interval)
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
		}
	}

	enabled := 0
	for i, s := range cfg.Sources {
		switch s.Type {
		case SourceJobly, SourceDuunitori:
			if s.URL == "" {
				return fmt.Errorf("sources[%d] (%s): url is required for type %q", i, s.Name, s.Type)
			}
		case SourceFile:
			if s.Path == "" {
				return fmt.Errorf("sources[%d] (%s): path is required for type \"file\"", i, s.Name)
			}
		default:
			return fmt.Errorf("sources[%d] (%s): unknown type %q", i, s.Name, s.Type)
		}
		if s.MaxPages < 0 {
			return fmt.Errorf("sources[%d] (%s): max_pages must not be negative", i, s.Name)
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %v", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.PageDelay < 0 || cfg.Fetch.RetryDelay < 0 || cfg.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch delays and max_retries must not be negative")
	}

	switch cfg.Analysis.Strategy {
	case "override", "additive":
	default:
		return fmt.Errorf("analysis.strategy must be \"override\" or \"additive\", got %q", cfg.Analysis.Strategy)
	}
	if cfg.Analysis.BatchSize <= 0 {
		return fmt.Errorf("analysis.batch_size must be positive, got %d", cfg.Analysis.BatchSize)
	}

	sec := cfg.Secondary
	if sec.Workers <= 0 {
		return fmt.Errorf("secondary.workers must be positive, got %d", sec.Workers)
	}
	if sec.Timeout <= 0 {
		return fmt.Errorf("secondary.timeout must be positive, got %v", sec.Timeout)
	}
	if sec.Enabled {
		switch sec.Transport {
		case TransportExec:
			if sec.Exec.Command == "" {
				return fmt.Errorf("secondary.exec.command is required when transport is \"exec\"")
			}
		case TransportHTTP:
			if sec.HTTP.BaseURL == "" {
				return fmt.Errorf("secondary.http.base_url is required when transport is \"http\"")
			}
		case TransportOpenAI:
			if sec.OpenAI.Model == "" {
				return fmt.Errorf("secondary.openai.model is required when transport is \"openai\"")
			}
		default:
			return fmt.Errorf("secondary.transport must be exec, http or openai, got %q", sec.Transport)
		}
	}

	if cfg.Output.Retention < 0 {
		return fmt.Errorf("output.retention must not be negative, got %v", cfg.Output.Retention)
	}
	if hook := cfg.Output.WebhookURL; hook != "" {
		u, err := url.Parse(hook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("output.webhook_url must be an http(s) URL, got %q", hook)
		}
	}

	return nil
}
