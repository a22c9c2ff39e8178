package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobfacet/internal/ai"
	"github.com/amishk599/jobfacet/internal/classifier"
	"github.com/amishk599/jobfacet/internal/config"
	"github.com/amishk599/jobfacet/internal/merge"
	"github.com/amishk599/jobfacet/internal/model"
	"github.com/amishk599/jobfacet/internal/ratelimit"
	"github.com/amishk599/jobfacet/internal/retry"
	"github.com/amishk599/jobfacet/internal/secondary"
	"github.com/amishk599/jobfacet/internal/sink"
	"github.com/amishk599/jobfacet/internal/source"
	"github.com/amishk599/jobfacet/internal/store"
	"github.com/amishk599/jobfacet/internal/taxonomy"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobfacet",
	Short: "Job posting analysis and deduplication",
	Long:  "jobfacet scrapes job postings, removes duplicates and classifies each description into structured facets.",
	// Default to `start` so that `jobfacet` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal; a malformed one is not.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBFACET_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// resolveConfigPath applies the priority: explicit flag > JOBFACET_CONFIG > "./config.yaml".
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("JOBFACET_CONFIG"); env != "" {
		return env
	}
	return "config.yaml"
}

func loadConfig(path string) (*config.Config, error) {
	return config.Load(resolveConfigPath(path))
}

func setupLogger(dbg bool) *slog.Logger {
	return newLogger(os.Stdout, dbg)
}

// newLogger is used directly by commands whose stdout carries JSON.
func newLogger(w io.Writer, dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// newFetchClient returns the client used for listing and description pages,
// throttled per host.
func newFetchClient(cfg *config.Config) *http.Client {
	limiter := ratelimit.NewHostLimiterFunc(cfg.Fetch.PageDelayFor)
	return &http.Client{
		Timeout:   cfg.Fetch.Timeout,
		Transport: ratelimit.NewTransport(http.DefaultTransport, limiter),
	}
}

func buildSources(cfg *config.Config, client *http.Client, logger *slog.Logger) []model.PostingSource {
	var sources []model.PostingSource
	for _, sc := range cfg.EnabledSources() {
		var src model.PostingSource
		switch sc.Type {
		case config.SourceJobly:
			src = source.NewSiteAdapter(sc.Name, source.JoblyProfile(sc.URL), sc.MaxPages, client, logger)
		case config.SourceDuunitori:
			src = source.NewSiteAdapter(sc.Name, source.DuunitoriProfile(sc.URL), sc.MaxPages, client, logger)
		case config.SourceFile:
			sources = append(sources, source.NewFileSource(sc.Name, sc.Path))
			logger.Info("registered source", "name", sc.Name, "type", sc.Type, "path", sc.Path)
			continue
		default:
			logger.Warn("unsupported source type, skipping", "source", sc.Name, "type", sc.Type)
			continue
		}

		src = retry.NewRetrySource(src, cfg.Fetch.MaxRetries, cfg.Fetch.RetryDelay, logger)
		sources = append(sources, src)
		logger.Info("registered source", "name", sc.Name, "type", sc.Type, "max_pages", sc.MaxPages)
	}
	return sources
}

func newTransport(sc config.SecondaryConfig) secondary.Transport {
	// Per-batch deadlines come from the context; the client carries no timeout.
	client := &http.Client{}
	switch sc.Transport {
	case config.TransportHTTP:
		return secondary.NewHTTPTransport(sc.HTTP.BaseURL, client)
	case config.TransportOpenAI:
		provider := ai.NewOpenAIProvider(sc.OpenAI.BaseURL, sc.OpenAI.APIKey, sc.OpenAI.Model, client)
		return ai.NewBatchTransport(provider, ai.FacetAnalysisTemplate, sc.OpenAI.APIKey != "")
	default:
		return secondary.NewExecTransport(sc.Exec.Command, sc.Exec.Script, sc.Exec.Stdin)
	}
}

// connectSecondary probes the configured transport once. Disabled or
// unreachable classifiers yield secondary.Nop.
func connectSecondary(ctx context.Context, sc config.SecondaryConfig, logger *slog.Logger) secondary.Classifier {
	if !sc.Enabled {
		logger.Info("secondary classifier disabled, using rule-based analysis only")
		return secondary.Nop{}
	}
	opts := secondary.Options{Workers: sc.Workers, Timeout: sc.Timeout}
	return secondary.Connect(ctx, newTransport(sc), opts, logger)
}

func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*merge.Engine, error) {
	reg, err := taxonomy.Load(cfg.Taxonomy)
	if err != nil {
		return nil, err
	}
	strategy, err := merge.ParseStrategy(cfg.Analysis.Strategy)
	if err != nil {
		return nil, err
	}
	sec := connectSecondary(ctx, cfg.Secondary, logger)
	return merge.NewEngine(classifier.New(reg), sec, merge.Options{
		Strategy:  strategy,
		BatchSize: cfg.Analysis.BatchSize,
	}, logger), nil
}

// buildSink fans results out to the log, the results directory and the
// webhook. dryRun keeps only the log.
func buildSink(cfg *config.Config, dryRun bool, logger *slog.Logger) model.Sink {
	sinks := sink.Multi{sink.NewLogSink(logger)}
	if dryRun {
		return sinks
	}
	if cfg.Output.Dir != "" {
		sinks = append(sinks, sink.NewJSONFileSink(cfg.Output.Dir))
	}
	if cfg.Output.WebhookURL != "" {
		sinks = append(sinks, sink.NewWebhookSink(cfg.Output.WebhookURL, sink.DefaultWebhookChunk, &http.Client{Timeout: cfg.Fetch.Timeout}, logger))
		logger.Info("using webhook sink")
	}
	return sinks
}

// openStore returns the result store and a close func. dryRun or an empty
// database path yields a NopStore.
func openStore(cfg *config.Config, dryRun bool) (model.ResultStore, func() error, error) {
	if dryRun || cfg.Output.Database == "" {
		return store.NopStore{}, func() error { return nil }, nil
	}
	s, err := store.NewSQLiteStore(cfg.Output.Database)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
