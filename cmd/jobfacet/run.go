package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfacet/internal/filter"
	"github.com/amishk599/jobfacet/internal/pipeline"
	"github.com/amishk599/jobfacet/internal/source"
)

var (
	runInput  string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and exit",
	Long: "One pass of fetch, filter, deduplicate, analyze and write. " +
		"--input replays a saved JSON scrape instead of fetching; --dry-run skips the store and results files.",
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "JSON array of postings to analyze instead of fetching sources")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "log results only; do not write the store, files or webhook")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	if runDryRun {
		logger.Info("dry-run mode: results are logged only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resultStore, closeStore, err := openStore(cfg, runDryRun)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer closeStore()

	engine, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build analysis engine", "error", err)
		return err
	}

	titleFilter := filter.NewTitleFilter(cfg.Filters.TitleKeywords, cfg.Filters.ExcludeKeywords)
	out := buildSink(cfg, runDryRun, logger)

	var report pipeline.Report
	if runInput != "" {
		postings, err := source.ReadPostings(runInput, "file")
		if err != nil {
			logger.Error("failed to read input", "error", err)
			return err
		}
		p := pipeline.New(nil, titleFilter, engine, resultStore, out, logger)
		report, err = p.Process(ctx, postings)
		if err != nil {
			logger.Error("run failed", "error", err)
			return err
		}
	} else {
		p := pipeline.New(buildSources(cfg, newFetchClient(cfg), logger), titleFilter, engine, resultStore, out, logger)
		report, err = p.Run(ctx)
		if err != nil {
			logger.Error("run failed", "error", err)
			return err
		}
	}

	logger.Info("run complete", "report", report)
	return nil
}
