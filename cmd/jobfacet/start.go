package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfacet/internal/filter"
	"github.com/amishk599/jobfacet/internal/pipeline"
	"github.com/amishk599/jobfacet/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pipeline daemon",
	Long:  "Run the pipeline immediately and then every interval (or on the cron schedule when set); blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("config loaded",
		"interval", cfg.Interval.String(),
		"schedule", cfg.Schedule,
		"sources", len(cfg.EnabledSources()),
		"strategy", cfg.Analysis.Strategy,
		"secondary", cfg.Secondary.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resultStore, closeStore, err := openStore(cfg, false)
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

	sources := buildSources(cfg, newFetchClient(cfg), logger)
	p := pipeline.New(
		sources,
		filter.NewTitleFilter(cfg.Filters.TitleKeywords, cfg.Filters.ExcludeKeywords),
		engine,
		resultStore,
		buildSink(cfg, false, logger),
		logger,
	)

	schedule := scheduler.Every(cfg.Interval)
	if cfg.Schedule != "" {
		if schedule, err = scheduler.ParseSchedule(cfg.Schedule); err != nil {
			logger.Error("invalid schedule", "error", err)
			return err
		}
	}

	sched := scheduler.NewScheduler(p, schedule, resultStore, cfg.Output.Retention, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}
