package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfacet/internal/config"
	"github.com/amishk599/jobfacet/internal/model"
	"github.com/amishk599/jobfacet/internal/review"
	"github.com/amishk599/jobfacet/internal/sink"
	"github.com/amishk599/jobfacet/internal/store"
)

// reviewStoreLimit caps how many stored postings the review UI loads.
const reviewStoreLimit = 500

var reviewCmd = &cobra.Command{
	Use:   "review [results.json]",
	Short: "Browse enriched postings interactively (TUI)",
	Long: "Opens the split-pane review UI on a results file. Without an argument a picker " +
		"lists the results files in the output dir and the sqlite store.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReviewCmd,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	// Log output before the alt-screen starts corrupts the display.
	silent := slog.New(slog.NewTextHandler(io.Discard, nil))

	if len(args) == 1 {
		path := args[0]
		postings, err := review.RunLoader(path, func(context.Context) ([]model.EnrichedPosting, error) {
			return sink.ReadResults(path)
		})
		if err != nil {
			return err
		}
		_, err = review.RunReviewTUI(path, postings)
		return err
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}
	runReview(cfg, silent)
	return nil
}

// reviewChoice is one entry of the picker: a results file or the store.
type reviewChoice struct {
	label string
	load  review.LoadFunc
}

func reviewChoices(cfg *config.Config) []reviewChoice {
	var choices []reviewChoice
	if cfg.Output.Database != "" {
		db := cfg.Output.Database
		choices = append(choices, reviewChoice{
			label: "store: " + db,
			load: func(ctx context.Context) ([]model.EnrichedPosting, error) {
				s, err := store.NewSQLiteStore(db)
				if err != nil {
					return nil, err
				}
				defer s.Close()
				return s.Recent(ctx, reviewStoreLimit)
			},
		})
	}
	if cfg.Output.Dir != "" {
		paths, _ := sink.ListResultsFiles(cfg.Output.Dir)
		for _, path := range paths {
			choices = append(choices, reviewChoice{
				label: path,
				load: func(context.Context) ([]model.EnrichedPosting, error) {
					return sink.ReadResults(path)
				},
			})
		}
	}
	return choices
}

func runReview(cfg *config.Config, logger *slog.Logger) {
	choices := reviewChoices(cfg)
	if len(choices) == 0 {
		fmt.Println("No results yet: run `jobfacet run` first.")
		return
	}
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.label
	}

	for {
		choice, err := review.RunPicker(labels)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}
		picked := choices[choice]

		postings, err := review.RunLoader(picked.label, picked.load)
		if err != nil {
			logger.Debug("load failed", "source", picked.label, "error", err)
			fmt.Printf("Error loading postings: %v\n", err)
			continue
		}

		wantQuit, err := review.RunReviewTUI(picked.label, postings)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
		// else: loop → back to picker
	}
}
