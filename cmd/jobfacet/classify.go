package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfacet/internal/classifier"
	"github.com/amishk599/jobfacet/internal/config"
	"github.com/amishk599/jobfacet/internal/merge"
	"github.com/amishk599/jobfacet/internal/model"
	"github.com/amishk599/jobfacet/internal/taxonomy"
)

var classifySecondary bool

var classifyCmd = &cobra.Command{
	Use:   "classify [text|-]",
	Short: "Classify one description and print its facets as JSON",
	Long: "Runs the rule-based classifier over the given text (or stdin when the argument is \"-\" or missing). " +
		"--secondary also consults the configured secondary classifier and merges with the configured strategy.",
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifySecondary, "secondary", false, "also use the configured secondary classifier")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr, debug)

	text, err := readDescription(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	// Without --secondary a missing config is fine: the embedded tables are used.
	var cfg *config.Config
	if classifySecondary || cfgPath != "" {
		if cfg, err = loadConfig(cfgPath); err != nil {
			logger.Error("failed to load config", "error", err)
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var engine *merge.Engine
	if classifySecondary {
		cfg.Secondary.Enabled = true
		if engine, err = buildEngine(ctx, cfg, logger); err != nil {
			return err
		}
	} else {
		path := ""
		if cfg != nil {
			path = cfg.Taxonomy
		}
		reg, err := taxonomy.Load(path)
		if err != nil {
			return err
		}
		engine = merge.NewEngine(classifier.New(reg), nil, merge.Options{}, logger)
	}

	result := engine.Analyze(ctx, model.Posting{
		Title:       model.NotAvailable,
		URL:         model.NotAvailable,
		Company:     model.NotAvailable,
		Location:    model.NotAvailable,
		PublishDate: model.NotAvailable,
		Description: text,
		Source:      "cli",
	})
	return printJSON(cmd.OutOrStdout(), result)
}

// readDescription joins args, or reads r when there are none or the only one is "-".
func readDescription(r io.Reader, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.Join(args, " "), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
