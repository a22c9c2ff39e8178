package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfacet/internal/dedup"
	"github.com/amishk599/jobfacet/internal/source"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup <file.json>",
	Short: "Deduplicate a saved scrape",
	Long:  "Reads a JSON array of postings, prints the first occurrence of every URL and fingerprint as JSON, and the counts to stderr.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDedup,
}

func init() {
	rootCmd.AddCommand(dedupCmd)
}

func runDedup(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr, debug)

	postings, err := source.ReadPostings(args[0], "file")
	if err != nil {
		logger.Error("failed to read postings", "error", err)
		return err
	}

	kept, stats := dedup.New(logger).Deduplicate(postings)
	if err := printJSON(cmd.OutOrStdout(), kept); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "input %d, kept %d, duplicate urls %d, duplicate fingerprints %d\n",
		stats.Input, stats.Kept, stats.DroppedURL, stats.DroppedFingerprint)
	return nil
}
