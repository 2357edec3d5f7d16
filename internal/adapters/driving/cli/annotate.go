package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atelier-labs/corpora-cli/internal/core/ports/driving"
)

var annotateLimit int

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Classify pending chunks with the LLM",
	Long: `Runs the annotation stage: claims chunks awaiting
classification, asks the LLM for a keep/discard judgment and advances
each chunk to pending_indexing or discarded. Failed chunks are parked
in annotation_failed for a later requeue.`,
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().IntVar(&annotateLimit, "limit", 0, "maximum chunks to process (0 = all)")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
	if annotator == nil {
		return errors.New("annotation service not configured")
	}

	cmd.Println("Running annotation pass...")
	report, err := annotator.Annotate(context.Background(), annotateLimit)
	if report != nil {
		printStageReport(cmd, report, "kept")
	}
	if err != nil {
		return fmt.Errorf("annotation failed: %w", err)
	}
	return nil
}

func printStageReport(cmd *cobra.Command, r *driving.StageReport, advancedLabel string) {
	cmd.Printf("Processed %d chunks: %d %s, %d discarded, %d failed, %d skipped\n",
		r.Processed, r.Kept, advancedLabel, r.Discarded, r.Failed, r.Skipped)
}
