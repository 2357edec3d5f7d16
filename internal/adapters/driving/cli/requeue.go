package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var requeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Return failed chunks to their pending states",
	Long: `Moves annotation_failed chunks back to pending_annotation and
indexing_failed chunks back to pending_indexing. Attempt counts and
recorded errors are reset, so requeued chunks get a full retry budget
on the next stage run.`,
	RunE: runRequeue,
}

func init() {
	rootCmd.AddCommand(requeueCmd)
}

func runRequeue(cmd *cobra.Command, _ []string) error {
	if requeuer == nil {
		return errors.New("requeue service not configured")
	}

	report, err := requeuer.Requeue(context.Background())
	if err != nil {
		return fmt.Errorf("requeue failed: %w", err)
	}

	cmd.Printf("Requeued %d chunks for annotation, %d for indexing\n",
		report.AnnotationRequeued, report.IndexingRequeued)
	return nil
}
