package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexLimit int

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Upload kept chunks to the vector index",
	Long: `Runs the indexing stage: claims chunks that passed
annotation and uploads them to the vector index. Uploads are keyed by
chunk ID, so re-running after a crash overwrites rather than
duplicates.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexLimit, "limit", 0, "maximum chunks to process (0 = all)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexer == nil {
		return errors.New("indexing service not configured")
	}

	cmd.Println("Running indexing pass...")
	report, err := indexer.Index(context.Background(), indexLimit)
	if report != nil {
		printStageReport(cmd, report, "indexed")
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}
