package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atelier-labs/corpora-cli/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-id]",
	Short: "Pull files from sources and store pending chunks",
	Long: `Fetches files from configured sources, skips files whose
fingerprint is unchanged since the last run, splits new content into
chunks and stores them for annotation.
If a source ID is provided, only that source is ingested.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestor == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := context.Background()

	var report *driving.IngestReport
	var err error

	if len(args) > 0 {
		cmd.Printf("Ingesting source %s...\n", args[0])
		report, err = ingestor.Ingest(ctx, args[0])
	} else {
		cmd.Println("Ingesting all sources...")
		report, err = ingestor.IngestAll(ctx)
	}

	if report != nil {
		printIngestReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func printIngestReport(cmd *cobra.Command, r *driving.IngestReport) {
	cmd.Printf("Files: %d seen, %d ingested, %d skipped, %d failed\n",
		r.FilesSeen, r.FilesIngested, r.FilesSkipped, r.FilesFailed)
	cmd.Printf("Chunks written: %d\n", r.ChunksWritten)
}
