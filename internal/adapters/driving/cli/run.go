package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ingest, annotate, index",
	Long: `Executes all three stages in order. Each stage drains its
queue completely before the next starts. A stage error aborts the
remaining stages; chunks already written stay durable and the pipeline
can be resumed with the individual commands.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	if ingestor == nil || annotator == nil || indexer == nil {
		return errors.New("pipeline services not configured")
	}

	ctx := context.Background()

	cmd.Println("Ingesting all sources...")
	ingestReport, err := ingestor.IngestAll(ctx)
	if ingestReport != nil {
		printIngestReport(cmd, ingestReport)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Println("Running annotation pass...")
	annotateReport, err := annotator.Annotate(ctx, 0)
	if annotateReport != nil {
		printStageReport(cmd, annotateReport, "kept")
	}
	if err != nil {
		return fmt.Errorf("annotation failed: %w", err)
	}

	cmd.Println("Running indexing pass...")
	indexReport, err := indexer.Index(ctx, 0)
	if indexReport != nil {
		printStageReport(cmd, indexReport, "indexed")
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Println("Pipeline complete")
	return nil
}
