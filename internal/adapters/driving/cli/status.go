package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline state",
	Long: `Prints the chunk count per lifecycle status and the number of
fully ingested files. Non-zero pending counts mean the annotate or
index stages have work to do; failed counts mean a requeue may be
needed.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusReporter == nil {
		return errors.New("status service not configured")
	}

	report, err := statusReporter.Status(context.Background())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	cmd.Println("Chunks:")
	for _, status := range domain.ChunkStatuses {
		cmd.Printf("  %-20s %d\n", status, report.Chunks[status])
	}
	cmd.Printf("Files ingested: %d\n", report.FilesIngested)
	return nil
}
