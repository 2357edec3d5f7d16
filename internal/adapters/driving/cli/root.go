// Package cli implements the corpora command-line interface.
// Commands call the driving port services; wiring happens in
// cmd/corpora before Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/atelier-labs/corpora-cli/internal/core/ports/driving"
	"github.com/atelier-labs/corpora-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services configured by cmd/corpora. Commands whose service is nil
// report a configuration error instead of panicking.
var (
	ingestor       driving.Ingestor
	annotator      driving.Annotator
	indexer        driving.Indexer
	requeuer       driving.Requeuer
	statusReporter driving.StatusReporter
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "corpora",
	Short: "Ingest, annotate and index content for retrieval",
	Long: `Corpora pulls content from configured sources, splits it into
chunks, classifies each chunk with an LLM keep/discard judgment and
uploads the kept chunks to a vector index. Chunk lifecycle state is
stored durably, so every stage can be re-run safely.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services bundles the driving ports the CLI needs.
type Services struct {
	Ingestor       driving.Ingestor
	Annotator      driving.Annotator
	Indexer        driving.Indexer
	Requeuer       driving.Requeuer
	StatusReporter driving.StatusReporter
}

// Configure injects the services. Nil fields leave the matching
// commands unconfigured.
func Configure(s Services) {
	ingestor = s.Ingestor
	annotator = s.Annotator
	indexer = s.Indexer
	requeuer = s.Requeuer
	statusReporter = s.StatusReporter
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
