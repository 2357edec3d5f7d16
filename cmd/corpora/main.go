// Command corpora is the content ingestion pipeline CLI.
//
// Configuration is read from $CORPORA_CONFIG or ~/.corpora/config.toml.
// Services that lack configuration (no classifier key, no Chroma URL)
// are left unwired; the matching commands report what is missing.
package main

import (
	"fmt"
	"os"

	"github.com/atelier-labs/corpora-cli/internal/adapters/driven/classifier/openai"
	"github.com/atelier-labs/corpora-cli/internal/adapters/driven/storage/sqlite"
	"github.com/atelier-labs/corpora-cli/internal/adapters/driven/transcriber/whisper"
	"github.com/atelier-labs/corpora-cli/internal/adapters/driven/vectorindex/chroma"
	"github.com/atelier-labs/corpora-cli/internal/adapters/driving/cli"
	"github.com/atelier-labs/corpora-cli/internal/config"
	"github.com/atelier-labs/corpora-cli/internal/connectors"
	"github.com/atelier-labs/corpora-cli/internal/core/services"
	"github.com/atelier-labs/corpora-cli/internal/logger"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CORPORA_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("Config incomplete: %v", err)
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	chunks := store.ChunkStore()
	registry := store.FileRegistry()
	retryCfg := cfg.RetryConfig()

	svcs := cli.Services{
		Requeuer:       services.NewRequeueService(chunks),
		StatusReporter: services.NewStatusService(chunks, registry),
	}

	ingestOpts := []services.IngestOption{services.WithIngestRetry(retryCfg)}
	if cfg.TranscriberEnabled() {
		transcriber, err := whisper.New(whisper.Config{
			APIKey:  cfg.Transcriber.APIKey,
			BaseURL: cfg.Transcriber.BaseURL,
			Model:   cfg.Transcriber.Model,
		})
		if err != nil {
			return fmt.Errorf("building transcriber: %w", err)
		}
		ingestOpts = append(ingestOpts, services.WithTranscriber(transcriber))
	}
	svcs.Ingestor = services.NewIngestService(
		cfg.DomainSources(),
		connectors.NewFactory(),
		chunks,
		registry,
		ingestOpts...,
	)

	if cfg.Classifier.APIKey != "" {
		classifier, err := openai.New(openai.Config{
			APIKey:  cfg.Classifier.APIKey,
			BaseURL: cfg.Classifier.BaseURL,
			Model:   cfg.Classifier.Model,
		})
		if err != nil {
			return fmt.Errorf("building classifier: %w", err)
		}
		annotator, err := services.NewAnnotateService(
			chunks, classifier, cfg.Workers,
			services.WithAnnotateRetry(retryCfg),
		)
		if err != nil {
			return fmt.Errorf("building annotation service: %w", err)
		}
		defer annotator.Release()
		svcs.Annotator = annotator
	}

	if cfg.Chroma.URL != "" {
		index, err := chroma.New(chroma.Config{
			URL:        cfg.Chroma.URL,
			Collection: cfg.Chroma.Collection,
		})
		if err != nil {
			return fmt.Errorf("building vector index: %w", err)
		}
		indexer, err := services.NewIndexService(
			chunks, index, cfg.Workers,
			services.WithIndexRetry(retryCfg),
		)
		if err != nil {
			return fmt.Errorf("building indexing service: %w", err)
		}
		defer indexer.Release()
		svcs.Indexer = indexer
	}

	cli.Configure(svcs)
	cli.SetVersion(version)
	return cli.Execute()
}
