package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/atelier-labs/corpora-cli/internal/chunker"
	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driving"
	"github.com/atelier-labs/corpora-cli/internal/logger"
	"github.com/atelier-labs/corpora-cli/internal/retry"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestService pulls files from configured sources, splits them into
// chunks and records fully ingested files in the registry.
//
// The registry row is written only after every chunk for a file has
// been durably stored. A failure partway through a file leaves the
// registry untouched, so the file stays eligible for the next run.
type IngestService struct {
	sources     []domain.Source
	factory     driven.ConnectorFactory
	chunks      driven.ChunkStore
	registry    driven.FileRegistry
	transcriber driven.Transcriber
	splitter    *chunker.Splitter
	retryCfg    retry.Config
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithTranscriber enables media transcription. Without one, audio and
// video files are skipped.
func WithTranscriber(t driven.Transcriber) IngestOption {
	return func(s *IngestService) { s.transcriber = t }
}

// WithSplitter overrides the default chunker.
func WithSplitter(sp *chunker.Splitter) IngestOption {
	return func(s *IngestService) { s.splitter = sp }
}

// WithIngestRetry overrides the retry policy for storage and
// transcription calls.
func WithIngestRetry(cfg retry.Config) IngestOption {
	return func(s *IngestService) { s.retryCfg = cfg }
}

// NewIngestService creates a new ingestion driver.
func NewIngestService(
	sources []domain.Source,
	factory driven.ConnectorFactory,
	chunks driven.ChunkStore,
	registry driven.FileRegistry,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		sources:  sources,
		factory:  factory,
		chunks:   chunks,
		registry: registry,
		splitter: chunker.New(),
		retryCfg: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest runs a full sync for one source.
func (s *IngestService) Ingest(ctx context.Context, sourceID string) (*driving.IngestReport, error) {
	source, err := s.findSource(sourceID)
	if err != nil {
		return nil, err
	}

	connector, err := s.factory.Create(ctx, *source)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()

	if err := connector.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate source %s: %w", sourceID, err)
	}

	logger.Info("Starting ingestion for source %s", sourceID)

	report := &driving.IngestReport{}
	filesCh, errsCh := connector.FullSync(ctx)

	for {
		select {
		case <-ctx.Done():
			return report, ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			if err != nil {
				return report, fmt.Errorf("connector error: %w", err)
			}

		case raw, ok := <-filesCh:
			if !ok {
				logger.Info("Ingestion complete: %d seen, %d ingested, %d skipped, %d failed, %d chunks",
					report.FilesSeen, report.FilesIngested, report.FilesSkipped, report.FilesFailed,
					report.ChunksWritten)
				return report, nil
			}

			report.FilesSeen++
			outcome, written, err := s.ingestOneFile(ctx, &raw)
			if err != nil {
				report.FilesFailed++
				logger.Warn("Failed to ingest %s: %v", raw.URI, err)
				continue
			}
			report.ChunksWritten += written
			switch outcome {
			case outcomeIngested:
				report.FilesIngested++
			case outcomeSkipped:
				report.FilesSkipped++
			}
		}
	}
}

// IngestAll runs a full sync for every configured source.
func (s *IngestService) IngestAll(ctx context.Context) (*driving.IngestReport, error) {
	total := &driving.IngestReport{}

	var errs []error
	for _, source := range s.sources {
		report, err := s.Ingest(ctx, source.ID)
		if report != nil {
			total.Add(*report)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("ingest %s: %w", source.ID, err))
		}
	}

	if len(errs) > 0 {
		return total, errors.Join(errs...)
	}
	return total, nil
}

type fileOutcome int

const (
	outcomeIngested fileOutcome = iota
	outcomeSkipped
)

// ingestOneFile runs the per-file pipeline: fingerprint check,
// transcription for media, chunking, chunk writes, registry commit.
func (s *IngestService) ingestOneFile(ctx context.Context, raw *domain.RawFile) (fileOutcome, int, error) {
	fileID := fileIdentity(raw)
	fingerprint := Fingerprint(raw.Content)

	existing, err := s.registry.Get(ctx, fileID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return outcomeSkipped, 0, fmt.Errorf("registry lookup: %w", err)
	}
	if existing != nil && existing.Fingerprint == fingerprint {
		logger.Debug("Skipping %s: fingerprint unchanged", raw.URI)
		return outcomeSkipped, 0, nil
	}

	text, err := s.extractText(ctx, raw)
	if err != nil {
		return outcomeSkipped, 0, err
	}
	if text == "" {
		logger.Debug("Skipping %s: no text content", raw.URI)
		return outcomeSkipped, 0, nil
	}

	chunks := s.splitter.Split(fileID, raw.SourceID, raw.URI, text)
	if len(chunks) == 0 {
		return outcomeSkipped, 0, nil
	}

	// Each chunk write is an independent durable operation. A failure
	// here leaves a prefix written and the registry row absent, which
	// keeps the file eligible for the next run.
	written := 0
	for i := range chunks {
		chunk := chunks[i]
		err := retry.Do(ctx, "save chunk", s.retryCfg, func(ctx context.Context) error {
			return s.chunks.SaveChunk(ctx, &chunk)
		})
		if err != nil {
			return outcomeSkipped, written, fmt.Errorf("save chunk %d/%d: %w", i+1, len(chunks), err)
		}
		written++
	}

	now := time.Now().UTC()
	file := &domain.SourceFile{
		ID:          fileID,
		SourceID:    raw.SourceID,
		URI:         raw.URI,
		Name:        raw.Name,
		Fingerprint: fingerprint,
		ChunkCount:  len(chunks),
		SizeBytes:   int64(len(raw.Content)),
		IngestedAt:  now,
		UpdatedAt:   now,
	}
	err = retry.Do(ctx, "register file", s.retryCfg, func(ctx context.Context) error {
		return s.registry.Upsert(ctx, file)
	})
	if err != nil {
		return outcomeSkipped, written, fmt.Errorf("register file: %w", err)
	}

	logger.Debug("Ingested %s: %d chunks", raw.URI, len(chunks))
	return outcomeIngested, written, nil
}

// extractText returns the chunkable text for a file, routing media
// through the transcriber.
func (s *IngestService) extractText(ctx context.Context, raw *domain.RawFile) (string, error) {
	if !raw.IsMedia() {
		return string(raw.Content), nil
	}

	if s.transcriber == nil {
		logger.Debug("Skipping media %s: no transcriber configured", raw.URI)
		return "", nil
	}

	var text string
	err := retry.Do(ctx, "transcribe", s.retryCfg, func(ctx context.Context) error {
		var err error
		text, err = s.transcriber.Transcribe(ctx, raw)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", raw.URI, err)
	}
	return text, nil
}

func (s *IngestService) findSource(sourceID string) (*domain.Source, error) {
	for i := range s.sources {
		if s.sources[i].ID == sourceID {
			return &s.sources[i], nil
		}
	}
	return nil, fmt.Errorf("%w: source %s", domain.ErrNotFound, sourceID)
}

// fileIdentity returns the stable registry key for a file. Connectors
// that know a provider-side ID put it in metadata; the URI serves
// otherwise.
func fileIdentity(raw *domain.RawFile) string {
	if id, ok := raw.Metadata["file_id"].(string); ok && id != "" {
		return id
	}
	return raw.URI
}

// Fingerprint computes the change-detection hash for file content.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
