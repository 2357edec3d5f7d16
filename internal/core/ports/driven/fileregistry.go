package driven

import (
	"context"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

// FileRegistry records fully ingested files.
// A row is written only after every chunk for the file has been
// durably stored, so a present row with a matching fingerprint means
// the file can be skipped on the next run.
type FileRegistry interface {
	// Get retrieves a registry row by file ID.
	// Returns domain.ErrNotFound if the file was never ingested.
	Get(ctx context.Context, id string) (*domain.SourceFile, error)

	// Upsert writes or replaces the registry row. This is the
	// commit point of ingestion.
	Upsert(ctx context.Context, file *domain.SourceFile) error

	// List returns registry rows for a source. An empty sourceID
	// returns all rows.
	List(ctx context.Context, sourceID string) ([]domain.SourceFile, error)

	// Delete removes a registry row, making the file eligible for
	// re-ingestion.
	Delete(ctx context.Context, id string) error
}
