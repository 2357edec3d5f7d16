package driven

import (
	"context"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

// VectorIndex uploads kept chunks to a retrieval backend.
// Backed by Chroma. Uploads are keyed by chunk ID, so re-uploading
// the same chunk overwrites rather than duplicates.
type VectorIndex interface {
	// Add uploads a batch of chunks, keyed by chunk ID.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
