package driven

import (
	"context"
	"time"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

// ChunkStore persists chunks and their lifecycle state.
// Backed by SQLite for metadata storage.
//
// Claim and Transition are conditional writes: they only apply when
// the chunk's current status matches the caller's expectation, and
// return domain.ErrConflict otherwise. This is what lets multiple
// workers share a store without double-processing.
type ChunkStore interface {
	// SaveChunk stores or updates a chunk.
	SaveChunk(ctx context.Context, chunk *domain.Chunk) error

	// GetChunk retrieves a chunk by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListByStatus returns up to limit chunks in the given status,
	// oldest first. limit <= 0 means no limit.
	ListByStatus(ctx context.Context, status domain.ChunkStatus, limit int) ([]domain.Chunk, error)

	// ListByFile returns all chunks for a file, ordered by position.
	ListByFile(ctx context.Context, fileID string) ([]domain.Chunk, error)

	// Claim marks the chunk as being processed by owner, but only if
	// its status is expected and it is not already claimed (or the
	// existing claim is older than staleAfter). Returns
	// domain.ErrConflict when another worker holds it.
	Claim(ctx context.Context, id string, expected domain.ChunkStatus, owner string, staleAfter time.Duration) error

	// Transition moves a chunk from one status to another, clearing
	// any claim. The write only applies when the current status is
	// from; otherwise domain.ErrConflict is returned. An annotation,
	// attempt count and last error may be recorded alongside.
	// Returns domain.ErrInvalidTransition for edges outside the
	// state machine.
	Transition(ctx context.Context, id string, from, to domain.ChunkStatus, update ChunkUpdate) error

	// Requeue moves every chunk in status from back to status to,
	// clearing claims, attempts and errors. Returns the number of
	// chunks moved.
	Requeue(ctx context.Context, from, to domain.ChunkStatus) (int, error)

	// CountByStatus returns chunk counts per status.
	CountByStatus(ctx context.Context) (map[domain.ChunkStatus]int, error)
}

// ChunkUpdate carries the optional fields recorded during a
// Transition. Nil pointers leave the stored value unchanged.
type ChunkUpdate struct {
	// Annotation records the classifier verdict, if one was obtained.
	Annotation *domain.Annotation

	// Attempts records how many attempts the stage used.
	Attempts *int

	// LastError records the failure message, or empty to clear it.
	LastError *string
}
