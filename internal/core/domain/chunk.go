package domain

import "time"

// ChunkStatus is the lifecycle state of a chunk in the pipeline.
// Every chunk is durably persisted with a status, and every status
// change is a single conditional write so that concurrent workers
// and crash recovery observe a consistent state machine.
type ChunkStatus string

const (
	// StatusPendingAnnotation means the chunk is written and awaiting
	// the LLM keep/discard decision.
	StatusPendingAnnotation ChunkStatus = "pending_annotation"

	// StatusPendingIndexing means the annotator decided to keep the
	// chunk and it is awaiting upload to the vector index.
	StatusPendingIndexing ChunkStatus = "pending_indexing"

	// StatusIndexed means the chunk was accepted by the vector index.
	// Terminal.
	StatusIndexed ChunkStatus = "indexed"

	// StatusDiscarded means the annotator decided the chunk is not
	// worth indexing. Terminal, but retained for audit.
	StatusDiscarded ChunkStatus = "discarded"

	// StatusAnnotationFailed means annotation exhausted its retries.
	// A requeue sweep returns the chunk to StatusPendingAnnotation.
	StatusAnnotationFailed ChunkStatus = "annotation_failed"

	// StatusIndexingFailed means indexing exhausted its retries.
	// A requeue sweep returns the chunk to StatusPendingIndexing.
	StatusIndexingFailed ChunkStatus = "indexing_failed"
)

// ChunkStatuses lists every valid status. Useful for validation
// and for status summaries that must cover the whole machine.
var ChunkStatuses = []ChunkStatus{
	StatusPendingAnnotation,
	StatusPendingIndexing,
	StatusIndexed,
	StatusDiscarded,
	StatusAnnotationFailed,
	StatusIndexingFailed,
}

// transitions is the closed set of legal status changes.
// Requeue edges (failed -> pending) are included because the
// sweep uses the same conditional-update path as the workers.
var transitions = map[ChunkStatus][]ChunkStatus{
	StatusPendingAnnotation: {StatusPendingIndexing, StatusDiscarded, StatusAnnotationFailed},
	StatusPendingIndexing:   {StatusIndexed, StatusIndexingFailed},
	StatusAnnotationFailed:  {StatusPendingAnnotation},
	StatusIndexingFailed:    {StatusPendingIndexing},
}

// Valid reports whether s is a known status.
func (s ChunkStatus) Valid() bool {
	for _, known := range ChunkStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions leave s.
// Indexed and discarded chunks are never picked up again.
func (s ChunkStatus) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransition reports whether s -> to is a legal edge.
func (s ChunkStatus) CanTransition(to ChunkStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Chunk is a unit of text produced by splitting a source file.
// It carries its own lifecycle state so that each pipeline stage
// can run independently, resume after a crash, and never lose
// or double-process work.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// FileID links to the SourceFile this chunk was split from.
	FileID string

	// SourceID links to the configured source that produced the file.
	SourceID string

	// URI is the original location of the parent file.
	URI string

	// Position is the ordinal position within the parent file.
	Position int

	// Content is the chunk text.
	Content string

	// TokenCount is the tokenizer's count for Content, or an
	// approximation when no tokenizer is available.
	TokenCount int

	// Status is the current lifecycle state.
	Status ChunkStatus

	// Annotation holds the LLM verdict once annotation succeeds.
	Annotation *Annotation

	// Attempts counts processing attempts for the current stage.
	// Reset to zero when a requeue sweep reopens the chunk.
	Attempts int

	// LastError records the most recent failure, for operators.
	LastError string

	// ClaimedBy identifies the worker holding the chunk, if any.
	ClaimedBy string

	// ClaimedAt is when the current claim was taken.
	ClaimedAt *time.Time

	// CreatedAt is when the chunk was first written.
	CreatedAt time.Time

	// UpdatedAt is when the chunk last changed.
	UpdatedAt time.Time
}
