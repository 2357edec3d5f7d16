package driving

import (
	"context"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

// Annotator drains pending_annotation chunks through the classifier.
type Annotator interface {
	// Annotate processes up to limit pending chunks. limit <= 0
	// means drain everything currently pending.
	Annotate(ctx context.Context, limit int) (*StageReport, error)
}

// Indexer drains pending_indexing chunks into the vector index.
type Indexer interface {
	// Index processes up to limit pending chunks. limit <= 0 means
	// drain everything currently pending.
	Index(ctx context.Context, limit int) (*StageReport, error)
}

// Requeuer returns failed chunks to their pending states.
type Requeuer interface {
	// Requeue sweeps both failed states. Attempts and errors are
	// reset so the chunks get a full fresh retry budget.
	Requeue(ctx context.Context) (*RequeueReport, error)
}

// StatusReporter summarises pipeline state for operators.
type StatusReporter interface {
	// Status returns chunk counts per status and registry totals.
	Status(ctx context.Context) (*StatusReport, error)
}

// StageReport summarises one annotate or index run.
type StageReport struct {
	// Processed is the number of chunks the stage worked on.
	Processed int

	// Kept is the number that advanced (to pending_indexing for
	// annotation, to indexed for indexing).
	Kept int

	// Discarded is the number the classifier rejected.
	// Always zero for indexing runs.
	Discarded int

	// Failed is the number that exhausted retries.
	Failed int

	// Skipped is the number lost to claim races, left for another
	// worker.
	Skipped int
}

// RequeueReport summarises a requeue sweep.
type RequeueReport struct {
	// AnnotationRequeued is how many annotation_failed chunks went
	// back to pending_annotation.
	AnnotationRequeued int

	// IndexingRequeued is how many indexing_failed chunks went back
	// to pending_indexing.
	IndexingRequeued int
}

// StatusReport summarises pipeline state.
type StatusReport struct {
	// Chunks holds the chunk count per lifecycle status.
	Chunks map[domain.ChunkStatus]int

	// FilesIngested is the number of registry rows.
	FilesIngested int
}
