package driving

import "context"

// Ingestor pulls files from sources, splits them into chunks and
// records fully ingested files in the registry.
type Ingestor interface {
	// Ingest runs a full sync for one source.
	Ingest(ctx context.Context, sourceID string) (*IngestReport, error)

	// IngestAll runs a full sync for every configured source.
	IngestAll(ctx context.Context) (*IngestReport, error)
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// FilesSeen is the number of files the connectors produced.
	FilesSeen int

	// FilesSkipped is the number skipped because the registry
	// already holds a matching fingerprint.
	FilesSkipped int

	// FilesIngested is the number fully chunked and registered.
	FilesIngested int

	// FilesFailed is the number that errored before the registry
	// row was written. These remain eligible for the next run.
	FilesFailed int

	// ChunksWritten is the total chunks durably stored.
	ChunksWritten int
}

// Add accumulates another report into r.
func (r *IngestReport) Add(other IngestReport) {
	r.FilesSeen += other.FilesSeen
	r.FilesSkipped += other.FilesSkipped
	r.FilesIngested += other.FilesIngested
	r.FilesFailed += other.FilesFailed
	r.ChunksWritten += other.ChunksWritten
}
