package domain

import "time"

// SourceFile is a registry row recording that a file was fully
// ingested: the row is written only after every chunk for the file
// is durably persisted, so its presence (with a matching
// fingerprint) is the commit point that makes re-ingestion a no-op.
type SourceFile struct {
	// ID is the stable identifier for the file within its source.
	ID string

	// SourceID links to the configured source that produced the file.
	SourceID string

	// URI is the original location (file path, Drive ID, etc).
	URI string

	// Name is the human-readable file name.
	Name string

	// Fingerprint is the content hash used to detect changes.
	// A differing fingerprint makes the file eligible again.
	Fingerprint string

	// ChunkCount is how many chunks the file was split into.
	ChunkCount int

	// SizeBytes is the raw content size.
	SizeBytes int64

	// IngestedAt is when the file was first fully ingested.
	IngestedAt time.Time

	// UpdatedAt is when the row last changed (re-ingestion after
	// a fingerprint change updates it).
	UpdatedAt time.Time
}
