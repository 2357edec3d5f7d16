package domain

import "strings"

// RawFile represents opaque bytes fetched by a connector.
// It is the connector's output before fingerprinting and chunking.
type RawFile struct {
	// SourceID links to the configured source that produced the file.
	SourceID string

	// URI is the original location (file path, Drive ID, etc).
	URI string

	// Name is the human-readable file name.
	Name string

	// MIMEType is the content type (e.g., "text/markdown").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains connector-specific key-value pairs.
	Metadata map[string]any
}

// IsMedia reports whether the file is audio or video and should be
// routed through the transcriber instead of read as text.
func (r *RawFile) IsMedia() bool {
	return strings.HasPrefix(r.MIMEType, "audio/") || strings.HasPrefix(r.MIMEType, "video/")
}

// ChangeType represents the type of file change.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// RawFileChange represents a change event from a connector.
// Used for incremental sync and watch operations.
type RawFileChange struct {
	// Type is the kind of change.
	Type ChangeType

	// File is the affected file.
	File RawFile
}
