package driven

import (
	"context"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

// Transcriber converts audio and video files to text.
// This is an optional service - when nil, media files are skipped
// during ingestion rather than failed.
type Transcriber interface {
	// Transcribe returns the transcript text for a media file.
	Transcribe(ctx context.Context, file *domain.RawFile) (string, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
