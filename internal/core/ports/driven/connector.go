package driven

import (
	"context"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

// Connector fetches files from a data source.
// Each connector type (filesystem, google-drive) implements this interface.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// SourceID returns the configured source ID.
	SourceID() string

	// Capabilities returns what this connector supports.
	Capabilities() ConnectorCapabilities

	// Validate checks if the connector is properly configured and authenticated.
	// For API connectors, this typically makes a test API call.
	// For filesystem, this checks the path exists and is readable.
	// Returns nil if ready to ingest, error describing the problem otherwise.
	Validate(ctx context.Context) error

	// FullSync fetches all files from the source.
	// Returns channels for files and errors. Both channels are
	// closed when the sync finishes.
	FullSync(ctx context.Context) (<-chan domain.RawFile, <-chan error)

	// Watch listens for real-time changes.
	// Only available if SupportsWatch is true.
	Watch(ctx context.Context) (<-chan domain.RawFileChange, error)

	// Close releases resources.
	Close() error
}

// ConnectorCapabilities describes what a connector supports.
type ConnectorCapabilities struct {
	// SupportsWatch indicates the connector can push real-time events.
	SupportsWatch bool

	// SupportsBinary indicates the connector handles binary content.
	SupportsBinary bool

	// RequiresAuth indicates the connector needs authentication.
	// False for local connectors like filesystem.
	RequiresAuth bool

	// SupportsRateLimiting indicates the connector throttles its own
	// API calls.
	SupportsRateLimiting bool

	// SupportsPagination indicates the connector handles paginated APIs.
	// Connectors handle pagination internally; this is informational.
	SupportsPagination bool
}

// ConnectorBuilder creates a Connector from a source configuration.
type ConnectorBuilder func(source domain.Source) (Connector, error)

// ConnectorFactory creates connectors from source configuration.
// It maintains a registry of connector types and their builders.
type ConnectorFactory interface {
	// Create returns a Connector for the given source.
	// Returns domain.ErrUnsupportedType if the source type is unknown.
	Create(ctx context.Context, source domain.Source) (Connector, error)

	// Register adds a connector builder for the given type.
	Register(connectorType string, builder ConnectorBuilder)

	// SupportedTypes returns all registered connector types.
	SupportedTypes() []string
}
