package connectors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atelier-labs/corpora-cli/internal/connectors/filesystem"
	"github.com/atelier-labs/corpora-cli/internal/connectors/google/drive"
	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Factory creates connectors from source configuration.
// It maintains a registry of connector types and their builders.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]driven.ConnectorBuilder
}

// NewFactory creates a factory with the built-in connector types registered.
func NewFactory() *Factory {
	f := &Factory{
		builders: make(map[string]driven.ConnectorBuilder),
	}

	f.Register(filesystem.Type, func(source domain.Source) (driven.Connector, error) {
		path := source.Config["path"]
		if path == "" {
			return nil, fmt.Errorf("%w: filesystem source %q has no path", domain.ErrInvalidInput, source.ID)
		}
		return filesystem.New(source.ID, path), nil
	})

	f.Register(drive.Type, func(source domain.Source) (driven.Connector, error) {
		return drive.New(source)
	})

	return f
}

// Register adds a connector builder for the given type.
func (f *Factory) Register(connectorType string, builder driven.ConnectorBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[connectorType] = builder
}

// Create returns a Connector for the given source.
// Returns domain.ErrUnsupportedType if the source type is unknown.
func (f *Factory) Create(_ context.Context, source domain.Source) (driven.Connector, error) {
	f.mu.RLock()
	builder, ok := f.builders[source.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, source.Type)
	}

	return builder(source)
}

// SupportedTypes returns all registered connector types, sorted.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
