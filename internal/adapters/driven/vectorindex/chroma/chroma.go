// Package chroma provides a vector index adapter backed by ChromaDB.
package chroma

import (
	"context"
	"fmt"
	"strings"

	chromago "github.com/amikos-tech/chroma-go"
	"github.com/amikos-tech/chroma-go/collection"
	"github.com/amikos-tech/chroma-go/types"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
	"github.com/atelier-labs/corpora-cli/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultCollection is the collection name when none is configured.
const DefaultCollection = "corpora"

// Config holds configuration for the Chroma index.
type Config struct {
	// URL is the Chroma server base URL (e.g., "http://localhost:8000").
	URL string

	// Collection is the collection name (default: "corpora").
	Collection string
}

// Index uploads chunks to a Chroma collection.
// Uploads go through the collection upsert keyed by chunk ID, so
// resubmitting a chunk overwrites its previous entry and retried
// uploads stay idempotent.
type Index struct {
	client         *chromago.Client
	collectionName string
}

// New creates a new Chroma index adapter.
func New(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("chroma: URL is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := chromago.NewClient(chromago.WithBasePath(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("chroma: creating client: %w", err)
	}

	return &Index{
		client:         client,
		collectionName: cfg.Collection,
	}, nil
}

// ensureCollection creates the collection if it does not exist yet.
func (i *Index) ensureCollection(ctx context.Context) (*chromago.Collection, error) {
	col, err := i.client.NewCollection(
		ctx,
		i.collectionName,
		collection.WithHNSWDistanceFunction(types.L2),
		collection.WithCreateIfNotExist(true),
	)
	if err != nil {
		return nil, fmt.Errorf("chroma: creating collection %q: %w", i.collectionName, err)
	}
	return col, nil
}

// Add upserts a batch of chunks, keyed by chunk ID.
// Embeddings are computed server-side by Chroma.
func (i *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	col, err := i.ensureCollection(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(chunks))
	documents := make([]string, len(chunks))
	metadatas := make([]map[string]interface{}, len(chunks))
	for n, chunk := range chunks {
		ids[n] = chunk.ID
		documents[n] = chunk.Content
		metadatas[n] = chunkMetadata(&chunk)
	}

	if _, err := col.Upsert(ctx, nil, metadatas, documents, ids); err != nil {
		return fmt.Errorf("chroma: upserting %d chunks: %w", len(chunks), err)
	}

	logger.Debug("uploaded %d chunks to chroma collection %q", len(chunks), i.collectionName)
	return nil
}

// chunkMetadata flattens a chunk into Chroma metadata. Chroma only
// accepts scalar values, so tags are joined into a single string.
func chunkMetadata(chunk *domain.Chunk) map[string]interface{} {
	metadata := map[string]interface{}{
		"file_id":   chunk.FileID,
		"source_id": chunk.SourceID,
		"uri":       chunk.URI,
		"position":  chunk.Position,
	}
	if chunk.Annotation != nil {
		metadata["tags"] = strings.Join(chunk.Annotation.Tags, ",")
		metadata["reason"] = chunk.Annotation.Reason
	}
	return metadata
}

// Ping validates the backend is reachable by ensuring the
// collection exists.
func (i *Index) Ping(ctx context.Context) error {
	_, err := i.ensureCollection(ctx)
	return err
}

// Close releases resources.
func (i *Index) Close() error {
	// The underlying HTTP client doesn't need explicit cleanup
	return nil
}
