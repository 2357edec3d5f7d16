package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

func testFile(id, fingerprint string) domain.SourceFile {
	return domain.SourceFile{
		ID:          id,
		SourceID:    "src-1",
		URI:         "file:///notes/" + id + ".md",
		Name:        id + ".md",
		Fingerprint: fingerprint,
		ChunkCount:  3,
		SizeBytes:   1024,
	}
}

// TestFileRegistry_UpsertAndGet tests round-tripping a registry row
func TestFileRegistry_UpsertAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	registry := store.FileRegistry()

	file := testFile("f1", "abc123")
	require.NoError(t, registry.Upsert(ctx, &file))

	got, err := registry.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.Fingerprint)
	assert.Equal(t, 3, got.ChunkCount)
	assert.False(t, got.IngestedAt.IsZero())
}

// TestFileRegistry_GetMissing tests ErrNotFound
func TestFileRegistry_GetMissing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.FileRegistry().Get(context.Background(), "never-ingested")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestFileRegistry_Upsert_ReplacesFingerprint tests re-ingestion
// after a content change
func TestFileRegistry_Upsert_ReplacesFingerprint(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	registry := store.FileRegistry()

	file := testFile("f1", "abc123")
	require.NoError(t, registry.Upsert(ctx, &file))
	first, err := registry.Get(ctx, "f1")
	require.NoError(t, err)

	changed := testFile("f1", "def456")
	changed.ChunkCount = 5
	require.NoError(t, registry.Upsert(ctx, &changed))

	got, err := registry.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "def456", got.Fingerprint)
	assert.Equal(t, 5, got.ChunkCount)
	// The original ingestion time survives the replace.
	assert.Equal(t, first.IngestedAt.Unix(), got.IngestedAt.Unix())
}

// TestFileRegistry_List tests listing with and without a source filter
func TestFileRegistry_List(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	registry := store.FileRegistry()

	a := testFile("f1", "x")
	b := testFile("f2", "y")
	b.SourceID = "src-2"
	require.NoError(t, registry.Upsert(ctx, &a))
	require.NoError(t, registry.Upsert(ctx, &b))

	all, err := registry.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := registry.List(ctx, "src-2")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "f2", filtered[0].ID)
}

// TestFileRegistry_Delete tests row removal
func TestFileRegistry_Delete(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	registry := store.FileRegistry()

	file := testFile("f1", "x")
	require.NoError(t, registry.Upsert(ctx, &file))
	require.NoError(t, registry.Delete(ctx, "f1"))

	_, err := registry.Get(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting a missing row is a no-op.
	assert.NoError(t, registry.Delete(ctx, "f1"))
}
