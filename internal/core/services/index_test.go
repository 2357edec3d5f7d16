package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

func keptChunk(id, content string) *domain.Chunk {
	return &domain.Chunk{
		ID:         id,
		FileID:     "file-1",
		SourceID:   "src-1",
		URI:        "/docs/a.txt",
		Content:    content,
		Status:     domain.StatusPendingIndexing,
		Annotation: &domain.Annotation{Keep: true, Tags: []string{"t"}, Reason: "ok"},
	}
}

func newIndexFixture(t *testing.T, index *mockVectorIndex) (*IndexService, *memChunkStore) {
	t.Helper()
	store := newMemChunkStore()
	svc, err := NewIndexService(store, index, 2, WithIndexRetry(fastRetry(3)))
	require.NoError(t, err)
	t.Cleanup(svc.Release)
	return svc, store
}

// TestIndexService_Success tests the pending_indexing to indexed path.
func TestIndexService_Success(t *testing.T) {
	index := &mockVectorIndex{}
	svc, store := newIndexFixture(t, index)
	ctx := context.Background()

	require.NoError(t, store.SaveChunk(ctx, keptChunk("c1", "hello")))

	report, err := svc.Index(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, 0, report.Failed)

	chunk, err := store.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIndexed, chunk.Status)
	assert.Empty(t, chunk.ClaimedBy)

	require.Len(t, index.added, 1)
	assert.Equal(t, "c1", index.added[0].ID)
}

// TestIndexService_Exhaustion tests that exhausted retries leave the
// chunk in indexing_failed with the error recorded.
func TestIndexService_Exhaustion(t *testing.T) {
	index := &mockVectorIndex{failures: 100}
	svc, store := newIndexFixture(t, index)
	ctx := context.Background()

	require.NoError(t, store.SaveChunk(ctx, keptChunk("c1", "hello")))

	report, err := svc.Index(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, index.calls)

	chunk, err := store.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIndexingFailed, chunk.Status)
	assert.Equal(t, 3, chunk.Attempts)
	assert.Contains(t, chunk.LastError, "attempts failed")
	// The annotation from the earlier stage stays in place.
	assert.NotNil(t, chunk.Annotation)
}

// TestIndexService_TransientRecovery tests the retry path.
func TestIndexService_TransientRecovery(t *testing.T) {
	index := &mockVectorIndex{failures: 1}
	svc, store := newIndexFixture(t, index)
	ctx := context.Background()

	require.NoError(t, store.SaveChunk(ctx, keptChunk("c1", "hello")))

	report, err := svc.Index(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, 2, index.calls)
}

// TestIndexService_IgnoresOtherStatuses tests that only
// pending_indexing chunks are touched.
func TestIndexService_IgnoresOtherStatuses(t *testing.T) {
	index := &mockVectorIndex{}
	svc, store := newIndexFixture(t, index)
	ctx := context.Background()

	require.NoError(t, store.SaveChunk(ctx, pendingChunk("p1", "not yet annotated")))
	discarded := pendingChunk("d1", "rejected")
	discarded.Status = domain.StatusDiscarded
	require.NoError(t, store.SaveChunk(ctx, discarded))

	report, err := svc.Index(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.Empty(t, index.added)
}

// TestIndexService_ClaimedChunkSkipped tests claim exclusion between
// workers.
func TestIndexService_ClaimedChunkSkipped(t *testing.T) {
	index := &mockVectorIndex{}
	svc, store := newIndexFixture(t, index)
	ctx := context.Background()

	require.NoError(t, store.SaveChunk(ctx, keptChunk("c1", "hello")))
	require.NoError(t, store.Claim(ctx, "c1", domain.StatusPendingIndexing, "other-worker", DefaultStaleClaim))

	report, err := svc.Index(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, index.calls)
}

// TestPipeline_EndToEnd walks one chunk through annotation and
// indexing, and one through discard.
func TestPipeline_EndToEnd(t *testing.T) {
	store := newMemChunkStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunk(ctx, pendingChunk("c1", "hello")))
	require.NoError(t, store.SaveChunk(ctx, pendingChunk("c2", "noise")))

	classifier := &mockClassifier{verdict: &domain.Annotation{
		Keep: true, Tags: []string{"a", "b"}, Reason: "ok",
	}}
	// Discard verdict for c2's content.
	classifierDiscard := &mockClassifier{verdict: &domain.Annotation{
		Keep: false, Reason: "off-topic",
	}}

	annotate, err := NewAnnotateService(store, classifier, 1, WithAnnotateRetry(fastRetry(1)))
	require.NoError(t, err)
	defer annotate.Release()

	// Annotate only c1 with the keep classifier.
	_, err = annotate.Annotate(ctx, 1)
	require.NoError(t, err)

	annotateDiscard, err := NewAnnotateService(store, classifierDiscard, 1, WithAnnotateRetry(fastRetry(1)))
	require.NoError(t, err)
	defer annotateDiscard.Release()

	_, err = annotateDiscard.Annotate(ctx, 0)
	require.NoError(t, err)

	index := &mockVectorIndex{}
	indexer, err := NewIndexService(store, index, 1, WithIndexRetry(fastRetry(1)))
	require.NoError(t, err)
	defer indexer.Release()

	report, err := indexer.Index(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kept)

	c1, err := store.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIndexed, c1.Status)
	assert.Equal(t, []string{"a", "b"}, c1.Annotation.Tags)

	c2, err := store.GetChunk(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDiscarded, c2.Status)
	// Never reached the vector index.
	require.Len(t, index.added, 1)
	assert.Equal(t, "c1", index.added[0].ID)
}
