package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

func textFile(sourceID, uri, content string) domain.RawFile {
	return domain.RawFile{
		SourceID: sourceID,
		URI:      uri,
		Name:     uri,
		MIMEType: "text/plain",
		Content:  []byte(content),
	}
}

func newIngestFixture(files ...domain.RawFile) (*IngestService, *memChunkStore, *memFileRegistry, *mockConnector) {
	store := newMemChunkStore()
	registry := newMemFileRegistry()
	conn := &mockConnector{sourceID: "src-1", files: files}
	factory := newMockFactory()
	factory.connectors["src-1"] = conn

	sources := []domain.Source{{ID: "src-1", Type: "mock", Name: "Test"}}
	svc := NewIngestService(sources, factory, store, registry, WithIngestRetry(fastRetry(2)))
	return svc, store, registry, conn
}

// TestIngestService_Ingest tests the basic chunk-then-register flow.
func TestIngestService_Ingest(t *testing.T) {
	svc, store, registry, conn := newIngestFixture(
		textFile("src-1", "/docs/a.txt", "hello world"),
		textFile("src-1", "/docs/b.txt", "second file"),
	)

	report, err := svc.Ingest(context.Background(), "src-1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesSeen)
	assert.Equal(t, 2, report.FilesIngested)
	assert.Equal(t, 0, report.FilesSkipped)
	assert.Equal(t, 0, report.FilesFailed)
	assert.Equal(t, 2, report.ChunksWritten)
	assert.True(t, conn.closed)

	chunks, err := store.ListByStatus(context.Background(), domain.StatusPendingAnnotation, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	files, err := registry.List(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

// TestIngestService_IdempotentReingestion tests that a second run with
// unchanged content writes no new chunks.
func TestIngestService_IdempotentReingestion(t *testing.T) {
	svc, store, _, _ := newIngestFixture(
		textFile("src-1", "/docs/a.txt", "hello world"),
	)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.FilesIngested)

	second, err := svc.Ingest(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, 1, second.FilesSeen)
	assert.Equal(t, 1, second.FilesSkipped)
	assert.Equal(t, 0, second.FilesIngested)
	assert.Equal(t, 0, second.ChunksWritten)

	chunks, err := store.ListByStatus(ctx, domain.StatusPendingAnnotation, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

// TestIngestService_FingerprintChange tests that changed content makes
// the file eligible again.
func TestIngestService_FingerprintChange(t *testing.T) {
	svc, store, registry, conn := newIngestFixture(
		textFile("src-1", "/docs/a.txt", "version one"),
	)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "src-1")
	require.NoError(t, err)

	before, err := registry.Get(ctx, "/docs/a.txt")
	require.NoError(t, err)

	conn.files = []domain.RawFile{textFile("src-1", "/docs/a.txt", "version two")}

	report, err := svc.Ingest(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesIngested)

	after, err := registry.Get(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.NotEqual(t, before.Fingerprint, after.Fingerprint)

	chunks, err := store.ListByStatus(ctx, domain.StatusPendingAnnotation, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

// TestIngestService_NoOrphanedRegistryRows tests that a chunk write
// failure partway through a file leaves the registry untouched.
func TestIngestService_NoOrphanedRegistryRows(t *testing.T) {
	content := "first paragraph\n\nsecond paragraph\n\nthird paragraph"
	svc, store, registry, _ := newIngestFixture(
		textFile("src-1", "/docs/big.txt", content),
	)
	ctx := context.Background()

	// Tight splitter so the file produces several chunks, then fail
	// the second write.
	probe := svc.splitter.Split("f", "s", "u", content)
	require.Greater(t, len(probe), 0)

	store.saveErrAfter = 0

	report, err := svc.Ingest(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesFailed)
	assert.Equal(t, 0, report.FilesIngested)

	_, err = registry.Get(ctx, "/docs/big.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Next run sees the file as still eligible.
	store.saveErrAfter = -1
	report, err = svc.Ingest(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesIngested)

	_, err = registry.Get(ctx, "/docs/big.txt")
	assert.NoError(t, err)
}

// TestIngestService_MediaRouting tests transcriber routing for media
// files.
func TestIngestService_MediaRouting(t *testing.T) {
	media := domain.RawFile{
		SourceID: "src-1",
		URI:      "/media/talk.mp3",
		Name:     "talk.mp3",
		MIMEType: "audio/mpeg",
		Content:  []byte{0x49, 0x44, 0x33},
	}

	t.Run("without transcriber media is skipped", func(t *testing.T) {
		svc, store, _, _ := newIngestFixture(media)

		report, err := svc.Ingest(context.Background(), "src-1")
		require.NoError(t, err)
		assert.Equal(t, 1, report.FilesSkipped)

		chunks, err := store.ListByStatus(context.Background(), domain.StatusPendingAnnotation, 0)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("with transcriber media is chunked", func(t *testing.T) {
		svc, store, _, _ := newIngestFixture(media)
		svc.transcriber = &mockTranscriber{text: "transcribed words"}

		report, err := svc.Ingest(context.Background(), "src-1")
		require.NoError(t, err)
		assert.Equal(t, 1, report.FilesIngested)

		chunks, err := store.ListByStatus(context.Background(), domain.StatusPendingAnnotation, 0)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "transcribed words", chunks[0].Content)
	})
}

// TestIngestService_UnknownSource tests the not-found error path.
func TestIngestService_UnknownSource(t *testing.T) {
	svc, _, _, _ := newIngestFixture()

	_, err := svc.Ingest(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestIngestService_ValidateFailure tests that a failing connector
// validation aborts before any file is read.
func TestIngestService_ValidateFailure(t *testing.T) {
	svc, store, _, conn := newIngestFixture(
		textFile("src-1", "/docs/a.txt", "hello"),
	)
	conn.valErr = assert.AnError

	_, err := svc.Ingest(context.Background(), "src-1")
	assert.Error(t, err)

	chunks, err := store.ListByStatus(context.Background(), domain.StatusPendingAnnotation, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

// TestIngestService_IngestAll tests aggregation across sources.
func TestIngestService_IngestAll(t *testing.T) {
	store := newMemChunkStore()
	registry := newMemFileRegistry()
	factory := newMockFactory()
	factory.connectors["src-1"] = &mockConnector{
		sourceID: "src-1",
		files:    []domain.RawFile{textFile("src-1", "/a.txt", "alpha")},
	}
	factory.connectors["src-2"] = &mockConnector{
		sourceID: "src-2",
		files:    []domain.RawFile{textFile("src-2", "/b.txt", "beta")},
	}

	sources := []domain.Source{
		{ID: "src-1", Type: "mock"},
		{ID: "src-2", Type: "mock"},
	}
	svc := NewIngestService(sources, factory, store, registry, WithIngestRetry(fastRetry(2)))

	report, err := svc.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.FilesSeen)
	assert.Equal(t, 2, report.FilesIngested)
}

// TestFingerprint tests that the content hash is deterministic and
// content-sensitive.
func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint([]byte("abc")), Fingerprint([]byte("abc")))
	assert.NotEqual(t, Fingerprint([]byte("abc")), Fingerprint([]byte("abd")))
	assert.Len(t, Fingerprint(nil), 64)
}
