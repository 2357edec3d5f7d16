package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelier-labs/corpora-cli/internal/core/ports/driving"
)

// mockIngestor implements driving.Ingestor for testing.
type mockIngestor struct {
	lastSourceID string
	allCalled    bool
}

func (m *mockIngestor) Ingest(_ context.Context, sourceID string) (*driving.IngestReport, error) {
	m.lastSourceID = sourceID
	return &driving.IngestReport{FilesSeen: 3, FilesIngested: 2, FilesSkipped: 1, ChunksWritten: 7}, nil
}

func (m *mockIngestor) IngestAll(_ context.Context) (*driving.IngestReport, error) {
	m.allCalled = true
	return &driving.IngestReport{FilesSeen: 5, FilesIngested: 5, ChunksWritten: 12}, nil
}

// mockIngestorError always fails, returning the partial report.
type mockIngestorError struct{}

func (m *mockIngestorError) Ingest(_ context.Context, _ string) (*driving.IngestReport, error) {
	return &driving.IngestReport{FilesSeen: 1, FilesFailed: 1}, errors.New("connector exploded")
}

func (m *mockIngestorError) IngestAll(_ context.Context) (*driving.IngestReport, error) {
	return &driving.IngestReport{FilesSeen: 1, FilesFailed: 1}, errors.New("connector exploded")
}

func setupIngestTest(mock driving.Ingestor) func() {
	old := ingestor
	ingestor = mock
	return func() {
		ingestor = old
	}
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [source-id]", ingestCmd.Use)
}

func TestIngestCmd_Short(t *testing.T) {
	assert.Equal(t, "Pull files from sources and store pending chunks", ingestCmd.Short)
}

func TestIngestCmd_ExecutesWithoutArgs(t *testing.T) {
	mock := &mockIngestor{}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.True(t, mock.allCalled)
	assert.Contains(t, buf.String(), "Ingesting all sources...")
	assert.Contains(t, buf.String(), "Chunks written: 12")
}

func TestIngestCmd_ExecutesWithSourceID(t *testing.T) {
	mock := &mockIngestor{}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "notes"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Equal(t, "notes", mock.lastSourceID)
	assert.Contains(t, buf.String(), "Ingesting source notes...")
	assert.Contains(t, buf.String(), "3 seen, 2 ingested, 1 skipped, 0 failed")
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupIngestTest(nil)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}

func TestIngestCmd_ServiceError(t *testing.T) {
	cleanup := setupIngestTest(&mockIngestorError{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion failed")
	// The partial report still prints so the operator sees progress.
	assert.Contains(t, buf.String(), "1 seen, 0 ingested, 0 skipped, 1 failed")
}
