package whisper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/retry"
)

func mediaFile() *domain.RawFile {
	return &domain.RawFile{
		SourceID: "src-1",
		URI:      "file:///talks/keynote.mp3",
		Name:     "keynote.mp3",
		MIMEType: "audio/mpeg",
		Content:  []byte("fake audio bytes"),
	}
}

// TestNew_RequiresAPIKey tests config validation
func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

// TestTranscribe tests the multipart upload and response parsing
func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, DefaultModel, r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "keynote.mp3", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "hello from the keynote"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	tr, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	text, err := tr.Transcribe(context.Background(), mediaFile())
	require.NoError(t, err)
	assert.Equal(t, "hello from the keynote", text)
}

// TestTranscribe_EmptyFile tests input validation
func TestTranscribe_EmptyFile(t *testing.T) {
	tr, err := New(Config{APIKey: "test-key"})
	require.NoError(t, err)

	file := mediaFile()
	file.Content = nil
	_, err = tr.Transcribe(context.Background(), file)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestTranscribe_APIError tests error payload handling
func TestTranscribe_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "unsupported format"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	tr, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = tr.Transcribe(context.Background(), mediaFile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

// TestTranscribe_ClientErrorNotRetried tests that rejected uploads
// fail on the first attempt rather than resending the payload
func TestTranscribe_ClientErrorNotRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "unsupported format"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	tr, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	cfg := retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	err = retry.Do(context.Background(), "transcribe file", cfg, func(ctx context.Context) error {
		_, err := tr.Transcribe(ctx, mediaFile())
		return err
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.Equal(t, 1, requests)
}

// TestTranscribe_RateLimited tests 429 mapping
func TestTranscribe_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = tr.Transcribe(context.Background(), mediaFile())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}
