package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
	"github.com/atelier-labs/corpora-cli/internal/retry"
)

// --- In-memory chunk store with real claim/transition semantics ---

type memChunkStore struct {
	mu     sync.Mutex
	chunks map[string]*domain.Chunk
	order  []string

	// saveErrAfter fails SaveChunk once n successful saves happened.
	// Negative means never fail.
	saveErrAfter int
	saves        int
}

func newMemChunkStore() *memChunkStore {
	return &memChunkStore{
		chunks:       make(map[string]*domain.Chunk),
		saveErrAfter: -1,
	}
}

func (m *memChunkStore) SaveChunk(_ context.Context, chunk *domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErrAfter >= 0 && m.saves >= m.saveErrAfter {
		return errors.New("disk full")
	}
	m.saves++

	if _, ok := m.chunks[chunk.ID]; !ok {
		m.order = append(m.order, chunk.ID)
	}
	c := *chunk
	m.chunks[chunk.ID] = &c
	return nil
}

func (m *memChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memChunkStore) ListByStatus(_ context.Context, status domain.ChunkStatus, limit int) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Chunk
	for _, id := range m.order {
		if m.chunks[id].Status == status {
			out = append(out, *m.chunks[id])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memChunkStore) ListByFile(_ context.Context, fileID string) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Chunk
	for _, id := range m.order {
		if m.chunks[id].FileID == fileID {
			out = append(out, *m.chunks[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memChunkStore) Claim(
	_ context.Context, id string, expected domain.ChunkStatus, owner string, staleAfter time.Duration,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != expected {
		return domain.ErrConflict
	}
	if c.ClaimedBy != "" && c.ClaimedBy != owner && c.ClaimedAt != nil &&
		time.Since(*c.ClaimedAt) <= staleAfter {
		return domain.ErrConflict
	}
	now := time.Now().UTC()
	c.ClaimedBy = owner
	c.ClaimedAt = &now
	return nil
}

func (m *memChunkStore) Transition(
	_ context.Context, id string, from, to domain.ChunkStatus, update driven.ChunkUpdate,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !from.CanTransition(to) {
		return domain.ErrInvalidTransition
	}
	c, ok := m.chunks[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != from {
		return domain.ErrConflict
	}

	c.Status = to
	c.ClaimedBy = ""
	c.ClaimedAt = nil
	if update.Annotation != nil {
		c.Annotation = update.Annotation
	}
	if update.Attempts != nil {
		c.Attempts = *update.Attempts
	}
	if update.LastError != nil {
		c.LastError = *update.LastError
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memChunkStore) Requeue(_ context.Context, from, to domain.ChunkStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !from.CanTransition(to) {
		return 0, domain.ErrInvalidTransition
	}
	n := 0
	for _, c := range m.chunks {
		if c.Status == from {
			c.Status = to
			c.Attempts = 0
			c.LastError = ""
			c.ClaimedBy = ""
			c.ClaimedAt = nil
			n++
		}
	}
	return n, nil
}

func (m *memChunkStore) CountByStatus(_ context.Context) (map[domain.ChunkStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[domain.ChunkStatus]int, len(domain.ChunkStatuses))
	for _, s := range domain.ChunkStatuses {
		counts[s] = 0
	}
	for _, c := range m.chunks {
		counts[c.Status]++
	}
	return counts, nil
}

// --- In-memory file registry ---

type memFileRegistry struct {
	mu    sync.Mutex
	files map[string]*domain.SourceFile
}

func newMemFileRegistry() *memFileRegistry {
	return &memFileRegistry{files: make(map[string]*domain.SourceFile)}
}

func (m *memFileRegistry) Get(_ context.Context, id string) (*domain.SourceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memFileRegistry) Upsert(_ context.Context, file *domain.SourceFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *file
	if existing, ok := m.files[file.ID]; ok {
		cp.IngestedAt = existing.IngestedAt
	}
	m.files[file.ID] = &cp
	return nil
}

func (m *memFileRegistry) List(_ context.Context, sourceID string) ([]domain.SourceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.SourceFile
	for _, f := range m.files {
		if sourceID == "" || f.SourceID == sourceID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *memFileRegistry) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
	return nil
}

// --- Mock connector and factory ---

type mockConnector struct {
	sourceID string
	files    []domain.RawFile
	syncErr  error
	valErr   error
	closed   bool
}

func (m *mockConnector) Type() string     { return "mock" }
func (m *mockConnector) SourceID() string { return m.sourceID }
func (m *mockConnector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{}
}

func (m *mockConnector) Validate(_ context.Context) error { return m.valErr }

func (m *mockConnector) FullSync(ctx context.Context) (<-chan domain.RawFile, <-chan error) {
	files := make(chan domain.RawFile)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		if m.syncErr != nil {
			errs <- m.syncErr
			return
		}
		for _, f := range m.files {
			select {
			case <-ctx.Done():
				return
			case files <- f:
			}
		}
	}()

	return files, errs
}

func (m *mockConnector) Watch(_ context.Context) (<-chan domain.RawFileChange, error) {
	return nil, errors.New("watch not implemented")
}

func (m *mockConnector) Close() error {
	m.closed = true
	return nil
}

type mockFactory struct {
	connectors map[string]*mockConnector
	createErr  error
}

func newMockFactory() *mockFactory {
	return &mockFactory{connectors: make(map[string]*mockConnector)}
}

func (f *mockFactory) Create(_ context.Context, source domain.Source) (driven.Connector, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	conn, ok := f.connectors[source.ID]
	if !ok {
		return nil, domain.ErrUnsupportedType
	}
	return conn, nil
}

func (f *mockFactory) Register(_ string, _ driven.ConnectorBuilder) {}

func (f *mockFactory) SupportedTypes() []string { return []string{"mock"} }

// --- Mock classifier ---

type mockClassifier struct {
	mu      sync.Mutex
	verdict *domain.Annotation
	err     error
	// failures is how many calls error before succeeding.
	failures int
	// failContent always errors for chunks with this exact content.
	failContent string
	calls       int
}

func (m *mockClassifier) Annotate(_ context.Context, chunk *domain.Chunk) (*domain.Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.failContent != "" && chunk.Content == m.failContent {
		return nil, errors.New("connection reset")
	}
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("connection reset")
	}
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.verdict
	cp.Tags = append([]string(nil), m.verdict.Tags...)
	return &cp, nil
}

func (m *mockClassifier) ModelName() string            { return "mock-model" }
func (m *mockClassifier) Ping(_ context.Context) error { return nil }
func (m *mockClassifier) Close() error                 { return nil }

// --- Mock vector index ---

type mockVectorIndex struct {
	mu    sync.Mutex
	added []domain.Chunk
	err   error
	// failures is how many calls error before succeeding.
	failures int
	calls    int
}

func (m *mockVectorIndex) Add(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("connection reset")
	}
	if m.err != nil {
		return m.err
	}
	m.added = append(m.added, chunks...)
	return nil
}

func (m *mockVectorIndex) Ping(_ context.Context) error { return nil }
func (m *mockVectorIndex) Close() error                 { return nil }

// --- Mock transcriber ---

type mockTranscriber struct {
	text string
	err  error
}

func (m *mockTranscriber) Transcribe(_ context.Context, _ *domain.RawFile) (string, error) {
	return m.text, m.err
}

func (m *mockTranscriber) Ping(_ context.Context) error { return nil }
func (m *mockTranscriber) Close() error                 { return nil }

// fastRetry is a retry policy with negligible delays for tests.
func fastRetry(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}
