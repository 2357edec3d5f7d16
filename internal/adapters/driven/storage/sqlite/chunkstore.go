package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// chunkColumns is the column list every chunk query selects.
const chunkColumns = `id, file_id, source_id, uri, position, content, token_count,
	status, annotation, attempts, last_error, claimed_by, claimed_at, created_at, updated_at`

// SaveChunk stores or updates a chunk. Ingestion writes one chunk
// at a time; the file registry row is the commit point, so a crash
// mid-file just leaves the file eligible for the next run.
func (s *chunkStore) SaveChunk(ctx context.Context, chunk *domain.Chunk) error {
	if chunk.ID == "" {
		return domain.ErrInvalidInput
	}
	if !chunk.Status.Valid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, chunk.Status)
	}

	annotationJSON, err := marshalAnnotation(chunk.Annotation)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = now
	}
	chunk.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO chunks (id, file_id, source_id, uri, position, content, token_count,
			status, annotation, attempts, last_error, claimed_by, claimed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_id = excluded.file_id,
			source_id = excluded.source_id,
			uri = excluded.uri,
			position = excluded.position,
			content = excluded.content,
			token_count = excluded.token_count,
			status = excluded.status,
			annotation = excluded.annotation,
			attempts = excluded.attempts,
			last_error = excluded.last_error,
			claimed_by = excluded.claimed_by,
			claimed_at = excluded.claimed_at,
			updated_at = excluded.updated_at
	`, chunk.ID, chunk.FileID, chunk.SourceID, chunk.URI, chunk.Position, chunk.Content,
		chunk.TokenCount, string(chunk.Status), annotationJSON, chunk.Attempts, chunk.LastError,
		chunk.ClaimedBy, chunk.ClaimedAt, chunk.CreatedAt, chunk.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)

	return scanChunkRow(row)
}

// ListByStatus returns up to limit chunks in the given status, oldest first.
func (s *chunkStore) ListByStatus(ctx context.Context, status domain.ChunkStatus, limit int) ([]domain.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE status = ? ORDER BY updated_at, id`
	args := []any{string(status)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by status: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// ListByFile returns all chunks for a file, ordered by position.
func (s *chunkStore) ListByFile(ctx context.Context, fileID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE file_id = ? ORDER BY position`, fileID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by file: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// Claim marks a chunk as being processed by owner. The UPDATE only
// applies when the status matches and no live claim exists, so two
// workers racing for the same chunk cannot both win.
func (s *chunkStore) Claim(ctx context.Context, id string, expected domain.ChunkStatus, owner string, staleAfter time.Duration) error {
	now := time.Now().UTC()
	cutoff := now.Add(-staleAfter)

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE chunks
		SET claimed_by = ?, claimed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
		  AND (claimed_by = '' OR claimed_at IS NULL OR claimed_at <= ?)
	`, owner, now, now, id, string(expected), cutoff)
	if err != nil {
		return fmt.Errorf("claiming chunk: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking claim result: %w", err)
	}
	if affected == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return nil
}

// Transition moves a chunk between statuses with a conditional
// UPDATE. A zero row count means another worker changed the chunk
// first and the caller's view is stale.
func (s *chunkStore) Transition(ctx context.Context, id string, from, to domain.ChunkStatus, update driven.ChunkUpdate) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	query := `UPDATE chunks SET status = ?, claimed_by = '', claimed_at = NULL, updated_at = ?`
	args := []any{string(to), time.Now().UTC()}

	if update.Annotation != nil {
		annotationJSON, err := marshalAnnotation(update.Annotation)
		if err != nil {
			return err
		}
		query += ", annotation = ?"
		args = append(args, annotationJSON)
	}
	if update.Attempts != nil {
		query += ", attempts = ?"
		args = append(args, *update.Attempts)
	}
	if update.LastError != nil {
		query += ", last_error = ?"
		args = append(args, *update.LastError)
	}

	query += " WHERE id = ? AND status = ?"
	args = append(args, id, string(from))

	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transitioning chunk: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking transition result: %w", err)
	}
	if affected == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return nil
}

// Requeue moves every chunk in status from back to status to,
// resetting claims, attempts and errors.
func (s *chunkStore) Requeue(ctx context.Context, from, to domain.ChunkStatus) (int, error) {
	if !from.CanTransition(to) {
		return 0, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE chunks
		SET status = ?, attempts = 0, last_error = '', claimed_by = '', claimed_at = NULL, updated_at = ?
		WHERE status = ?
	`, string(to), time.Now().UTC(), string(from))
	if err != nil {
		return 0, fmt.Errorf("requeueing chunks: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking requeue result: %w", err)
	}
	return int(affected), nil
}

// CountByStatus returns chunk counts per status. Statuses with no
// chunks are present with a zero count.
func (s *chunkStore) CountByStatus(ctx context.Context) (map[domain.ChunkStatus]int, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM chunks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ChunkStatus]int, len(domain.ChunkStatuses))
	for _, status := range domain.ChunkStatuses {
		counts[status] = 0
	}

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[domain.ChunkStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}

	return counts, nil
}

// conflictOrNotFound distinguishes "row gone" from "row changed
// under us" after a conditional update matched nothing.
func (s *chunkStore) conflictOrNotFound(ctx context.Context, id string) error {
	var exists int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking chunk existence: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

// ==================== Helper Functions ====================

// marshalAnnotation serialises an annotation for storage.
// A nil annotation is stored as SQL NULL.
func marshalAnnotation(a *domain.Annotation) (any, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshalling annotation: %w", err)
	}
	return string(data), nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunkInto(scanner rowScanner, chunk *domain.Chunk) error {
	var status string
	var annotationJSON sql.NullString
	var claimedAt sql.NullTime

	if err := scanner.Scan(&chunk.ID, &chunk.FileID, &chunk.SourceID, &chunk.URI,
		&chunk.Position, &chunk.Content, &chunk.TokenCount, &status, &annotationJSON,
		&chunk.Attempts, &chunk.LastError, &chunk.ClaimedBy, &claimedAt,
		&chunk.CreatedAt, &chunk.UpdatedAt); err != nil {
		return err
	}

	chunk.Status = domain.ChunkStatus(status)
	if claimedAt.Valid {
		t := claimedAt.Time
		chunk.ClaimedAt = &t
	}

	if annotationJSON.Valid && annotationJSON.String != jsonNull {
		var annotation domain.Annotation
		if err := json.Unmarshal([]byte(annotationJSON.String), &annotation); err != nil {
			return fmt.Errorf("unmarshalling annotation: %w", err)
		}
		chunk.Annotation = &annotation
	}

	return nil
}

// scanChunkRow scans a chunk from *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	var chunk domain.Chunk
	if err := scanChunkInto(row, &chunk); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return &chunk, nil
}

// scanChunks scans multiple chunk rows.
func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		if err := scanChunkInto(rows, &chunk); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}
