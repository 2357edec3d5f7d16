package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
)

// fileRegistry implements driven.FileRegistry.
type fileRegistry struct {
	store *Store
}

var _ driven.FileRegistry = (*fileRegistry)(nil)

// Upsert writes or replaces a registry row.
func (r *fileRegistry) Upsert(ctx context.Context, file *domain.SourceFile) error {
	if file.ID == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	if file.IngestedAt.IsZero() {
		file.IngestedAt = now
	}
	file.UpdatedAt = now

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO files (id, source_id, uri, name, fingerprint, chunk_count, size_bytes, ingested_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			uri = excluded.uri,
			name = excluded.name,
			fingerprint = excluded.fingerprint,
			chunk_count = excluded.chunk_count,
			size_bytes = excluded.size_bytes,
			updated_at = excluded.updated_at
	`, file.ID, file.SourceID, file.URI, file.Name, file.Fingerprint,
		file.ChunkCount, file.SizeBytes, file.IngestedAt, file.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}

// Get retrieves a registry row by file ID.
func (r *fileRegistry) Get(ctx context.Context, id string) (*domain.SourceFile, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, source_id, uri, name, fingerprint, chunk_count, size_bytes, ingested_at, updated_at
		FROM files WHERE id = ?
	`, id)

	var file domain.SourceFile
	if err := row.Scan(&file.ID, &file.SourceID, &file.URI, &file.Name, &file.Fingerprint,
		&file.ChunkCount, &file.SizeBytes, &file.IngestedAt, &file.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning file: %w", err)
	}

	return &file, nil
}

// List returns registry rows for a source, or all rows when
// sourceID is empty.
func (r *fileRegistry) List(ctx context.Context, sourceID string) ([]domain.SourceFile, error) {
	query := `
		SELECT id, source_id, uri, name, fingerprint, chunk_count, size_bytes, ingested_at, updated_at
		FROM files`
	var args []any
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY uri"

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []domain.SourceFile //nolint:prealloc // size unknown from query
	for rows.Next() {
		var file domain.SourceFile
		if err := rows.Scan(&file.ID, &file.SourceID, &file.URI, &file.Name, &file.Fingerprint,
			&file.ChunkCount, &file.SizeBytes, &file.IngestedAt, &file.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}

	return files, nil
}

// Delete removes a registry row.
func (r *fileRegistry) Delete(ctx context.Context, id string) error {
	_, err := r.store.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
