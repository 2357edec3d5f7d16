package services

import (
	"context"
	"fmt"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driving"
)

// Ensure StatusService implements the interface.
var _ driving.StatusReporter = (*StatusService)(nil)

// StatusService summarises pipeline state for operators.
type StatusService struct {
	chunks   driven.ChunkStore
	registry driven.FileRegistry
}

// NewStatusService creates a new status reporter.
func NewStatusService(chunks driven.ChunkStore, registry driven.FileRegistry) *StatusService {
	return &StatusService{chunks: chunks, registry: registry}
}

// Status returns chunk counts per status and registry totals.
func (s *StatusService) Status(ctx context.Context) (*driving.StatusReport, error) {
	counts, err := s.chunks.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	files, err := s.registry.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}

	return &driving.StatusReport{
		Chunks:        counts,
		FilesIngested: len(files),
	}, nil
}

// PendingWork reports whether any chunk still needs a stage run.
func (s *StatusService) PendingWork(ctx context.Context) (bool, error) {
	counts, err := s.chunks.CountByStatus(ctx)
	if err != nil {
		return false, err
	}
	return counts[domain.StatusPendingAnnotation] > 0 || counts[domain.StatusPendingIndexing] > 0, nil
}
