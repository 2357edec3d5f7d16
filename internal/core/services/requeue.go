package services

import (
	"context"
	"fmt"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driving"
	"github.com/atelier-labs/corpora-cli/internal/logger"
)

// Ensure RequeueService implements the interface.
var _ driving.Requeuer = (*RequeueService)(nil)

// RequeueService returns failed chunks to their pending states so the
// stages pick them up again with a fresh retry budget. This is the
// operator re-trigger path; nothing moves a failed chunk automatically.
type RequeueService struct {
	chunks driven.ChunkStore
}

// NewRequeueService creates a new requeue sweep.
func NewRequeueService(chunks driven.ChunkStore) *RequeueService {
	return &RequeueService{chunks: chunks}
}

// Requeue sweeps both failed states.
func (s *RequeueService) Requeue(ctx context.Context) (*driving.RequeueReport, error) {
	report := &driving.RequeueReport{}

	n, err := s.chunks.Requeue(ctx, domain.StatusAnnotationFailed, domain.StatusPendingAnnotation)
	if err != nil {
		return report, fmt.Errorf("requeue annotation failures: %w", err)
	}
	report.AnnotationRequeued = n

	n, err = s.chunks.Requeue(ctx, domain.StatusIndexingFailed, domain.StatusPendingIndexing)
	if err != nil {
		return report, fmt.Errorf("requeue indexing failures: %w", err)
	}
	report.IndexingRequeued = n

	logger.Info("Requeued %d annotation failures, %d indexing failures",
		report.AnnotationRequeued, report.IndexingRequeued)
	return report, nil
}
