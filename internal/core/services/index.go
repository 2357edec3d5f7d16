package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driving"
	"github.com/atelier-labs/corpora-cli/internal/logger"
	"github.com/atelier-labs/corpora-cli/internal/retry"
)

// Ensure IndexService implements the interface.
var _ driving.Indexer = (*IndexService)(nil)

// IndexService drains pending_indexing chunks into the vector index.
// Uploads are keyed by chunk ID, so a chunk re-submitted after a crash
// overwrites its earlier copy instead of duplicating it.
type IndexService struct {
	chunks     driven.ChunkStore
	index      driven.VectorIndex
	pool       *ants.Pool
	owner      string
	log        logger.Stage
	retryCfg   retry.Config
	staleAfter time.Duration
	batchSize  int
}

// IndexOption configures an IndexService.
type IndexOption func(*IndexService)

// WithIndexRetry overrides the vector index retry policy.
func WithIndexRetry(cfg retry.Config) IndexOption {
	return func(s *IndexService) { s.retryCfg = cfg }
}

// WithIndexStaleClaim overrides the stale-claim takeover window.
func WithIndexStaleClaim(d time.Duration) IndexOption {
	return func(s *IndexService) { s.staleAfter = d }
}

// NewIndexService creates the indexing stage with the given worker
// parallelism. workers < 1 defaults to half the CPUs.
func NewIndexService(
	chunks driven.ChunkStore,
	index driven.VectorIndex,
	workers int,
	opts ...IndexOption,
) (*IndexService, error) {
	pool, err := newWorkerPool(workers)
	if err != nil {
		return nil, err
	}

	s := &IndexService{
		chunks:     chunks,
		index:      index,
		pool:       pool,
		owner:      workerIdentity("index"),
		log:        logger.ForStage("index"),
		retryCfg:   retry.DefaultConfig(),
		staleAfter: DefaultStaleClaim,
		batchSize:  defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Index processes up to limit pending chunks. limit <= 0 drains
// everything currently pending.
func (s *IndexService) Index(ctx context.Context, limit int) (*driving.StageReport, error) {
	s.log.Begin()
	report := &driving.StageReport{}
	var mu sync.Mutex

	for {
		batch := s.batchSize
		if limit > 0 {
			remaining := limit - report.Processed - report.Skipped
			if remaining <= 0 {
				break
			}
			if remaining < batch {
				batch = remaining
			}
		}

		chunks, err := s.chunks.ListByStatus(ctx, domain.StatusPendingIndexing, batch)
		if err != nil {
			return report, fmt.Errorf("list pending chunks: %w", err)
		}
		if len(chunks) == 0 {
			break
		}

		var wg sync.WaitGroup
		progressed := false
		for i := range chunks {
			chunk := chunks[i]
			wg.Add(1)
			submitErr := s.pool.Submit(func() {
				defer wg.Done()
				outcome := s.indexOne(ctx, &chunk)

				mu.Lock()
				defer mu.Unlock()
				switch outcome {
				case stageSkipped:
					report.Skipped++
				default:
					progressed = true
					report.Processed++
					if outcome == stageAdvanced {
						report.Kept++
					} else {
						report.Failed++
					}
				}
			})
			if submitErr != nil {
				wg.Done()
				s.log.Warn("submit worker: %v", submitErr)
			}
		}
		wg.Wait()

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if !progressed {
			break
		}
	}

	s.log.Info("pass done: %d processed (%d indexed, %d failed), %d skipped",
		report.Processed, report.Kept, report.Failed, report.Skipped)
	return report, nil
}

// indexOne claims a chunk, uploads it and records the outcome.
func (s *IndexService) indexOne(ctx context.Context, chunk *domain.Chunk) stageOutcome {
	err := s.chunks.Claim(ctx, chunk.ID, domain.StatusPendingIndexing, s.owner, s.staleAfter)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return stageSkipped
		}
		s.log.Warn("claim %s: %v", chunk.ID, err)
		return stageSkipped
	}

	attempts := 0
	err = retry.Do(ctx, "index chunk", s.retryCfg, func(ctx context.Context) error {
		attempts++
		return s.index.Add(ctx, []domain.Chunk{*chunk})
	})
	if err != nil {
		s.log.Debug("%s failed after %d attempts: %v", chunk.ID, attempts, err)

		errText := err.Error()
		terr := s.chunks.Transition(ctx, chunk.ID,
			domain.StatusPendingIndexing, domain.StatusIndexingFailed,
			driven.ChunkUpdate{Attempts: &attempts, LastError: &errText})
		if terr != nil && !errors.Is(terr, domain.ErrConflict) {
			s.log.Warn("record failure for %s: %v", chunk.ID, terr)
		}
		return stageFailed
	}

	err = s.chunks.Transition(ctx, chunk.ID,
		domain.StatusPendingIndexing, domain.StatusIndexed,
		driven.ChunkUpdate{Attempts: &attempts})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return stageSkipped
		}
		s.log.Warn("transition %s: %v", chunk.ID, err)
		return stageSkipped
	}

	return stageAdvanced
}

// Release frees the worker pool. The service must not be used after.
func (s *IndexService) Release() {
	s.pool.Release()
}
