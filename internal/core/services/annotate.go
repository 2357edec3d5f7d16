package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driving"
	"github.com/atelier-labs/corpora-cli/internal/logger"
	"github.com/atelier-labs/corpora-cli/internal/retry"
)

// DefaultStaleClaim is how long a claim may sit before another worker
// takes the chunk over. Generous enough to outlast a full retry budget.
const DefaultStaleClaim = 10 * time.Minute

// defaultBatchSize is how many chunks a stage lists per polling round.
const defaultBatchSize = 50

// Ensure AnnotateService implements the interface.
var _ driving.Annotator = (*AnnotateService)(nil)

// AnnotateService drains pending_annotation chunks through the
// classifier. Each chunk is claimed before work starts, so parallel
// workers (or parallel invocations) never double-process.
type AnnotateService struct {
	chunks     driven.ChunkStore
	classifier driven.Classifier
	pool       *ants.Pool
	owner      string
	log        logger.Stage
	retryCfg   retry.Config
	staleAfter time.Duration
	batchSize  int
}

// AnnotateOption configures an AnnotateService.
type AnnotateOption func(*AnnotateService)

// WithAnnotateRetry overrides the classifier retry policy.
func WithAnnotateRetry(cfg retry.Config) AnnotateOption {
	return func(s *AnnotateService) { s.retryCfg = cfg }
}

// WithAnnotateStaleClaim overrides the stale-claim takeover window.
func WithAnnotateStaleClaim(d time.Duration) AnnotateOption {
	return func(s *AnnotateService) { s.staleAfter = d }
}

// NewAnnotateService creates the annotation stage with the given
// worker parallelism. workers < 1 defaults to half the CPUs.
func NewAnnotateService(
	chunks driven.ChunkStore,
	classifier driven.Classifier,
	workers int,
	opts ...AnnotateOption,
) (*AnnotateService, error) {
	pool, err := newWorkerPool(workers)
	if err != nil {
		return nil, err
	}

	s := &AnnotateService{
		chunks:     chunks,
		classifier: classifier,
		pool:       pool,
		owner:      workerIdentity("annotate"),
		log:        logger.ForStage("annotate"),
		retryCfg:   retry.DefaultConfig(),
		staleAfter: DefaultStaleClaim,
		batchSize:  defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Annotate processes up to limit pending chunks. limit <= 0 drains
// everything currently pending.
func (s *AnnotateService) Annotate(ctx context.Context, limit int) (*driving.StageReport, error) {
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

		chunks, err := s.chunks.ListByStatus(ctx, domain.StatusPendingAnnotation, batch)
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
				outcome := s.annotateOne(ctx, &chunk)

				mu.Lock()
				defer mu.Unlock()
				switch outcome {
				case stageSkipped:
					report.Skipped++
				default:
					progressed = true
					report.Processed++
					switch outcome {
					case stageAdvanced:
						report.Kept++
					case stageDiscarded:
						report.Discarded++
					case stageFailed:
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
		// A round where every chunk was lost to another worker's claim
		// would loop forever on the same listing.
		if !progressed {
			break
		}
	}

	s.log.Info("pass done: %d processed (%d kept, %d discarded, %d failed), %d skipped",
		report.Processed, report.Kept, report.Discarded, report.Failed, report.Skipped)
	return report, nil
}

// stageOutcome is the per-chunk result inside a stage pass.
type stageOutcome int

const (
	stageSkipped stageOutcome = iota
	stageAdvanced
	stageDiscarded
	stageFailed
)

// annotateOne claims a chunk, classifies it and records the verdict.
// Failures are recorded on the chunk row and never abort the pass.
func (s *AnnotateService) annotateOne(ctx context.Context, chunk *domain.Chunk) stageOutcome {
	err := s.chunks.Claim(ctx, chunk.ID, domain.StatusPendingAnnotation, s.owner, s.staleAfter)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return stageSkipped
		}
		s.log.Warn("claim %s: %v", chunk.ID, err)
		return stageSkipped
	}

	var annotation *domain.Annotation
	attempts := 0
	err = retry.Do(ctx, "classify chunk", s.retryCfg, func(ctx context.Context) error {
		attempts++
		var callErr error
		annotation, callErr = s.classifier.Annotate(ctx, chunk)
		if errors.Is(callErr, domain.ErrMalformedResponse) {
			// A malformed verdict is a contract violation, not a
			// network hiccup.
			return retry.Permanent(callErr)
		}
		return callErr
	})
	if err != nil {
		return s.recordAnnotationFailure(ctx, chunk, attempts, err)
	}

	annotation.Normalize()

	to := domain.StatusDiscarded
	if annotation.Keep {
		to = domain.StatusPendingIndexing
	}
	err = s.chunks.Transition(ctx, chunk.ID, domain.StatusPendingAnnotation, to, driven.ChunkUpdate{
		Annotation: annotation,
		Attempts:   &attempts,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return stageSkipped
		}
		s.log.Warn("transition %s: %v", chunk.ID, err)
		return stageSkipped
	}

	if annotation.Keep {
		return stageAdvanced
	}
	return stageDiscarded
}

// recordAnnotationFailure moves the chunk to annotation_failed with
// the error text. The annotation stays nil.
func (s *AnnotateService) recordAnnotationFailure(
	ctx context.Context, chunk *domain.Chunk, attempts int, cause error,
) stageOutcome {
	s.log.Debug("%s failed after %d attempts: %v", chunk.ID, attempts, cause)

	errText := cause.Error()
	err := s.chunks.Transition(ctx, chunk.ID,
		domain.StatusPendingAnnotation, domain.StatusAnnotationFailed,
		driven.ChunkUpdate{Attempts: &attempts, LastError: &errText})
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		s.log.Warn("record failure for %s: %v", chunk.ID, err)
	}
	return stageFailed
}

// Release frees the worker pool. The service must not be used after.
func (s *AnnotateService) Release() {
	s.pool.Release()
}

// newWorkerPool creates an ants pool sized for network-bound work.
func newWorkerPool(workers int) (*ants.Pool, error) {
	if workers < 1 {
		workers = runtime.NumCPU() / 2
		if workers < 1 {
			workers = 1
		}
	}
	return ants.NewPool(workers)
}

// workerIdentity builds a claim owner ID unique to this process.
func workerIdentity(stage string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s-%d", stage, host, os.Getpid())
}
