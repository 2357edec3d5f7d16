package driven

import (
	"context"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

// Classifier decides whether a chunk is worth indexing.
// Backed by an LLM returning a structured keep/discard verdict.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Any OpenAI-compatible inference server (Ollama, LM Studio)
type Classifier interface {
	// Annotate returns the verdict for a chunk.
	// Returns domain.ErrMalformedResponse when the model output
	// cannot be parsed; callers fail the chunk immediately instead
	// of burning the retry budget on a bad prompt/model pairing.
	Annotate(ctx context.Context, chunk *domain.Chunk) (*domain.Annotation, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup before committing to a run.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
