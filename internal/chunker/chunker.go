// Package chunker splits file text into token-bounded chunks.
//
// Text is split on paragraph boundaries first, falling back to a
// naive sentence split when a file has no blank lines, and breaking
// individual over-long sentences on words. Each produced chunk stays
// within the token budget as measured by the tiktoken tokenizer,
// with a rune-count approximation when no tokenizer is available.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/logger"
)

// DefaultMaxTokens is the default token budget per chunk.
const DefaultMaxTokens = 800

// DefaultEncoding is the tokenizer encoding for current OpenAI models.
const DefaultEncoding = "cl100k_base"

// fallbackEncoding is tried when the default fails to load.
const fallbackEncoding = "p50k_base"

// Splitter splits text into chunks within a token budget.
type Splitter struct {
	maxTokens int
	encoding  string
	tokenizer *tiktoken.Tiktoken
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxTokens sets the token budget per chunk.
func WithMaxTokens(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithEncoding sets the tiktoken encoding name.
func WithEncoding(name string) Option {
	return func(s *Splitter) {
		if name != "" {
			s.encoding = name
		}
	}
}

// New creates a splitter. Tokenizer loading is best-effort: if
// neither the configured nor the fallback encoding loads, token
// counts degrade to a rune count and chunking still works.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		maxTokens: DefaultMaxTokens,
		encoding:  DefaultEncoding,
	}

	for _, opt := range opts {
		opt(s)
	}

	tk, err := tiktoken.GetEncoding(s.encoding)
	if err != nil {
		logger.Warn("failed to load tokenizer %q, trying %q: %v", s.encoding, fallbackEncoding, err)
		tk, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			logger.Warn("no tokenizer available, falling back to rune counts: %v", err)
			tk = nil
		}
	}
	s.tokenizer = tk

	return s
}

// CountTokens returns the token count for text, or the rune count
// when no tokenizer is available.
func (s *Splitter) CountTokens(text string) int {
	if s.tokenizer == nil {
		return utf8.RuneCountInString(text)
	}
	return len(s.tokenizer.Encode(text, nil, nil))
}

// Split splits text into chunks for the given parent file.
// Empty or whitespace-only text produces no chunks. Every returned
// chunk starts in StatusPendingAnnotation.
func (s *Splitter) Split(fileID, sourceID, uri, text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var pieces []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		pieces = append(pieces, strings.Join(current, "\n\n"))
		current = nil
		currentTokens = 0
	}

	for _, unit := range splitUnits(text) {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}

		unitTokens := s.CountTokens(unit)

		// A single unit over budget is broken on words.
		if unitTokens > s.maxTokens {
			flush()
			pieces = append(pieces, s.splitWords(unit)...)
			continue
		}

		if currentTokens+unitTokens > s.maxTokens {
			flush()
		}
		current = append(current, unit)
		currentTokens += unitTokens
	}
	flush()

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, content := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			FileID:     fileID,
			SourceID:   sourceID,
			URI:        uri,
			Position:   i,
			Content:    content,
			TokenCount: s.CountTokens(content),
			Status:     domain.StatusPendingAnnotation,
		})
	}
	return chunks
}

// splitUnits splits text into paragraphs, or sentences when the
// text has no paragraph breaks.
func splitUnits(text string) []string {
	units := strings.Split(text, "\n\n")
	if len(units) > 1 {
		return units
	}

	// No paragraphs: approximate sentence boundaries.
	r := strings.NewReplacer(". ", ".\n", "! ", "!\n", "? ", "?\n")
	return strings.Split(r.Replace(text), "\n")
}

// splitWords breaks an over-long unit into word-joined pieces that
// each fit the budget.
func (s *Splitter) splitWords(unit string) []string {
	var pieces []string
	var words []string
	count := 0

	for _, word := range strings.Fields(unit) {
		wordTokens := s.CountTokens(word + " ")
		if count+wordTokens > s.maxTokens && len(words) > 0 {
			pieces = append(pieces, strings.Join(words, " "))
			words = nil
			count = 0
		}
		words = append(words, word)
		count += wordTokens
	}
	if len(words) > 0 {
		pieces = append(pieces, strings.Join(words, " "))
	}
	return pieces
}
