package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/storage"
)

// DefaultTopK is the number of chunks placed in the prompt.
const DefaultTopK = 5

// Answer is the engine's reply to one question.
type Answer struct {
	Answer   string
	Sources  []string
	Model    string
	Degraded bool
	Hint     DocType
	Hits     []core.ScoredChunk
}

// Engine answers questions from one tenant's chunks at a time.
type Engine struct {
	store  storage.VectorStore
	chain  Invoker
	topK   int
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithTopK sets the retrieval depth.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(e *Engine) error {
		if k <= 0 {
			return ErrInvalidTopK
		}
		e.topK = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates an engine over an unscoped store. Every Ask narrows the
// store to the asking owner.
func NewEngine(store storage.VectorStore, chain Invoker, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if chain == nil {
		return nil, ErrChainRequired
	}

	e := &Engine{
		store:  store,
		chain:  chain,
		topK:   DefaultTopK,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "retrieval-engine")
	return e, nil
}

// Ask retrieves the owner's most relevant chunks and asks the chain to answer
// from them. Chunks matching the inferred document type are preferred; the
// rest of the tenant's chunks fill any remaining slots. A degraded chain
// answer is not an error: it comes back with Degraded set and no sources.
func (e *Engine) Ask(ctx context.Context, ownerID core.ID, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("%w: question", core.ErrEmptyContent)
	}
	if ownerID == 0 {
		return Answer{}, core.ErrMissingOwner
	}

	hint := InferDocType(question)
	hits, err := e.retrieve(ctx, storage.Scope(e.store, ownerID), question, hint)
	if err != nil {
		return Answer{}, err
	}

	logger := e.logger.With("owner", ownerID.String(), "hint", string(hint))
	logger.Debug("retrieved context", "hits", len(hits))

	result := e.chain.Invoke(ctx, BuildPrompt(question, hits))
	answer := Answer{
		Answer:   result.Answer,
		Sources:  []string{},
		Model:    result.Model,
		Degraded: result.Degraded,
		Hint:     hint,
		Hits:     hits,
	}
	if result.Degraded {
		logger.Warn("answer degraded", "error", result.Err)
		return answer, nil
	}
	answer.Sources = distinctSources(hits)
	return answer, nil
}

func (e *Engine) retrieve(ctx context.Context, scoped *storage.TenantStore, question string, hint DocType) ([]core.ScoredChunk, error) {
	var hits []core.ScoredChunk
	if hint != DocTypeNone {
		hinted, err := scoped.SimilaritySearch(ctx, question, e.topK, core.Metadata{core.MetaDocType: string(hint)})
		if err != nil {
			return nil, fmt.Errorf("%w: hinted query: %w", core.ErrStorageFailure, err)
		}
		hits = dedupeHits(nil, hinted, e.topK)
	}

	if len(hits) < e.topK {
		rest, err := scoped.SimilaritySearch(ctx, question, e.topK, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: tenant query: %w", core.ErrStorageFailure, err)
		}
		hits = dedupeHits(hits, rest, e.topK)
	}

	if n, ok := SemesterOf(question); ok {
		hits = preferSemester(hits, n)
	}
	return hits, nil
}

// dedupeHits appends hits from more that are not already present, up to limit.
// Two chunks with the same text from the same source count as one, which
// also folds the copies visible while a document is being re-ingested.
func dedupeHits(hits, more []core.ScoredChunk, limit int) []core.ScoredChunk {
	seen := make(map[string]bool, len(hits)+len(more))
	for _, h := range hits {
		seen[hitKey(h)] = true
	}
	for _, h := range more {
		if len(hits) >= limit {
			break
		}
		key := hitKey(h)
		if seen[key] {
			continue
		}
		seen[key] = true
		hits = append(hits, h)
	}
	return hits
}

func hitKey(h core.ScoredChunk) string {
	return h.Chunk.Metadata[core.MetaSource] + "\x00" + h.Chunk.Text
}

// preferSemester moves chunks that mention semester n ahead of the others,
// keeping relative order on both sides.
func preferSemester(hits []core.ScoredChunk, n int) []core.ScoredChunk {
	pattern := regexp.MustCompile(fmt.Sprintf(`(?i)\bsemester\s*%d\b`, n))
	front := make([]core.ScoredChunk, 0, len(hits))
	back := make([]core.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if pattern.MatchString(h.Chunk.Text) {
			front = append(front, h)
		} else {
			back = append(back, h)
		}
	}
	return append(front, back...)
}

func distinctSources(hits []core.ScoredChunk) []string {
	seen := make(map[string]bool)
	sources := []string{}
	for _, h := range hits {
		src := h.Chunk.Metadata[core.MetaSource]
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	return sources
}
