package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/kbase/chunker"
	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/parser"
	"github.com/poiesic/kbase/retrieval"
	"github.com/poiesic/kbase/storage"
)

// hintWindow is how much leading text, in runes, feeds document type inference.
const hintWindow = 500

// Parser extracts plain text from a stored file.
type Parser interface {
	Parse(ctx context.Context, path string, format parser.Format) (string, error)
}

// Splitter segments text into chunks.
type Splitter interface {
	Split(text string) ([]string, error)
}

// Pipeline ingests documents one at a time into a vector store.
type Pipeline struct {
	store    storage.VectorStore
	parser   Parser
	splitter Splitter
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithParser replaces the default parser.
func WithParser(p Parser) Option {
	return func(pl *Pipeline) error {
		if p == nil {
			return ErrParserRequired
		}
		pl.parser = p
		return nil
	}
}

// WithSplitter replaces the default chunker.
func WithSplitter(s Splitter) Option {
	return func(pl *Pipeline) error {
		if s == nil {
			return ErrSplitterRequired
		}
		pl.splitter = s
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline writing to store.
func NewPipeline(store storage.VectorStore, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		store:    store,
		splitter: chunker.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.parser == nil {
		p.parser = parser.New(parser.WithLogger(p.logger))
	}
	p.logger = p.logger.With("component", "ingestion-pipeline")
	return p, nil
}

// Ingest parses, chunks, tags and stores doc as its current generation.
// It reports true and marks doc embedded only when every stage succeeded.
// On false, chunks a failed add may have left behind are deleted.
func (p *Pipeline) Ingest(ctx context.Context, doc *core.Document) bool {
	if doc == nil {
		p.logger.Error("ingest called without a document")
		return false
	}

	count, err := p.run(ctx, doc, doc.Generation)
	if err != nil {
		p.logFailure("ingest failed", doc, err)
		if errors.Is(err, errStore) {
			// A failed add may have left part of the batch behind.
			if _, cleanupErr := storage.Scope(p.store, doc.OwnerId).Delete(ctx, generationFilter(doc, doc.Generation)); cleanupErr != nil {
				p.logFailure("discarding partial chunks failed", doc, cleanupErr)
			}
		}
		return false
	}

	doc.Embedded = true
	p.logger.Info("document ingested",
		"doc_id", doc.Id.String(),
		"owner", doc.OwnerId.String(),
		"title", doc.Title,
		"chunks", count)
	return true
}

// Reingest replaces doc's chunks with a fresh generation. The new generation
// is stored before older ones are deleted, so queries may briefly see both
// but never neither. Every generation below the new one is swept, which also
// clears leftovers of an earlier sweep that failed. On false the previous
// generation is untouched and doc keeps its generation.
func (p *Pipeline) Reingest(ctx context.Context, doc *core.Document) bool {
	if doc == nil {
		p.logger.Error("reingest called without a document")
		return false
	}

	scoped := storage.Scope(p.store, doc.OwnerId)
	previous := doc.Generation
	next := previous + 1

	count, err := p.run(ctx, doc, next)
	if err != nil {
		p.logFailure("reingest failed", doc, err)
		if _, cleanupErr := scoped.Delete(ctx, generationFilter(doc, next)); cleanupErr != nil {
			p.logFailure("discarding partial generation failed", doc, cleanupErr)
		}
		return false
	}

	removed := p.sweepGenerations(ctx, scoped, doc, next)

	doc.Generation = next
	doc.Embedded = true
	p.logger.Info("document reingested",
		"doc_id", doc.Id.String(),
		"owner", doc.OwnerId.String(),
		"generation", next,
		"chunks", count,
		"removed", removed)
	return true
}

// sweepGenerations deletes doc's chunks of every generation below live and
// returns how many were removed. Failures are logged and skipped.
func (p *Pipeline) sweepGenerations(ctx context.Context, scoped *storage.TenantStore, doc *core.Document, live int) int {
	removed := 0
	for g := 0; g < live; g++ {
		n, err := scoped.Delete(ctx, generationFilter(doc, g))
		if err != nil {
			p.logger.Error("removing stale generation failed",
				"doc_id", doc.Id.String(),
				"owner", doc.OwnerId.String(),
				"generation", g,
				"error", err)
			continue
		}
		removed += n
	}
	return removed
}

// run executes every stage and returns the number of chunks stored.
func (p *Pipeline) run(ctx context.Context, doc *core.Document, generation int) (int, error) {
	if doc.OwnerId == 0 {
		return 0, core.ErrMissingOwner
	}
	format := parser.Format(doc.Format)
	if format == "" {
		format = parser.FormatFromPath(doc.FilePath)
	}

	text, err := p.parser.Parse(ctx, doc.FilePath, format)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("parse: %w", core.ErrEmptyContent)
	}

	chunks, err := p.splitter.Split(text)
	if err != nil {
		return 0, fmt.Errorf("split: %w", err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("split: %w", core.ErrEmptyContent)
	}

	base := core.Metadata{
		core.MetaSource:     doc.Title,
		core.MetaDocID:      doc.Id.String(),
		core.MetaGeneration: strconv.Itoa(generation),
	}
	if hint := retrieval.InferDocType(doc.Title + "\n" + leading(text, hintWindow)); hint != retrieval.DocTypeNone {
		base[core.MetaDocType] = string(hint)
	}
	metadatas := make([]core.Metadata, len(chunks))
	for i := range chunks {
		metadatas[i] = base.Clone()
	}

	if err := storage.Scope(p.store, doc.OwnerId).AddTexts(ctx, chunks, metadatas); err != nil {
		return 0, fmt.Errorf("%w: %w", errStore, err)
	}
	return len(chunks), nil
}

func (p *Pipeline) logFailure(msg string, doc *core.Document, err error) {
	p.logger.Error(msg,
		"doc_id", doc.Id.String(),
		"owner", doc.OwnerId.String(),
		"title", doc.Title,
		"path", doc.FilePath,
		"error", err)
}

func generationFilter(doc *core.Document, generation int) core.Metadata {
	return core.Metadata{
		core.MetaDocID:      doc.Id.String(),
		core.MetaGeneration: strconv.Itoa(generation),
	}
}

func leading(text string, n int) string {
	runes := 0
	for i := range text {
		if runes == n {
			return text[:i]
		}
		runes++
	}
	return text
}
