package storage

import (
	"context"

	"github.com/poiesic/kbase/core"
)

// VectorStore is the opaque chunk index. Implementations embed texts on add
// and on query; callers never handle vectors.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// AddTexts stores texts with their metadata. metadatas must be the same
	// length as texts. An unreachable backend is reported as
	// core.ErrStorageFailure. A failed call may leave part of the batch
	// behind (badger splits batches too large for one transaction), so
	// callers delete by metadata on error.
	AddTexts(ctx context.Context, texts []string, metadatas []core.Metadata) error

	// SimilaritySearch returns up to k chunks whose metadata matches every
	// filter key, ordered by similarity to query (highest first).
	SimilaritySearch(ctx context.Context, query string, k int, filter core.Metadata) ([]core.ScoredChunk, error)

	// Delete removes every chunk whose metadata matches all filter keys and
	// returns how many were removed. An empty filter is rejected with
	// ErrInvalidQuery.
	Delete(ctx context.Context, filter core.Metadata) (int, error)

	// Close releases resources held by the store.
	Close() error
}

type DocumentRepository interface {
	// AddDocument assigns a new ID from sequence and sets UploadedAt if unset.
	// Returns the document with generated fields populated.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// UpdateDocument replaces an existing document.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// DeleteDocument removes a document and its owner index entry.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments returns the owner's documents, most recently uploaded
	// first. A limit <= 0 returns all of them.
	ListDocuments(ctx context.Context, ownerID core.ID, limit int) ([]*core.Document, error)

	// Close releases the ID sequence.
	Close() error
}

type ChatRepository interface {
	// AddExchange assigns a new ID from sequence and sets Timestamp if unset.
	AddExchange(ctx context.Context, exchange *core.ChatExchange) (*core.ChatExchange, error)

	// ListExchanges returns the owner's most recent exchanges in
	// chronological order. A limit <= 0 returns all of them.
	ListExchanges(ctx context.Context, ownerID core.ID, limit int) ([]*core.ChatExchange, error)

	// Close releases the ID sequence.
	Close() error
}
