package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// AddDocument stores a new document under a sequence-generated ID.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		doc.Id = core.ID(id)
		doc.UpdatedAt = doc.UploadedAt

		if err := r.writeDocument(tx, doc); err != nil {
			return err
		}
		ownerKey := makeOwnerTimeKey(documentOwnerPrefix, doc.OwnerId, doc.UploadedAt, doc.Id)
		if err := tx.Set(ownerKey, storage.MarshalID(doc.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument replaces an existing document. Owner and upload time are
// immutable so the owner index never moves.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readDocument(tx, makeDocumentKey(doc.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		doc.OwnerId = old.OwnerId
		doc.UploadedAt = old.UploadedAt
		doc.UpdatedAt = time.Now().UTC()
		if err := r.writeDocument(tx, doc); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document and its owner index entry.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(makeOwnerTimeKey(documentOwnerPrefix, doc.OwnerId, doc.UploadedAt, doc.Id)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListDocuments returns the owner's documents, newest upload first.
func (r *DocumentRepository) ListDocuments(ctx context.Context, ownerID core.ID, limit int) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return walkOwnerIndex(tx, documentOwnerPrefix, ownerID, limit, func(id core.ID) (bool, error) {
			doc, err := readDocument(tx, makeDocumentKey(id))
			if err != nil || doc == nil {
				return false, err
			}
			results = append(results, doc)
			return true, nil
		})
	}, false)
	return results, err
}

func (r *DocumentRepository) writeDocument(tx *badger.Txn, doc *core.Document) error {
	return tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc))
}

func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var uerr error
		doc, uerr = storage.UnmarshalDocument(val)
		return uerr
	})
	return doc, err
}

// walkOwnerIndex visits an owner time index newest first. visit reports
// whether the entry counts toward limit. A limit <= 0 walks everything.
func walkOwnerIndex(tx *badger.Txn, prefix string, ownerID core.ID, limit int, visit func(core.ID) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = makeOwnerPrefix(prefix, ownerID)

	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Seek(makeOwnerSeekEnd(prefix, ownerID)); iter.Valid(); iter.Next() {
		if limit > 0 && count >= limit {
			break
		}
		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}
		counted, err := visit(id)
		if err != nil {
			return err
		}
		if counted {
			count++
		}
	}
	return nil
}
