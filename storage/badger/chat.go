package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/storage"
)

// ChatRepository implements storage.ChatRepository for BadgerDB.
type ChatRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ChatRepository = (*ChatRepository)(nil)

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(backend *Backend) (*ChatRepository, error) {
	idSeq, err := backend.GetSequence(chatIDSeq)
	if err != nil {
		return nil, err
	}

	return &ChatRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ChatRepository) Close() error {
	return r.idSeq.Release()
}

// AddExchange stores an answered question under a sequence-generated ID.
func (r *ChatRepository) AddExchange(ctx context.Context, exchange *core.ChatExchange) (*core.ChatExchange, error) {
	if exchange.Timestamp.IsZero() {
		exchange.Timestamp = time.Now().UTC()
	}
	if err := core.ValidateChatExchange(exchange); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		exchange.Id = core.ID(id)

		value := storage.MarshalChatExchange(exchange)
		if err := tx.Set(makeChatKey(exchange.Id), value); err != nil {
			return err
		}

		ownerKey := makeOwnerTimeKey(chatOwnerPrefix, exchange.OwnerId, exchange.Timestamp, exchange.Id)
		if err := tx.Set(ownerKey, storage.MarshalID(exchange.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return exchange, nil
}

// ListExchanges returns the owner's latest exchanges, oldest first.
func (r *ChatRepository) ListExchanges(ctx context.Context, ownerID core.ID, limit int) ([]*core.ChatExchange, error) {
	var results []*core.ChatExchange
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return walkOwnerIndex(tx, chatOwnerPrefix, ownerID, limit, func(id core.ID) (bool, error) {
			exchange, err := readExchange(tx, makeChatKey(id))
			if err != nil || exchange == nil {
				return false, err
			}
			results = append(results, exchange)
			return true, nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	// Index walk is newest first
	slices.Reverse(results)
	return results, nil
}

func readExchange(tx *badger.Txn, key []byte) (*core.ChatExchange, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var exchange *core.ChatExchange
	err = item.Value(func(val []byte) error {
		var uerr error
		exchange, uerr = storage.UnmarshalChatExchange(val)
		return uerr
	})
	return exchange, err
}
