package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/kbase/ai"
	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/storage"
)

const defaultEmbedBatchSize = 32

// ChunkStore implements storage.VectorStore on BadgerDB with exhaustive
// cosine similarity search. Texts are embedded in concurrent sub-batches.
type ChunkStore struct {
	backend     *Backend
	embedder    ai.Embedder
	pool        *ants.Pool
	batchSize   int
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.VectorStore = (*ChunkStore)(nil)

// ChunkStoreOption configures a ChunkStore.
type ChunkStoreOption func(*ChunkStore) error

// WithEmbedBatchSize sets how many texts go to the embedder per call.
// Default is 32.
func WithEmbedBatchSize(size int) ChunkStoreOption {
	return func(s *ChunkStore) error {
		if size < 1 {
			size = 1
		}
		s.batchSize = size
		return nil
	}
}

// WithEmbedWorkers sets the embedding worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithEmbedWorkers(size int) ChunkStoreOption {
	return func(s *ChunkStore) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithChunkLogger sets a custom logger.
// Default is slog.Default().
func WithChunkLogger(logger *slog.Logger) ChunkStoreOption {
	return func(s *ChunkStore) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewChunkStore creates a ChunkStore on an open backend. The backend stays
// owned by the caller.
func NewChunkStore(backend *Backend, embedder ai.Embedder, opts ...ChunkStoreOption) (*ChunkStore, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	if embedder == nil {
		return nil, errors.New("embedder required")
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &ChunkStore{
		backend:   backend,
		embedder:  embedder,
		pool:      pool,
		batchSize: defaultEmbedBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.pool.Release()
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "badger-chunks")
	return s, nil
}

// Close releases the worker pool, and the backend when the store owns it.
func (s *ChunkStore) Close() error {
	s.pool.Release()
	if s.ownsBackend {
		return s.backend.Close()
	}
	return nil
}

// AddTexts embeds texts and writes them with their metadata in one transaction.
func (s *ChunkStore) AddTexts(ctx context.Context, texts []string, metadatas []core.Metadata) error {
	if len(texts) != len(metadatas) {
		return fmt.Errorf("%w: %d texts, %d metadatas", storage.ErrLengthMismatch, len(texts), len(metadatas))
	}
	if len(texts) == 0 {
		return nil
	}
	if s.backend.IsClosed() {
		return fmt.Errorf("%w: %w", core.ErrStorageFailure, storage.ErrStorageClosed)
	}

	vectors, err := storage.EmbedBatches(ctx, s.pool, s.embedder, texts, s.batchSize)
	if err != nil {
		return fmt.Errorf("%w: embed: %w", core.ErrStorageFailure, err)
	}

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := writeChunks(tx, texts, metadatas, vectors); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if errors.Is(err, badger.ErrTxnTooBig) {
		s.logger.Debug("chunk batch exceeds one transaction, using write batch", "count", len(texts))
		err = s.backend.WithBatch(func(wb *badger.WriteBatch) error {
			return writeChunks(wb, texts, metadatas, vectors)
		})
	}
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrStorageFailure, err)
	}

	s.logger.Debug("stored chunks", "count", len(texts))
	return nil
}

// setter is satisfied by both *badger.Txn and *badger.WriteBatch.
type setter interface {
	Set(key, val []byte) error
}

func writeChunks(w setter, texts []string, metadatas []core.Metadata, vectors [][]float32) error {
	for i, text := range texts {
		chunk := &core.StoredChunk{
			Id:       chunkID(metadatas[i], i, text),
			Text:     text,
			Metadata: metadatas[i].Clone(),
			Vector:   vectors[i],
		}
		if err := w.Set(makeChunkKey(chunk.Id), storage.MarshalStoredChunk(chunk)); err != nil {
			return err
		}
		if owner, ok := chunk.Metadata[core.MetaUserID]; ok {
			if err := w.Set(makeChunkOwnerKey(owner, chunk.Id), nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// SimilaritySearch embeds query and ranks every chunk matching filter by
// cosine similarity.
func (s *ChunkStore) SimilaritySearch(ctx context.Context, query string, k int, filter core.Metadata) ([]core.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", storage.ErrInvalidQuery)
	}
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", core.ErrStorageFailure, err)
	}

	var results []core.ScoredChunk
	err = s.scan(ctx, filter, func(chunk *core.StoredChunk) {
		results = append(results, core.ScoredChunk{
			Chunk: core.Chunk{Text: chunk.Text, Metadata: chunk.Metadata},
			Score: cosineSimilarity(vector, chunk.Vector),
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b core.ScoredChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes every chunk matching filter.
func (s *ChunkStore) Delete(ctx context.Context, filter core.Metadata) (int, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("%w: delete requires a filter", storage.ErrInvalidQuery)
	}

	var doomed []*core.StoredChunk
	if err := s.scan(ctx, filter, func(chunk *core.StoredChunk) {
		doomed = append(doomed, chunk)
	}); err != nil {
		return 0, err
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range doomed {
			if err := tx.Delete(makeChunkKey(chunk.Id)); err != nil {
				return err
			}
			if owner, ok := chunk.Metadata[core.MetaUserID]; ok {
				if err := tx.Delete(makeChunkOwnerKey(owner, chunk.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrStorageFailure, err)
	}

	s.logger.Debug("deleted chunks", "count", len(doomed), "filter", filter)
	return len(doomed), nil
}

// Chunks returns every stored chunk matching filter, vectors included.
func (s *ChunkStore) Chunks(ctx context.Context, filter core.Metadata) ([]*core.StoredChunk, error) {
	var out []*core.StoredChunk
	err := s.scan(ctx, filter, func(chunk *core.StoredChunk) {
		out = append(out, chunk)
	})
	return out, err
}

// scan visits every chunk matching filter. A user_id in the filter narrows
// the walk to that tenant's index.
func (s *ChunkStore) scan(ctx context.Context, filter core.Metadata, visit func(*core.StoredChunk)) error {
	if s.backend.IsClosed() {
		return fmt.Errorf("%w: %w", core.ErrStorageFailure, storage.ErrStorageClosed)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		owner, byOwner := filter[core.MetaUserID]
		if byOwner {
			opts.Prefix = makeChunkOwnerPrefix(owner)
			opts.PrefetchValues = false
		} else {
			opts.Prefix = []byte(chunkPrefix)
		}
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var (
				chunk *core.StoredChunk
				err   error
			)
			if byOwner {
				key := iter.Item().Key()
				id, idErr := idFromKeySuffix(key[len(opts.Prefix):])
				if idErr != nil {
					return idErr
				}
				chunk, err = readChunk(tx, makeChunkKey(id))
			} else {
				err = iter.Item().Value(func(val []byte) error {
					var uerr error
					chunk, uerr = storage.UnmarshalStoredChunk(val)
					return uerr
				})
			}
			if err != nil {
				return err
			}
			if chunk != nil && chunk.Metadata.Matches(filter) {
				visit(chunk)
			}
		}
		return nil
	}, false)
}

func readChunk(tx *badger.Txn, key []byte) (*core.StoredChunk, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var chunk *core.StoredChunk
	err = item.Value(func(val []byte) error {
		var uerr error
		chunk, uerr = storage.UnmarshalStoredChunk(val)
		return uerr
	})
	return chunk, err
}

// chunkID derives a stable ID from the chunk's metadata, batch position and text,
// so re-submitting an identical batch overwrites instead of duplicating.
func chunkID(md core.Metadata, index int, text string) core.ID {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(md[k])
		b.WriteByte(0)
	}
	b.WriteString(strconv.Itoa(index))
	b.WriteByte(0)
	b.WriteString(text)
	return core.IDFromContent(b.String())
}

// cosineSimilarity returns the cosine of the angle between a and b, over
// their common length. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
