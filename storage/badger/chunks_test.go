package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/kbase/ai/mock"
	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChunkStore(t *testing.T, opts ...ChunkStoreOption) (*ChunkStore, *mock.MockEmbedder) {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	store, err := NewMemoryChunkStore(embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, embedder
}

func md(owner, source, docType string) core.Metadata {
	m := core.Metadata{core.MetaUserID: owner, core.MetaSource: source}
	if docType != "" {
		m[core.MetaDocType] = docType
	}
	return m
}

func TestChunkStore_AddAndSearch(t *testing.T) {
	store, _ := newTestChunkStore(t)
	ctx := context.Background()

	err := store.AddTexts(ctx,
		[]string{"jadwal senin", "nilai ipk", "jadwal selasa"},
		[]core.Metadata{md("1", "jadwal.pdf", "schedule"), md("1", "khs.pdf", "transcript"), md("2", "lain.pdf", "schedule")},
	)
	require.NoError(t, err)

	t.Run("exact text ranks first", func(t *testing.T) {
		hits, err := store.SimilaritySearch(ctx, "nilai ipk", 3, nil)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "nilai ipk", hits[0].Chunk.Text)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
		assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	})

	t.Run("filter by owner", func(t *testing.T) {
		hits, err := store.SimilaritySearch(ctx, "jadwal selasa", 10, core.Metadata{core.MetaUserID: "1"})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		for _, h := range hits {
			assert.Equal(t, "1", h.Chunk.Metadata[core.MetaUserID])
		}
	})

	t.Run("filter by owner and type", func(t *testing.T) {
		hits, err := store.SimilaritySearch(ctx, "x", 10, core.Metadata{core.MetaUserID: "1", core.MetaDocType: "schedule"})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "jadwal senin", hits[0].Chunk.Text)
	})

	t.Run("limit", func(t *testing.T) {
		hits, err := store.SimilaritySearch(ctx, "x", 1, nil)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("invalid k", func(t *testing.T) {
		_, err := store.SimilaritySearch(ctx, "x", 0, nil)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestChunkStore_AddTextsValidation(t *testing.T) {
	store, embedder := newTestChunkStore(t)
	ctx := context.Background()

	err := store.AddTexts(ctx, []string{"a", "b"}, []core.Metadata{{}})
	assert.ErrorIs(t, err, storage.ErrLengthMismatch)

	require.NoError(t, store.AddTexts(ctx, nil, nil))
	assert.Zero(t, embedder.CallCount())
}

func TestChunkStore_EmbedFailureWritesNothing(t *testing.T) {
	store, embedder := newTestChunkStore(t, WithEmbedBatchSize(2))
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 {
			return nil, errors.New("embedding service down")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text)
		}
		return out, nil
	}

	texts := []string{"a", "b", "c", "d", "e"}
	mds := make([]core.Metadata, len(texts))
	for i := range mds {
		mds[i] = md("1", "doc", "")
	}
	err := store.AddTexts(ctx, texts, mds)
	assert.ErrorIs(t, err, core.ErrStorageFailure)

	chunks, err := store.Chunks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkStore_ConcurrentBatchesKeepOrder(t *testing.T) {
	store, embedder := newTestChunkStore(t, WithEmbedBatchSize(3), WithEmbedWorkers(4))
	ctx := context.Background()

	texts := make([]string, 25)
	mds := make([]core.Metadata, len(texts))
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk number %d", i)
		mds[i] = md("5", "big.pdf", "")
	}
	require.NoError(t, store.AddTexts(ctx, texts, mds))
	assert.Equal(t, 9, embedder.CallCount())

	chunks, err := store.Chunks(ctx, core.Metadata{core.MetaUserID: "5"})
	require.NoError(t, err)
	require.Len(t, chunks, 25)
	for _, c := range chunks {
		assert.Equal(t, mock.Vector(c.Text), c.Vector, "vector belongs to its own text")
	}
}

func TestChunkStore_Delete(t *testing.T) {
	store, _ := newTestChunkStore(t)
	ctx := context.Background()

	gen := func(owner, doc, g string) core.Metadata {
		return core.Metadata{core.MetaUserID: owner, core.MetaDocID: doc, core.MetaGeneration: g}
	}
	require.NoError(t, store.AddTexts(ctx,
		[]string{"a", "b", "c", "d"},
		[]core.Metadata{gen("1", "10", "0"), gen("1", "10", "1"), gen("1", "11", "0"), gen("2", "10", "0")},
	))

	t.Run("empty filter rejected", func(t *testing.T) {
		_, err := store.Delete(ctx, nil)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})

	t.Run("delete one generation", func(t *testing.T) {
		n, err := store.Delete(ctx, gen("1", "10", "0"))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		left, err := store.Chunks(ctx, core.Metadata{core.MetaUserID: "1"})
		require.NoError(t, err)
		assert.Len(t, left, 2)
	})

	t.Run("delete by owner leaves other tenants", func(t *testing.T) {
		n, err := store.Delete(ctx, core.Metadata{core.MetaUserID: "1"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		all, err := store.Chunks(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "2", all[0].Metadata[core.MetaUserID])

		hits, err := store.SimilaritySearch(ctx, "a", 5, core.Metadata{core.MetaUserID: "1"})
		require.NoError(t, err)
		assert.Empty(t, hits, "owner index entries are removed too")
	})

	t.Run("nothing matches", func(t *testing.T) {
		n, err := store.Delete(ctx, core.Metadata{core.MetaUserID: "99"})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestChunkStore_OwnerPrefixDoesNotLeak(t *testing.T) {
	store, _ := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddTexts(ctx,
		[]string{"four", "forty-two"},
		[]core.Metadata{md("4", "a", ""), md("42", "b", "")},
	))

	hits, err := store.SimilaritySearch(ctx, "q", 10, core.Metadata{core.MetaUserID: "4"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "four", hits[0].Chunk.Text)
}

func TestChunkStore_ScopedView(t *testing.T) {
	store, _ := newTestChunkStore(t)
	ctx := context.Background()

	alice := storage.Scope(store, 1)
	bob := storage.Scope(store, 2)
	require.NoError(t, alice.AddTexts(ctx, []string{"rahasia alice"}, []core.Metadata{{core.MetaSource: "a.txt"}}))
	require.NoError(t, bob.AddTexts(ctx, []string{"rahasia bob"}, []core.Metadata{{core.MetaSource: "b.txt"}}))

	hits, err := bob.SimilaritySearch(ctx, "rahasia alice", 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "rahasia bob", hits[0].Chunk.Text)

	n, err := bob.Delete(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := store.Chunks(ctx, nil)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "rahasia alice", left[0].Text)
}

func TestChunkStore_ClosedBackend(t *testing.T) {
	store, _ := newTestChunkStore(t)
	require.NoError(t, store.backend.Close())

	err := store.AddTexts(context.Background(), []string{"a"}, []core.Metadata{{}})
	assert.ErrorIs(t, err, core.ErrStorageFailure)
}

func TestChunkID_Stable(t *testing.T) {
	a := chunkID(core.Metadata{"x": "1", "y": "2"}, 0, "text")
	b := chunkID(core.Metadata{"y": "2", "x": "1"}, 0, "text")
	c := chunkID(core.Metadata{"x": "1", "y": "2"}, 1, "text")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
