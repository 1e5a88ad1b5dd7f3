package storage

import (
	"context"
	"testing"

	"github.com/poiesic/kbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore captures what reaches the underlying store.
type recordingStore struct {
	texts     []string
	metadatas []core.Metadata
	filters   []core.Metadata
}

func (r *recordingStore) AddTexts(_ context.Context, texts []string, metadatas []core.Metadata) error {
	r.texts = append(r.texts, texts...)
	r.metadatas = append(r.metadatas, metadatas...)
	return nil
}

func (r *recordingStore) SimilaritySearch(_ context.Context, _ string, _ int, filter core.Metadata) ([]core.ScoredChunk, error) {
	r.filters = append(r.filters, filter)
	return nil, nil
}

func (r *recordingStore) Delete(_ context.Context, filter core.Metadata) (int, error) {
	r.filters = append(r.filters, filter)
	return 0, nil
}

func (r *recordingStore) Close() error { return nil }

func TestScope_AddTextsStampsOwner(t *testing.T) {
	rec := &recordingStore{}
	scoped := Scope(rec, 42)
	input := []core.Metadata{
		{core.MetaSource: "a.pdf"},
		nil,
		{core.MetaSource: "b.pdf", core.MetaUserID: "42"},
	}

	err := scoped.AddTexts(context.Background(), []string{"x", "y", "z"}, input)
	require.NoError(t, err)

	require.Len(t, rec.metadatas, 3)
	for _, md := range rec.metadatas {
		assert.Equal(t, "42", md[core.MetaUserID])
	}
	assert.NotContains(t, input[0], core.MetaUserID, "caller metadata is not mutated")
}

func TestScope_AddTextsRejectsForeignOwner(t *testing.T) {
	rec := &recordingStore{}
	scoped := Scope(rec, 42)

	err := scoped.AddTexts(context.Background(), []string{"x", "y"}, []core.Metadata{
		{core.MetaSource: "a.pdf"},
		{core.MetaUserID: "7"},
	})
	assert.ErrorIs(t, err, core.ErrTenantMismatch)
	assert.Empty(t, rec.texts, "nothing is submitted when one chunk is foreign")
}

func TestScope_AddTextsLengthMismatch(t *testing.T) {
	err := Scope(&recordingStore{}, 1).AddTexts(context.Background(), []string{"x"}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestScope_FiltersAreNarrowed(t *testing.T) {
	rec := &recordingStore{}
	scoped := Scope(rec, 9)
	ctx := context.Background()

	_, err := scoped.SimilaritySearch(ctx, "q", 4, core.Metadata{core.MetaDocType: "schedule"})
	require.NoError(t, err)
	_, err = scoped.Delete(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, core.Metadata{core.MetaDocType: "schedule", core.MetaUserID: "9"}, rec.filters[0])
	assert.Equal(t, core.Metadata{core.MetaUserID: "9"}, rec.filters[1])

	_, err = scoped.Delete(ctx, core.Metadata{core.MetaUserID: "10"})
	assert.ErrorIs(t, err, core.ErrTenantMismatch)
}

func TestScope_MissingOwner(t *testing.T) {
	scoped := Scope(&recordingStore{}, 0)

	err := scoped.AddTexts(context.Background(), []string{"x"}, []core.Metadata{{}})
	assert.ErrorIs(t, err, core.ErrMissingOwner)
	_, err = scoped.SimilaritySearch(context.Background(), "q", 1, nil)
	assert.ErrorIs(t, err, core.ErrMissingOwner)
}
