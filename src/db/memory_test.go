package db

import (
	"context"
	"testing"

	"ResourceDirectory/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing(lat, lon float64) types.Document {
	return types.Document{
		"name":     "r",
		"location": map[string]any{"latitude": lat, "longitude": lon},
	}
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ref := s.NewRef(types.ListingsCollection)
	assert.NotEmpty(t, ref.ID)
	assert.NotEqual(t, ref, s.NewRef(types.ListingsCollection))

	_, err := s.Get(ctx, ref)
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, s.Set(ctx, ref, types.Document{"name": "a"}))
	doc, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "a", doc["name"])

	// returned documents are copies
	doc["name"] = "mutated"
	again, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "a", again["name"])

	require.NoError(t, s.Delete(ctx, ref))
	_, err = s.Get(ctx, ref)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestMemoryStore_Range(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	coll := types.ListingsCollection
	require.NoError(t, s.Set(ctx, types.DocRef{Collection: coll, ID: "low"}, listing(10, 0)))
	require.NoError(t, s.Set(ctx, types.DocRef{Collection: coll, ID: "edge"}, listing(20, 0)))
	require.NoError(t, s.Set(ctx, types.DocRef{Collection: coll, ID: "high"}, listing(30, 0)))
	require.NoError(t, s.Set(ctx, types.DocRef{Collection: coll, ID: "nowhere"}, types.Document{"name": "x"}))

	got, err := s.Range(ctx, coll, types.LatitudeField, 15, 30)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "edge")
	assert.Contains(t, got, "high")

	all, err := s.GetAll(ctx, coll)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMemoryStore_Commit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := types.DocRef{Collection: types.DetailsCollection, ID: "a"}
	b := types.DocRef{Collection: types.ListingsCollection, ID: "b"}
	require.NoError(t, s.Set(ctx, a, types.Document{"info": "x"}))

	err := s.Commit(ctx, []types.Write{
		{Ref: a, Delete: true},
		{Ref: b, Doc: types.Document{"name": "b"}},
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, a)
	assert.ErrorIs(t, err, types.ErrNotFound)
	doc, err := s.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "b", doc["name"])
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()

	_, err := s.GetAll(ctx, types.ListingsCollection)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, s.NewRef("x"), types.Document{}), context.Canceled)
}
