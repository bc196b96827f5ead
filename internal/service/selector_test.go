package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavyan/clipvault/internal/model"
)

func item(hash, category string) model.CatalogItem {
	return model.CatalogItem{ContentHash: hash, Handle: "h-" + hash, Category: category}
}

func TestPickPrefersUnseen(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{items: []model.CatalogItem{
		item("a", "all"), item("b", "all"), item("c", "all"),
	}}
	history := newFakeHistory()
	sel := NewSelector(catalog, history, 500)
	sel.intn = func(n int) int { return 0 }

	require.NoError(t, history.MarkSeen(ctx, 1, "a"))
	require.NoError(t, history.MarkSeen(ctx, 1, "b"))

	got, err := sel.Pick(ctx, 1, model.CategoryAll)
	require.NoError(t, err)
	assert.Equal(t, "c", got.ContentHash, "the only unseen item must be chosen")
}

func TestPickFallsBackWhenAllSeen(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{items: []model.CatalogItem{item("a", "all"), item("b", "all")}}
	history := newFakeHistory()
	sel := NewSelector(catalog, history, 500)

	require.NoError(t, history.MarkSeen(ctx, 1, "a"))
	require.NoError(t, history.MarkSeen(ctx, 1, "b"))

	got, err := sel.Pick(ctx, 1, model.CategoryAll)
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, got.ContentHash, "exhausted users still get content")
}

func TestPickEmptyCatalog(t *testing.T) {
	sel := NewSelector(&fakeCatalog{}, newFakeHistory(), 500)

	_, err := sel.Pick(context.Background(), 1, model.CategoryAll)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestPickRespectsCategory(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{items: []model.CatalogItem{
		item("a", "music"), item("b", "sports"),
	}}
	sel := NewSelector(catalog, newFakeHistory(), 500)
	sel.intn = func(n int) int { return 0 }

	got, err := sel.Pick(ctx, 1, "sports")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ContentHash)
}

func TestPickDoesNotRecordAnything(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{items: []model.CatalogItem{item("a", "all")}}
	history := newFakeHistory()
	sel := NewSelector(catalog, history, 500)

	_, err := sel.Pick(ctx, 1, model.CategoryAll)
	require.NoError(t, err)

	seen, _ := history.SeenFilter(ctx, 1, []string{"a"})
	assert.False(t, seen["a"], "bookkeeping belongs to MarkDelivered, not Pick")
	trail, _ := history.Trail(ctx, 1, 10)
	assert.Empty(t, trail)
}

func TestMarkDelivered(t *testing.T) {
	ctx := context.Background()
	history := newFakeHistory()
	sel := NewSelector(&fakeCatalog{}, history, 500)

	require.NoError(t, sel.MarkDelivered(ctx, 1, item("a", "all")))

	seen, _ := history.SeenFilter(ctx, 1, []string{"a"})
	assert.True(t, seen["a"])
	trail, _ := history.Trail(ctx, 1, 10)
	assert.Equal(t, []string{"a"}, trail)
}

func TestPrevious(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{items: []model.CatalogItem{item("a", "all"), item("b", "all")}}
	history := newFakeHistory()
	sel := NewSelector(catalog, history, 500)

	t.Run("too short a trail", func(t *testing.T) {
		_, err := sel.Previous(ctx, 1)
		assert.ErrorIs(t, err, ErrNoPrevious)
	})

	require.NoError(t, sel.MarkDelivered(ctx, 1, item("a", "all")))
	require.NoError(t, sel.MarkDelivered(ctx, 1, item("b", "all")))

	t.Run("second-most-recent entry", func(t *testing.T) {
		got, err := sel.Previous(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "a", got.ContentHash)
	})

	t.Run("purged item reads as no previous", func(t *testing.T) {
		require.NoError(t, sel.MarkDelivered(ctx, 2, item("gone", "all")))
		require.NoError(t, sel.MarkDelivered(ctx, 2, item("b", "all")))

		_, err := sel.Previous(ctx, 2)
		assert.ErrorIs(t, err, ErrNoPrevious)
	})
}

func TestResetClearsSeenKeepsTrail(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{items: []model.CatalogItem{item("a", "all"), item("b", "all")}}
	history := newFakeHistory()
	sel := NewSelector(catalog, history, 500)

	require.NoError(t, sel.MarkDelivered(ctx, 1, item("a", "all")))
	require.NoError(t, sel.MarkDelivered(ctx, 1, item("b", "all")))
	require.NoError(t, sel.Reset(ctx, 1))

	seen, _ := history.SeenFilter(ctx, 1, []string{"a", "b"})
	assert.False(t, seen["a"])
	assert.False(t, seen["b"])

	got, err := sel.Previous(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ContentHash, "back-navigation survives a reset")
}
