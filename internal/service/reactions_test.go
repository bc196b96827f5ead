package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavyan/clipvault/internal/model"
)

func TestReact(t *testing.T) {
	ctx := context.Background()

	setup := func() (*Reactions, *fakeCatalog) {
		catalog := &fakeCatalog{items: []model.CatalogItem{item("a", "all")}}
		return NewReactions(newFakeReactionStore(), catalog), catalog
	}

	counts := func(c *fakeCatalog) (int, int) {
		return c.items[0].LikeCount, c.items[0].DislikeCount
	}

	t.Run("first like increments", func(t *testing.T) {
		r, c := setup()
		require.NoError(t, r.React(ctx, 1, "a", ReactionLike))
		likes, dislikes := counts(c)
		assert.Equal(t, 1, likes)
		assert.Equal(t, 0, dislikes)
	})

	t.Run("repeated like is a no-op", func(t *testing.T) {
		r, c := setup()
		require.NoError(t, r.React(ctx, 1, "a", ReactionLike))
		require.NoError(t, r.React(ctx, 1, "a", ReactionLike))
		likes, dislikes := counts(c)
		assert.Equal(t, 1, likes)
		assert.Equal(t, 0, dislikes)
	})

	t.Run("switching vote moves both counters by one", func(t *testing.T) {
		r, c := setup()
		require.NoError(t, r.React(ctx, 1, "a", ReactionLike))
		require.NoError(t, r.React(ctx, 1, "a", ReactionDislike))
		likes, dislikes := counts(c)
		assert.Equal(t, 0, likes)
		assert.Equal(t, 1, dislikes)
	})

	t.Run("two users vote independently", func(t *testing.T) {
		r, c := setup()
		require.NoError(t, r.React(ctx, 1, "a", ReactionLike))
		require.NoError(t, r.React(ctx, 2, "a", ReactionLike))
		likes, _ := counts(c)
		assert.Equal(t, 2, likes)
	})
}

func TestBookmarks(t *testing.T) {
	ctx := context.Background()
	r := NewReactions(newFakeReactionStore(), &fakeCatalog{})

	require.NoError(t, r.Bookmark(ctx, 1, "a"))
	require.NoError(t, r.Bookmark(ctx, 1, "a")) // idempotent
	require.NoError(t, r.Bookmark(ctx, 1, "b"))

	got, err := r.Bookmarks(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, got)

	require.NoError(t, r.Unbookmark(ctx, 1, "a"))
	got, err = r.Bookmarks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)
}

func TestLikeRatio(t *testing.T) {
	assert.Equal(t, 50, LikeRatio(model.CatalogItem{}), "unvoted items read neutral")
	assert.Equal(t, 100, LikeRatio(model.CatalogItem{LikeCount: 3}))
	assert.Equal(t, 0, LikeRatio(model.CatalogItem{DislikeCount: 2}))
	assert.Equal(t, 66, LikeRatio(model.CatalogItem{LikeCount: 2, DislikeCount: 1}), "floored, not rounded")
}
