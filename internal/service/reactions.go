package service

import (
	"context"

	"github.com/kavyan/clipvault/internal/model"
)

// ReactionKind is a like or dislike vote.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// ReactionStore is the slice of the reaction repository this service
// needs.
type ReactionStore interface {
	SetReaction(ctx context.Context, hash string, userID int64, like bool) (added, removedOpposite bool, err error)
	Bookmark(ctx context.Context, userID int64, hash string) error
	Unbookmark(ctx context.Context, userID int64, hash string) error
	Bookmarks(ctx context.Context, userID int64) ([]string, error)
}

// CounterStore applies aggregate counter deltas on catalog items.
type CounterStore interface {
	AdjustCounts(ctx context.Context, hash string, dLike, dDislike int) error
}

// Reactions implements mutually exclusive like/dislike voting and
// plain bookmark sets. A user holds membership in at most one of an
// item's two reaction sets; counters only move when membership
// actually changed, so a double tap of the same button is a no-op.
type Reactions struct {
	store    ReactionStore
	counters CounterStore
}

func NewReactions(store ReactionStore, counters CounterStore) *Reactions {
	return &Reactions{store: store, counters: counters}
}

// React records a vote. Switching like→dislike decrements likes and
// increments dislikes by exactly one each; repeating the same vote
// changes nothing.
func (r *Reactions) React(ctx context.Context, userID int64, hash string, kind ReactionKind) error {
	like := kind == ReactionLike
	added, removedOpp, err := r.store.SetReaction(ctx, hash, userID, like)
	if err != nil {
		return err
	}
	var dLike, dDislike int
	if like {
		if added {
			dLike++
		}
		if removedOpp {
			dDislike--
		}
	} else {
		if added {
			dDislike++
		}
		if removedOpp {
			dLike--
		}
	}
	return r.counters.AdjustCounts(ctx, hash, dLike, dDislike)
}

// Bookmark adds an item to the user's bookmarks (idempotent).
func (r *Reactions) Bookmark(ctx context.Context, userID int64, hash string) error {
	return r.store.Bookmark(ctx, userID, hash)
}

// Unbookmark removes an item from the user's bookmarks.
func (r *Reactions) Unbookmark(ctx context.Context, userID int64, hash string) error {
	return r.store.Unbookmark(ctx, userID, hash)
}

// Bookmarks lists the user's bookmarked item hashes.
func (r *Reactions) Bookmarks(ctx context.Context, userID int64) ([]string, error) {
	return r.store.Bookmarks(ctx, userID)
}

// LikeRatio returns the percentage of positive votes, floored to an
// integer. An unvoted item reads as a neutral 50 so the player never
// shows a divide-by-zero zero.
func LikeRatio(item model.CatalogItem) int {
	total := item.LikeCount + item.DislikeCount
	if total == 0 {
		return 50
	}
	return item.LikeCount * 100 / total
}
