package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ReactionRepo keeps per-item liker/disliker sets and per-user
// bookmark sets in Redis. The SAdd/SRem return values report whether
// membership actually changed, which is what makes redundant taps
// no-ops on the aggregate counters.
type ReactionRepo struct{ RDB *redis.Client }

func NewReactionRepo(rdb *redis.Client) *ReactionRepo { return &ReactionRepo{RDB: rdb} }

func likersKey(hash string) string     { return "item:" + hash + ":likers" }
func dislikersKey(hash string) string  { return "item:" + hash + ":dislikers" }
func bookmarksKey(userID int64) string { return fmt.Sprintf("user:%d:bookmarks", userID) }

// SetReaction moves the user into the liker or disliker set of an
// item, removing them from the opposite set first so membership in
// both is impossible. It reports which memberships actually changed.
func (r *ReactionRepo) SetReaction(ctx context.Context, hash string, userID int64, like bool) (added, removedOpposite bool, err error) {
	target, opposite := likersKey(hash), dislikersKey(hash)
	if !like {
		target, opposite = opposite, target
	}
	removed, err := r.RDB.SRem(ctx, opposite, userID).Result()
	if err != nil {
		return false, false, err
	}
	inserted, err := r.RDB.SAdd(ctx, target, userID).Result()
	if err != nil {
		return false, removed > 0, err
	}
	return inserted > 0, removed > 0, nil
}

// Bookmark adds an item to the user's bookmark set (idempotent).
func (r *ReactionRepo) Bookmark(ctx context.Context, userID int64, hash string) error {
	return r.RDB.SAdd(ctx, bookmarksKey(userID), hash).Err()
}

// Unbookmark removes an item from the user's bookmark set.
func (r *ReactionRepo) Unbookmark(ctx context.Context, userID int64, hash string) error {
	return r.RDB.SRem(ctx, bookmarksKey(userID), hash).Err()
}

// Bookmarks lists the user's bookmarked item hashes.
func (r *ReactionRepo) Bookmarks(ctx context.Context, userID int64) ([]string, error) {
	return r.RDB.SMembers(ctx, bookmarksKey(userID)).Result()
}
