package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// HistoryRepo keeps per-user view state in Redis: the unordered seen
// set used for dedup and the short ordered trail used for
// back-navigation. Set adds and list pushes are atomic on the server,
// so concurrent taps from the same user cannot lose updates.
type HistoryRepo struct {
	RDB      *redis.Client
	TrailLen int64 // entries retained in the recent trail (>= 2)
}

func NewHistoryRepo(rdb *redis.Client, trailLen int) *HistoryRepo {
	if trailLen < 2 {
		trailLen = 2
	}
	return &HistoryRepo{RDB: rdb, TrailLen: int64(trailLen)}
}

func seenKey(userID int64) string  { return fmt.Sprintf("user:%d:seen", userID) }
func trailKey(userID int64) string { return fmt.Sprintf("user:%d:trail", userID) }

// SeenFilter reports, for each hash, whether the user has seen it.
func (r *HistoryRepo) SeenFilter(ctx context.Context, userID int64, hashes []string) (map[string]bool, error) {
	if len(hashes) == 0 {
		return map[string]bool{}, nil
	}
	members := make([]interface{}, len(hashes))
	for i, h := range hashes {
		members[i] = h
	}
	flags, err := r.RDB.SMIsMember(ctx, seenKey(userID), members...).Result()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(hashes))
	for i, h := range hashes {
		seen[h] = flags[i]
	}
	return seen, nil
}

// MarkSeen adds a hash to the user's seen set (idempotent).
func (r *HistoryRepo) MarkSeen(ctx context.Context, userID int64, hash string) error {
	return r.RDB.SAdd(ctx, seenKey(userID), hash).Err()
}

// PushTrail prepends a hash to the bounded recent trail.
func (r *HistoryRepo) PushTrail(ctx context.Context, userID int64, hash string) error {
	pipe := r.RDB.TxPipeline()
	pipe.LPush(ctx, trailKey(userID), hash)
	pipe.LTrim(ctx, trailKey(userID), 0, r.TrailLen-1)
	_, err := pipe.Exec(ctx)
	return err
}

// Trail returns up to n most recent entries, newest first.
func (r *HistoryRepo) Trail(ctx context.Context, userID int64, n int64) ([]string, error) {
	return r.RDB.LRange(ctx, trailKey(userID), 0, n-1).Result()
}

// ClearSeen empties the seen set. The trail is deliberately left
// intact so back-navigation keeps working right after a reset.
func (r *HistoryRepo) ClearSeen(ctx context.Context, userID int64) error {
	return r.RDB.Del(ctx, seenKey(userID)).Err()
}

// Purge removes all view state for a user. Administrative removal only.
func (r *HistoryRepo) Purge(ctx context.Context, userID int64) error {
	return r.RDB.Del(ctx, seenKey(userID), trailKey(userID)).Err()
}
