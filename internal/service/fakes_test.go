package service

import (
	"context"
	"time"

	"github.com/kavyan/clipvault/internal/model"
	q "github.com/kavyan/clipvault/internal/queue"
	"github.com/kavyan/clipvault/internal/repository"
)

// In-memory store fakes. They mirror the repository semantics closely
// enough for the rules under test: atomic counter bumps, idempotent set
// membership, bounded trails.

type fakeUsers struct {
	users    map[int64]*model.User
	reminded map[int64]bool
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*model.User), reminded: make(map[int64]bool)}
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) Get(_ context.Context, id int64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (f *fakeUsers) Ensure(_ context.Context, id int64, name string) (model.User, error) {
	if u, ok := f.users[id]; ok {
		return *u, nil
	}
	u := &model.User{ID: id, Name: name, Category: model.CategoryAll}
	f.users[id] = u
	return *u, nil
}

func (f *fakeUsers) SetPremiumExpiry(_ context.Context, id int64, exp *time.Time) error {
	f.users[id].PremiumExpiry = exp
	f.reminded[id] = false
	return nil
}

func (f *fakeUsers) SetTokenExpiry(_ context.Context, id int64, exp time.Time) error {
	f.users[id].TokenExpiry = &exp
	return nil
}

func (f *fakeUsers) SetVerifiedUntil(_ context.Context, id int64, until time.Time) error {
	f.users[id].VerifiedUntil = &until
	return nil
}

func (f *fakeUsers) ResetDailyCount(_ context.Context, id int64, date string) error {
	u := f.users[id]
	u.CountToday = 1
	u.LastCountDate = date
	u.LifetimeCount++
	return nil
}

func (f *fakeUsers) BumpDailyCount(_ context.Context, id int64) error {
	u := f.users[id]
	u.CountToday++
	u.LifetimeCount++
	return nil
}

func (f *fakeUsers) Block(_ context.Context, id int64) error {
	f.users[id].Blocked = true
	return nil
}

func (f *fakeUsers) Unblock(_ context.Context, id int64) error {
	u := f.users[id]
	u.Blocked = false
	u.BlockedUntil = nil
	return nil
}

func (f *fakeUsers) SetBlockedUntil(_ context.Context, id int64, until *time.Time) error {
	f.users[id].BlockedUntil = until
	return nil
}

func (f *fakeUsers) IncrementReferrals(_ context.Context, id int64) error {
	f.users[id].ReferralCount++
	return nil
}

func (f *fakeUsers) ExpiringBetween(_ context.Context, from, to time.Time) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		if f.reminded[u.ID] {
			continue
		}
		for _, t := range []*time.Time{u.PremiumExpiry, u.TokenExpiry} {
			if t != nil && !t.Before(from) && t.Before(to) {
				out = append(out, *u)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeUsers) MarkReminderSent(_ context.Context, id int64) error {
	f.reminded[id] = true
	return nil
}

type fakeCatalog struct {
	items []model.CatalogItem
}

func (f *fakeCatalog) SampleWindow(_ context.Context, category string, limit int) ([]model.CatalogItem, error) {
	var out []model.CatalogItem
	for _, it := range f.items {
		if category != "" && category != model.CategoryAll && it.Category != category {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) RandomAny(_ context.Context) (model.CatalogItem, error) {
	if len(f.items) == 0 {
		return model.CatalogItem{}, repository.ErrNotFound
	}
	return f.items[0], nil
}

func (f *fakeCatalog) Get(_ context.Context, hash string) (model.CatalogItem, error) {
	for _, it := range f.items {
		if it.ContentHash == hash {
			return it, nil
		}
	}
	return model.CatalogItem{}, repository.ErrNotFound
}

func (f *fakeCatalog) AdjustCounts(_ context.Context, hash string, dLike, dDislike int) error {
	for i := range f.items {
		if f.items[i].ContentHash == hash {
			f.items[i].LikeCount += dLike
			f.items[i].DislikeCount += dDislike
		}
	}
	return nil
}

type fakeHistory struct {
	seen  map[int64]map[string]bool
	trail map[int64][]string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{seen: make(map[int64]map[string]bool), trail: make(map[int64][]string)}
}

func (f *fakeHistory) SeenFilter(_ context.Context, userID int64, hashes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		out[h] = f.seen[userID][h]
	}
	return out, nil
}

func (f *fakeHistory) MarkSeen(_ context.Context, userID int64, hash string) error {
	if f.seen[userID] == nil {
		f.seen[userID] = make(map[string]bool)
	}
	f.seen[userID][hash] = true
	return nil
}

func (f *fakeHistory) PushTrail(_ context.Context, userID int64, hash string) error {
	f.trail[userID] = append([]string{hash}, f.trail[userID]...)
	if len(f.trail[userID]) > 10 {
		f.trail[userID] = f.trail[userID][:10]
	}
	return nil
}

func (f *fakeHistory) Trail(_ context.Context, userID int64, n int64) ([]string, error) {
	t := f.trail[userID]
	if int64(len(t)) > n {
		t = t[:n]
	}
	return t, nil
}

func (f *fakeHistory) ClearSeen(_ context.Context, userID int64) error {
	delete(f.seen, userID)
	return nil
}

type fakeReactionStore struct {
	likers    map[string]map[int64]bool
	dislikers map[string]map[int64]bool
	bookmarks map[int64][]string
}

func newFakeReactionStore() *fakeReactionStore {
	return &fakeReactionStore{
		likers:    make(map[string]map[int64]bool),
		dislikers: make(map[string]map[int64]bool),
		bookmarks: make(map[int64][]string),
	}
}

func (f *fakeReactionStore) SetReaction(_ context.Context, hash string, userID int64, like bool) (bool, bool, error) {
	target, opposite := f.likers, f.dislikers
	if !like {
		target, opposite = f.dislikers, f.likers
	}
	removedOpposite := opposite[hash][userID]
	if removedOpposite {
		delete(opposite[hash], userID)
	}
	added := !target[hash][userID]
	if added {
		if target[hash] == nil {
			target[hash] = make(map[int64]bool)
		}
		target[hash][userID] = true
	}
	return added, removedOpposite, nil
}

func (f *fakeReactionStore) Bookmark(_ context.Context, userID int64, hash string) error {
	for _, h := range f.bookmarks[userID] {
		if h == hash {
			return nil
		}
	}
	f.bookmarks[userID] = append(f.bookmarks[userID], hash)
	return nil
}

func (f *fakeReactionStore) Unbookmark(_ context.Context, userID int64, hash string) error {
	out := f.bookmarks[userID][:0]
	for _, h := range f.bookmarks[userID] {
		if h != hash {
			out = append(out, h)
		}
	}
	f.bookmarks[userID] = out
	return nil
}

func (f *fakeReactionStore) Bookmarks(_ context.Context, userID int64) ([]string, error) {
	return f.bookmarks[userID], nil
}

type fakePublisher struct {
	published []q.Notification
	failWith  error
}

func (f *fakePublisher) Publish(_ context.Context, n q.Notification) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.published = append(f.published, n)
	return nil
}

// fixedNow returns a clock pinned to the given instant.
func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr(t time.Time) *time.Time { return &t }
