package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavyan/clipvault/internal/model"
	"github.com/kavyan/clipvault/internal/player"
	q "github.com/kavyan/clipvault/internal/queue"
	"github.com/kavyan/clipvault/internal/repository"
	"github.com/kavyan/clipvault/internal/service"
	"github.com/kavyan/clipvault/internal/transport"
)

var now0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// ----- stubs -----

type dUsers struct {
	users map[int64]*model.User
}

func (f *dUsers) Get(_ context.Context, id int64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (f *dUsers) Ensure(_ context.Context, id int64, name string) (model.User, error) {
	if u, ok := f.users[id]; ok {
		return *u, nil
	}
	u := &model.User{ID: id, Name: name, Category: model.CategoryAll}
	f.users[id] = u
	return *u, nil
}

func (f *dUsers) SetPremiumExpiry(_ context.Context, id int64, exp *time.Time) error {
	f.users[id].PremiumExpiry = exp
	return nil
}

func (f *dUsers) SetTokenExpiry(_ context.Context, id int64, exp time.Time) error {
	f.users[id].TokenExpiry = &exp
	return nil
}

func (f *dUsers) SetVerifiedUntil(_ context.Context, id int64, until time.Time) error {
	f.users[id].VerifiedUntil = &until
	return nil
}

func (f *dUsers) SetCategory(_ context.Context, id int64, category string) error {
	f.users[id].Category = category
	return nil
}

func (f *dUsers) Block(_ context.Context, id int64) error {
	f.users[id].Blocked = true
	return nil
}

func (f *dUsers) Unblock(_ context.Context, id int64) error {
	u := f.users[id]
	u.Blocked = false
	u.BlockedUntil = nil
	return nil
}

func (f *dUsers) SetBlockedUntil(_ context.Context, id int64, until *time.Time) error {
	f.users[id].BlockedUntil = until
	return nil
}

func (f *dUsers) ResetDailyCount(_ context.Context, id int64, date string) error {
	u := f.users[id]
	u.CountToday = 1
	u.LastCountDate = date
	u.LifetimeCount++
	return nil
}

func (f *dUsers) BumpDailyCount(_ context.Context, id int64) error {
	u := f.users[id]
	u.CountToday++
	u.LifetimeCount++
	return nil
}

func (f *dUsers) IncrementReferrals(_ context.Context, id int64) error {
	f.users[id].ReferralCount++
	return nil
}

type dCatalog struct {
	items []model.CatalogItem
}

func (f *dCatalog) SampleWindow(_ context.Context, category string, limit int) ([]model.CatalogItem, error) {
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

func (f *dCatalog) RandomAny(_ context.Context) (model.CatalogItem, error) {
	if len(f.items) == 0 {
		return model.CatalogItem{}, repository.ErrNotFound
	}
	return f.items[0], nil
}

func (f *dCatalog) Get(_ context.Context, hash string) (model.CatalogItem, error) {
	for _, it := range f.items {
		if it.ContentHash == hash {
			return it, nil
		}
	}
	return model.CatalogItem{}, repository.ErrNotFound
}

func (f *dCatalog) AdjustCounts(_ context.Context, hash string, dLike, dDislike int) error {
	for i := range f.items {
		if f.items[i].ContentHash == hash {
			f.items[i].LikeCount += dLike
			f.items[i].DislikeCount += dDislike
		}
	}
	return nil
}

type dHistory struct {
	seen  map[int64]map[string]bool
	trail map[int64][]string
}

func (f *dHistory) SeenFilter(_ context.Context, userID int64, hashes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		out[h] = f.seen[userID][h]
	}
	return out, nil
}

func (f *dHistory) MarkSeen(_ context.Context, userID int64, hash string) error {
	if f.seen[userID] == nil {
		f.seen[userID] = make(map[string]bool)
	}
	f.seen[userID][hash] = true
	return nil
}

func (f *dHistory) PushTrail(_ context.Context, userID int64, hash string) error {
	f.trail[userID] = append([]string{hash}, f.trail[userID]...)
	return nil
}

func (f *dHistory) Trail(_ context.Context, userID int64, n int64) ([]string, error) {
	t := f.trail[userID]
	if int64(len(t)) > n {
		t = t[:n]
	}
	return t, nil
}

func (f *dHistory) ClearSeen(_ context.Context, userID int64) error {
	delete(f.seen, userID)
	return nil
}

type dReactions struct {
	likers    map[string]map[int64]bool
	dislikers map[string]map[int64]bool
	bookmarks map[int64][]string
}

func (f *dReactions) SetReaction(_ context.Context, hash string, userID int64, like bool) (bool, bool, error) {
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

func (f *dReactions) Bookmark(_ context.Context, userID int64, hash string) error {
	f.bookmarks[userID] = append(f.bookmarks[userID], hash)
	return nil
}

func (f *dReactions) Unbookmark(_ context.Context, _ int64, _ string) error { return nil }

func (f *dReactions) Bookmarks(_ context.Context, userID int64) ([]string, error) {
	return f.bookmarks[userID], nil
}

type dPublisher struct {
	published []q.Notification
}

func (f *dPublisher) Publish(_ context.Context, n q.Notification) error {
	f.published = append(f.published, n)
	return nil
}

type dBridge struct {
	sends    int
	edits    int
	notifies []string
	nextID   int
}

func (b *dBridge) SendPlayer(_ context.Context, chatID int64, _ transport.PlayerView) (transport.Message, error) {
	b.sends++
	b.nextID++
	return transport.Message{ChatID: chatID, MessageID: b.nextID}, nil
}

func (b *dBridge) EditPlayer(_ context.Context, _ transport.Message, _ transport.PlayerView) error {
	b.edits++
	return nil
}

func (b *dBridge) Retract(_ context.Context, _ transport.Message) error { return nil }

func (b *dBridge) Notify(_ context.Context, _ int64, text string) error {
	b.notifies = append(b.notifies, text)
	return nil
}

// ----- fixture -----

type dispFixture struct {
	d       *Dispatcher
	users   *dUsers
	catalog *dCatalog
	bridge  *dBridge
	pub     *dPublisher
}

func newDispatchFixture(users *dUsers, items ...model.CatalogItem) *dispFixture {
	catalog := &dCatalog{items: items}
	history := &dHistory{seen: make(map[int64]map[string]bool), trail: make(map[int64][]string)}
	bridge := &dBridge{}
	pub := &dPublisher{}
	now := func() time.Time { return now0 }

	ledger := service.NewAccessLedger(users, time.Hour, now)
	quota := service.NewQuota(users, service.Ceilings{Free: 5, Verified: 20, Premium: 50}, time.UTC, now)
	selector := service.NewSelector(catalog, history, 500)
	reactions := service.NewReactions(&dReactions{
		likers:    make(map[string]map[int64]bool),
		dislikers: make(map[string]map[int64]bool),
		bookmarks: make(map[int64][]string),
	}, catalog)
	referral := service.NewReferral(users, ledger, pub, 30*time.Minute, time.Hour)
	manager := player.NewManager(player.RealClock{}, 10*time.Minute, bridge, users, ledger, quota, selector)

	d := NewDispatcher(users, manager, selector, reactions, referral, ledger, quota, catalog, bridge, 12*time.Hour)
	return &dispFixture{d: d, users: users, catalog: catalog, bridge: bridge, pub: pub}
}

func cmd(userID int64, name, arg string) model.Event {
	return model.Event{Kind: model.EventCommand, UserID: userID, UserName: "u", ChatID: userID, Name: name, Arg: arg}
}

func withToken(id int64) *dUsers {
	exp := now0.Add(time.Hour)
	return &dUsers{users: map[int64]*model.User{
		id: {ID: id, Category: model.CategoryAll, TokenExpiry: &exp},
	}}
}

// ----- tests -----

func TestDispatchUnknownCommand(t *testing.T) {
	f := newDispatchFixture(&dUsers{users: map[int64]*model.User{}})

	require.NoError(t, f.d.Dispatch(context.Background(), cmd(1, "frobnicate", "")))
	require.Len(t, f.bridge.notifies, 1)
	assert.Contains(t, f.bridge.notifies[0], "Unknown command")
}

func TestDispatchStartWithReferral(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(&dUsers{users: map[int64]*model.User{
		10: {ID: 10, Category: model.CategoryAll},
	}})

	require.NoError(t, f.d.Dispatch(ctx, cmd(2, "start", "ref_10")))

	referrer := f.users.users[10]
	assert.Equal(t, 1, referrer.ReferralCount)
	assert.NotNil(t, referrer.TokenExpiry)
	assert.NotNil(t, f.users.users[2].TokenExpiry)
	assert.Len(t, f.pub.published, 2)
	require.Len(t, f.bridge.notifies, 1)
	assert.Contains(t, f.bridge.notifies[0], "unlocked")
}

func TestDispatchStartSelfReferralDegrades(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(&dUsers{users: map[int64]*model.User{}})

	require.NoError(t, f.d.Dispatch(ctx, cmd(2, "start", "ref_2")))

	assert.Nil(t, f.users.users[2].TokenExpiry, "no payout on a self referral")
	require.Len(t, f.bridge.notifies, 1)
	assert.Contains(t, f.bridge.notifies[0], "Welcome")
}

func TestDispatchPlayerWithoutAccess(t *testing.T) {
	f := newDispatchFixture(&dUsers{users: map[int64]*model.User{}},
		model.CatalogItem{ContentHash: "a", Handle: "h", Category: model.CategoryAll})

	require.NoError(t, f.d.Dispatch(context.Background(), cmd(1, "player", "")))
	assert.Zero(t, f.bridge.sends)
	require.Len(t, f.bridge.notifies, 1)
	assert.Contains(t, f.bridge.notifies[0], "access")
}

func TestDispatchPlayerThenLike(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(withToken(1),
		model.CatalogItem{ContentHash: "a", Handle: "h", Category: model.CategoryAll})

	require.NoError(t, f.d.Dispatch(ctx, cmd(1, "player", "")))
	assert.Equal(t, 1, f.bridge.sends)

	require.NoError(t, f.d.Dispatch(ctx, cmd(1, "like", "")))
	assert.Equal(t, 1, f.catalog.items[0].LikeCount)
	assert.Equal(t, 1, f.bridge.edits, "the open player repaints with the new percentage")
}

func TestDispatchLikeWithoutPlayer(t *testing.T) {
	f := newDispatchFixture(withToken(1))

	require.NoError(t, f.d.Dispatch(context.Background(), cmd(1, "like", "")))
	require.Len(t, f.bridge.notifies, 1)
	assert.Contains(t, f.bridge.notifies[0], "Open the player")
}

func TestDispatchCategory(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(withToken(1))

	require.NoError(t, f.d.Dispatch(ctx, cmd(1, "category", "music")))
	assert.Equal(t, "music", f.users.users[1].Category)

	// An empty argument falls back to the catch-all filter.
	require.NoError(t, f.d.Dispatch(ctx, cmd(1, "category", "")))
	assert.Equal(t, model.CategoryAll, f.users.users[1].Category)
}

func TestDispatchStatus(t *testing.T) {
	f := newDispatchFixture(withToken(1))

	require.NoError(t, f.d.Dispatch(context.Background(), cmd(1, "status", "")))
	require.Len(t, f.bridge.notifies, 1)
	assert.Contains(t, f.bridge.notifies[0], "Tier: FREE")
	assert.Contains(t, f.bridge.notifies[0], "Access until")
}

func TestDispatchWatchAd(t *testing.T) {
	f := newDispatchFixture(&dUsers{users: map[int64]*model.User{
		1: {ID: 1, Category: model.CategoryAll},
	}})

	require.NoError(t, f.d.Dispatch(context.Background(), cmd(1, "watchad", "")))
	require.NotNil(t, f.users.users[1].TokenExpiry)
	assert.Equal(t, now0.Add(12*time.Hour), *f.users.users[1].TokenExpiry)
}

func TestDispatchBlockedUser(t *testing.T) {
	ctx := context.Background()
	exp := now0.Add(time.Hour)
	f := newDispatchFixture(&dUsers{users: map[int64]*model.User{
		1: {ID: 1, Category: model.CategoryAll, TokenExpiry: &exp, Blocked: true},
	}}, model.CatalogItem{ContentHash: "a", Handle: "h", Category: model.CategoryAll})

	require.NoError(t, f.d.Dispatch(ctx, cmd(1, "player", "")))
	assert.Zero(t, f.bridge.sends, "no delivery for a blocked user")
	require.Len(t, f.bridge.notifies, 1)
	assert.Contains(t, f.bridge.notifies[0], "blocked")

	// The block gates every entry point, not just delivery.
	require.NoError(t, f.d.Dispatch(ctx, cmd(1, "start", "")))
	require.Len(t, f.bridge.notifies, 2)
	assert.Contains(t, f.bridge.notifies[1], "blocked")
}

func TestDispatchTemporaryBlockLapses(t *testing.T) {
	ctx := context.Background()
	exp := now0.Add(time.Hour)
	past := now0.Add(-time.Minute)
	f := newDispatchFixture(&dUsers{users: map[int64]*model.User{
		1: {ID: 1, Category: model.CategoryAll, TokenExpiry: &exp, BlockedUntil: &past},
	}}, model.CatalogItem{ContentHash: "a", Handle: "h", Category: model.CategoryAll})

	require.NoError(t, f.d.Dispatch(ctx, cmd(1, "player", "")))
	assert.Equal(t, 1, f.bridge.sends, "a lapsed temporary block no longer bars the user")
	assert.Nil(t, f.users.users[1].BlockedUntil)
}
