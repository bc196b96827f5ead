package service

import (
	"context"
	"errors"
	"math/rand"

	"github.com/kavyan/clipvault/internal/model"
	"github.com/kavyan/clipvault/internal/repository"
)

// CatalogStore is the slice of the catalog repository the selector
// needs.
type CatalogStore interface {
	SampleWindow(ctx context.Context, category string, limit int) ([]model.CatalogItem, error)
	RandomAny(ctx context.Context) (model.CatalogItem, error)
	Get(ctx context.Context, hash string) (model.CatalogItem, error)
}

// HistoryStore is the slice of the history repository the selector
// needs.
type HistoryStore interface {
	SeenFilter(ctx context.Context, userID int64, hashes []string) (map[string]bool, error)
	MarkSeen(ctx context.Context, userID int64, hash string) error
	PushTrail(ctx context.Context, userID int64, hash string) error
	Trail(ctx context.Context, userID int64, n int64) ([]string, error)
	ClearSeen(ctx context.Context, userID int64) error
}

// Selector picks the next catalog item a user has not seen yet,
// falling back to uniform reuse once the user has exhausted the
// catalog. Dedup state is scoped per user, never per (user, category):
// switching categories does not forget what was already shown.
type Selector struct {
	catalog CatalogStore
	history HistoryStore
	window  int
	intn    func(n int) int // uniform [0,n); swappable in tests
}

func NewSelector(catalog CatalogStore, history HistoryStore, window int) *Selector {
	if window < 1 {
		window = 1
	}
	return &Selector{catalog: catalog, history: history, window: window, intn: rand.Intn}
}

// Pick chooses the next item for the user without recording anything.
// Bookkeeping is deferred to MarkDelivered so that a failed transport
// send never burns an unseen item.
//
// Unseen candidates inside a random window are preferred; when the
// whole window is already seen the user gets a uniform pick over the
// entire unfiltered catalog rather than an error, since supply is
// expected to outlast one sitting.
func (s *Selector) Pick(ctx context.Context, userID int64, category string) (model.CatalogItem, error) {
	window, err := s.catalog.SampleWindow(ctx, category, s.window)
	if err != nil {
		return model.CatalogItem{}, err
	}
	if len(window) > 0 {
		hashes := make([]string, len(window))
		for i, it := range window {
			hashes[i] = it.ContentHash
		}
		seen, err := s.history.SeenFilter(ctx, userID, hashes)
		if err != nil {
			return model.CatalogItem{}, err
		}
		var unseen []model.CatalogItem
		for _, it := range window {
			if !seen[it.ContentHash] {
				unseen = append(unseen, it)
			}
		}
		if len(unseen) > 0 {
			return unseen[s.intn(len(unseen))], nil
		}
	}
	// Everything seen (or the category is empty): uniform reuse over
	// the whole catalog.
	item, err := s.catalog.RandomAny(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CatalogItem{}, ErrNoContent
	}
	if err != nil {
		return model.CatalogItem{}, err
	}
	return item, nil
}

// MarkDelivered records a confirmed delivery: idempotent seen-set
// insert plus a push onto the bounded recent trail.
func (s *Selector) MarkDelivered(ctx context.Context, userID int64, item model.CatalogItem) error {
	if err := s.history.MarkSeen(ctx, userID, item.ContentHash); err != nil {
		return err
	}
	return s.history.PushTrail(ctx, userID, item.ContentHash)
}

// Previous returns the second-most-recent trail entry — the most
// recent one is what the user is currently looking at. A trail shorter
// than two entries yields ErrNoPrevious.
func (s *Selector) Previous(ctx context.Context, userID int64) (model.CatalogItem, error) {
	trail, err := s.history.Trail(ctx, userID, 2)
	if err != nil {
		return model.CatalogItem{}, err
	}
	if len(trail) < 2 {
		return model.CatalogItem{}, ErrNoPrevious
	}
	item, err := s.catalog.Get(ctx, trail[1])
	if errors.Is(err, repository.ErrNotFound) {
		// The item was purged from the catalog since it was shown.
		return model.CatalogItem{}, ErrNoPrevious
	}
	return item, err
}

// Reset clears the seen set so the dedup cycle starts over. The trail
// survives: back-navigation must keep working right after a reset.
func (s *Selector) Reset(ctx context.Context, userID int64) error {
	return s.history.ClearSeen(ctx, userID)
}
