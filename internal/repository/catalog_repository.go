package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/kavyan/clipvault/internal/model"
)

const itemColumns = "content_hash,handle,category,like_count,dislike_count,created_at"

// CatalogRepo provides access to the 'catalog_items' table.
type CatalogRepo struct{ DB *sql.DB }

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{DB: db} }

// Add registers a new catalog item. The content hash is the primary
// key; re-registering a known hash returns ErrDuplicate.
func (r *CatalogRepo) Add(ctx context.Context, item model.CatalogItem) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO catalog_items (content_hash, handle, category) VALUES (?,?,?)",
		item.ContentHash, item.Handle, item.Category)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Get fetches an item by content hash.
func (r *CatalogRepo) Get(ctx context.Context, hash string) (model.CatalogItem, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM catalog_items WHERE content_hash=? LIMIT 1", hash)
	return scanItem(row)
}

// UpdateHandle rotates the delivery handle of an item without changing
// its identity.
func (r *CatalogRepo) UpdateHandle(ctx context.Context, hash, handle string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE catalog_items SET handle=? WHERE content_hash=?", handle, hash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SampleWindow fetches up to limit items of a category in random order.
// ORDER BY RAND() shuffles the whole table before the LIMIT applies, so
// the window is uniform and carries no insertion-order bias.  The "all"
// category disables the filter.
func (r *CatalogRepo) SampleWindow(ctx context.Context, category string, limit int) ([]model.CatalogItem, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category == "" || category == model.CategoryAll {
		rows, err = r.DB.QueryContext(ctx,
			"SELECT "+itemColumns+" FROM catalog_items ORDER BY RAND() LIMIT ?", limit)
	} else {
		rows, err = r.DB.QueryContext(ctx,
			"SELECT "+itemColumns+" FROM catalog_items WHERE category=? ORDER BY RAND() LIMIT ?",
			category, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.CatalogItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// RandomAny returns one uniformly random item over the entire
// unfiltered catalog. Used once a user has seen everything.
func (r *CatalogRepo) RandomAny(ctx context.Context) (model.CatalogItem, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM catalog_items ORDER BY RAND() LIMIT 1")
	return scanItem(row)
}

// AdjustCounts applies like/dislike counter deltas atomically.  The
// deltas come from actual Redis set-membership changes, so counters
// track set cardinality; GREATEST guards against drift below zero.
func (r *CatalogRepo) AdjustCounts(ctx context.Context, hash string, dLike, dDislike int) error {
	if dLike == 0 && dDislike == 0 {
		return nil
	}
	_, err := r.DB.ExecContext(ctx,
		`UPDATE catalog_items
		 SET like_count = GREATEST(0, like_count + ?),
		     dislike_count = GREATEST(0, dislike_count + ?)
		 WHERE content_hash=?`,
		dLike, dDislike, hash)
	return err
}

// Count returns the total number of catalog items.
func (r *CatalogRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_items").Scan(&n)
	return n, err
}

func scanItem(row rowScanner) (model.CatalogItem, error) {
	var it model.CatalogItem
	err := row.Scan(&it.ContentHash, &it.Handle, &it.Category,
		&it.LikeCount, &it.DislikeCount, &it.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CatalogItem{}, ErrNotFound
	}
	if err != nil {
		return model.CatalogItem{}, err
	}
	return it, nil
}
