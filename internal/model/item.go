package model

import "time"

// CatalogItem represents a row in the `catalog_items` table.  The
// content hash is the stable identity of the clip; the delivery handle
// is the transport-level reference and may be rotated without changing
// identity.  Like/dislike counters mirror the cardinality of the
// per-item reaction sets kept in Redis.
//
// Fields:
//  ContentHash  – catalog_items.content_hash, stable primary key.
//  Handle       – catalog_items.handle, current delivery reference.
//  Category     – catalog_items.category, browse category.
//  LikeCount    – catalog_items.like_count.
//  DislikeCount – catalog_items.dislike_count.
//  CreatedAt    – catalog_items.created_at.
type CatalogItem struct {
    ContentHash  string    // catalog_items.content_hash
    Handle       string    // catalog_items.handle
    Category     string    // catalog_items.category
    LikeCount    int       // catalog_items.like_count
    DislikeCount int       // catalog_items.dislike_count
    CreatedAt    time.Time // catalog_items.created_at
}
