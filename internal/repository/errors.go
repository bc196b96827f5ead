// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let higher layers such as the
// dispatcher distinguish between failure scenarios without inspecting
// driver-specific errors.
package repository

import "errors"

// ErrNotFound is returned when a requested user or catalog item does
// not exist. Handlers translate this into a user-facing "not found"
// reply rather than a failure.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing
// row, e.g. registering a catalog item whose content hash is already
// known.
var ErrDuplicate = errors.New("duplicate")
