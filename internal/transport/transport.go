// Package transport defines the boundary to the external chat layer.
// The engine never talks to a chat API directly; it renders player
// views through this interface and the deployment wires in a concrete
// bridge.
package transport

import (
	"context"

	"github.com/kavyan/clipvault/internal/model"
)

// PlayerView is everything the chat layer needs to render one "now
// playing" message: the media handle, vote summary and countdown hint.
type PlayerView struct {
	Item      model.CatalogItem
	LikePct   int    // floored like percentage (50 when unvoted)
	Category  string // active category filter
	ExpiresIn string // human-readable countdown, e.g. "10m"
}

// Message addresses one interactive message in a chat.
type Message struct {
	ChatID    int64
	MessageID int
}

// Transport is the outbound capability consumed from the chat layer.
// SendPlayer posts a fresh player message; EditPlayer swaps the
// content of an existing one in place; Retract removes a message;
// Notify sends a plain text to a user.
type Transport interface {
	SendPlayer(ctx context.Context, chatID int64, view PlayerView) (Message, error)
	EditPlayer(ctx context.Context, msg Message, view PlayerView) error
	Retract(ctx context.Context, msg Message) error
	Notify(ctx context.Context, userID int64, text string) error
}
