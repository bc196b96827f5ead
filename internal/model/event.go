package model

// EventKind distinguishes the two inbound paths from the chat
// transport: typed commands and button callbacks.
type EventKind string

const (
    EventCommand  EventKind = "command"
    EventCallback EventKind = "callback"
)

// Event is the single inbound envelope the dispatcher consumes.  Both
// command and callback deliveries are normalized into it by the
// webhook layer, so downstream code never branches on transport
// message shapes.
//
// Name carries the command or callback token ("player", "next",
// "like", ...); Arg carries its optional argument (an item hash, a
// category name, a referrer id).  ChatID/MessageID address the
// interactive message a callback originated from.
type Event struct {
    Kind      EventKind `json:"kind"`
    UserID    int64     `json:"user_id"`
    UserName  string    `json:"user_name,omitempty"`
    ChatID    int64     `json:"chat_id"`
    MessageID int       `json:"message_id,omitempty"`
    Name      string    `json:"name"`
    Arg       string    `json:"arg,omitempty"`
}
