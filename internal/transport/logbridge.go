package transport

import (
	"context"
	"log"
	"sync/atomic"
)

// LogBridge is a stand-in Transport for development and smoke tests:
// every outbound call becomes a log line and message ids are handed
// out from a counter. It never fails.
type LogBridge struct {
	nextID int64
}

func NewLogBridge() *LogBridge { return &LogBridge{} }

func (b *LogBridge) SendPlayer(_ context.Context, chatID int64, view PlayerView) (Message, error) {
	id := int(atomic.AddInt64(&b.nextID, 1))
	log.Printf("transport: send player chat=%d msg=%d item=%s liked=%d%% category=%s expires=%s",
		chatID, id, view.Item.ContentHash, view.LikePct, view.Category, view.ExpiresIn)
	return Message{ChatID: chatID, MessageID: id}, nil
}

func (b *LogBridge) EditPlayer(_ context.Context, msg Message, view PlayerView) error {
	log.Printf("transport: edit player chat=%d msg=%d item=%s liked=%d%%",
		msg.ChatID, msg.MessageID, view.Item.ContentHash, view.LikePct)
	return nil
}

func (b *LogBridge) Retract(_ context.Context, msg Message) error {
	log.Printf("transport: retract chat=%d msg=%d", msg.ChatID, msg.MessageID)
	return nil
}

func (b *LogBridge) Notify(_ context.Context, userID int64, text string) error {
	log.Printf("transport: notify user=%d text=%q", userID, text)
	return nil
}
