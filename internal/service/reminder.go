package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kavyan/clipvault/internal/model"
	q "github.com/kavyan/clipvault/internal/queue"
)

// ReminderUserStore lists users approaching expiry and flags them once
// a reminder has been queued.
type ReminderUserStore interface {
	ExpiringBetween(ctx context.Context, from, to time.Time) ([]model.User, error)
	MarkReminderSent(ctx context.Context, id int64) error
}

// ReminderSweep periodically queues a notification for users whose
// access ends within the look-ahead window. It is a separate scheduled
// task on purpose: the access verdict itself never depends on it
// (lazy expiry on read handles correctness), the sweep only buys
// proactive "renew soon" messages.
type ReminderSweep struct {
	users     ReminderUserStore
	publisher Publisher
	window    time.Duration
	every     time.Duration
	now       func() time.Time
}

func NewReminderSweep(users ReminderUserStore, publisher Publisher, window, every time.Duration, now func() time.Time) *ReminderSweep {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ReminderSweep{users: users, publisher: publisher, window: window, every: every, now: now}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *ReminderSweep) Run(ctx context.Context) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("reminder: sweep failed: %v", err)
			}
		}
	}
}

// Sweep performs one pass: find unreminded users expiring inside the
// window, publish a reminder for each, and flag them. The flag is
// written after a successful publish so a broker outage retries on the
// next pass instead of dropping the reminder.
func (s *ReminderSweep) Sweep(ctx context.Context) error {
	now := s.now()
	users, err := s.users.ExpiringBetween(ctx, now, now.Add(s.window))
	if err != nil {
		return err
	}
	for _, u := range users {
		exp := latestExpiry(u)
		if exp == nil {
			continue
		}
		err := s.publisher.Publish(ctx, q.Notification{
			Kind:      q.KindExpiryReminder,
			UserID:    u.ID,
			Text:      fmt.Sprintf("Your access ends %s. Renew, watch an ad, or invite a friend to keep going.", exp.UTC().Format(time.RFC3339)),
			ExpiresAt: exp.UTC().Format(time.RFC3339),
		})
		if err != nil {
			log.Printf("reminder: publish for user %d failed: %v", u.ID, err)
			continue
		}
		if err := s.users.MarkReminderSent(ctx, u.ID); err != nil {
			log.Printf("reminder: flag user %d failed: %v", u.ID, err)
		}
	}
	return nil
}

func latestExpiry(u model.User) *time.Time {
	var best *time.Time
	for _, t := range []*time.Time{u.PremiumExpiry, u.TokenExpiry} {
		if t != nil && (best == nil || t.After(*best)) {
			best = t
		}
	}
	return best
}
