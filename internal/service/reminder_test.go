package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavyan/clipvault/internal/model"
	q "github.com/kavyan/clipvault/internal/queue"
)

func TestReminderSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("reminds users inside the window once", func(t *testing.T) {
		users := newFakeUsers(
			model.User{ID: 1, PremiumExpiry: ptr(t0.Add(6 * time.Hour))},  // inside
			model.User{ID: 2, PremiumExpiry: ptr(t0.Add(48 * time.Hour))}, // outside
			model.User{ID: 3}, // no grant
		)
		pub := &fakePublisher{}
		s := NewReminderSweep(users, pub, 12*time.Hour, 10*time.Minute, fixedNow(t0))

		require.NoError(t, s.Sweep(ctx))
		require.Len(t, pub.published, 1)
		assert.Equal(t, q.KindExpiryReminder, pub.published[0].Kind)
		assert.Equal(t, int64(1), pub.published[0].UserID)

		// A second pass must not repeat the reminder.
		require.NoError(t, s.Sweep(ctx))
		assert.Len(t, pub.published, 1)
	})

	t.Run("publish failure retries on the next pass", func(t *testing.T) {
		users := newFakeUsers(model.User{ID: 1, TokenExpiry: ptr(t0.Add(time.Hour))})
		pub := &fakePublisher{failWith: errors.New("broker down")}
		s := NewReminderSweep(users, pub, 12*time.Hour, 10*time.Minute, fixedNow(t0))

		require.NoError(t, s.Sweep(ctx))
		assert.Empty(t, pub.published)

		pub.failWith = nil
		require.NoError(t, s.Sweep(ctx))
		assert.Len(t, pub.published, 1, "unflagged user is picked up again")
	})
}
