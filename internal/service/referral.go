package service

import (
	"context"
	"fmt"
	"log"
	"time"

	q "github.com/kavyan/clipvault/internal/queue"
)

// ReferralUserStore adds the referral counter to the basic user
// operations.
type ReferralUserStore interface {
	UserStore
	IncrementReferrals(ctx context.Context, id int64) error
}

// Referral credits both sides of a confirmed referral with token
// access. A bonus is paid at most once per referee, guarded by the
// referee's lifetime delivery count: anyone who has already received
// content is not a newcomer, whichever link they clicked.
type Referral struct {
	users         ReferralUserStore
	ledger        *AccessLedger
	publisher     Publisher
	refereeGrant  time.Duration
	referrerGrant time.Duration
}

func NewReferral(users ReferralUserStore, ledger *AccessLedger, publisher Publisher, refereeGrant, referrerGrant time.Duration) *Referral {
	return &Referral{
		users:         users,
		ledger:        ledger,
		publisher:     publisher,
		refereeGrant:  refereeGrant,
		referrerGrant: referrerGrant,
	}
}

// Grant pays out a referral: the referee receives the newcomer grant,
// the referrer the larger one plus a referral credit. Notification
// events are published best-effort; the grants stand even if the
// broker is down.
func (r *Referral) Grant(ctx context.Context, referrerID, refereeID int64) error {
	if referrerID == refereeID {
		return ErrSelfReferral
	}
	referee, err := r.users.Get(ctx, refereeID)
	if err != nil {
		return err
	}
	if referee.LifetimeCount > 0 {
		return ErrAlreadyRedeemed
	}

	refereeExp, err := r.ledger.GrantTokenAccess(ctx, refereeID, r.refereeGrant)
	if err != nil {
		return err
	}
	referrerExp, err := r.ledger.GrantTokenAccess(ctx, referrerID, r.referrerGrant)
	if err != nil {
		return err
	}
	if err := r.users.IncrementReferrals(ctx, referrerID); err != nil {
		return err
	}

	r.notify(ctx, refereeID, refereeExp,
		fmt.Sprintf("Welcome! A friend's invite unlocked %s of access.", r.refereeGrant))
	r.notify(ctx, referrerID, referrerExp,
		fmt.Sprintf("Someone joined with your link: +%s of access.", r.referrerGrant))
	return nil
}

func (r *Referral) notify(ctx context.Context, userID int64, exp time.Time, text string) {
	err := r.publisher.Publish(ctx, q.Notification{
		Kind:      q.KindReferralGranted,
		UserID:    userID,
		Text:      text,
		ExpiresAt: exp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("referral: notify user %d failed: %v", userID, err)
	}
}
