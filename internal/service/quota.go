package service

import (
	"context"
	"time"

	"github.com/kavyan/clipvault/internal/model"
)

// Ceilings holds the per-tier daily delivery limits. They increase
// monotonically: Free < Verified < Premium.
type Ceilings struct {
	Free     int
	Verified int
	Premium  int
}

// Quota tracks per-user, per-calendar-day consumption. "Today" is
// always computed in one fixed zone (the operator's), never the
// request origin's, so the rollover instant is the same for everyone.
type Quota struct {
	users    UserStore
	ceilings Ceilings
	loc      *time.Location
	now      func() time.Time
}

func NewQuota(users UserStore, ceilings Ceilings, loc *time.Location, now func() time.Time) *Quota {
	if now == nil {
		now = time.Now
	}
	return &Quota{users: users, ceilings: ceilings, loc: loc, now: now}
}

func (q *Quota) today() string {
	return q.now().In(q.loc).Format("2006-01-02")
}

// Ceiling returns the daily limit for a tier.
func (q *Quota) Ceiling(t model.Tier) int {
	switch t {
	case model.TierPremium:
		return q.ceilings.Premium
	case model.TierVerified:
		return q.ceilings.Verified
	default:
		return q.ceilings.Free
	}
}

// Used returns how many deliveries the user has consumed today.
// A stale LastCountDate means the day rolled over: the stored count
// no longer applies and usage is zero. Read-only.
func (q *Quota) Used(u model.User) int {
	if u.LastCountDate != q.today() {
		return 0
	}
	return u.CountToday
}

// Remaining returns the deliveries left today for the given tier.
// Read-only; never negative.
func (q *Quota) Remaining(u model.User, tier model.Tier) int {
	left := q.Ceiling(tier) - q.Used(u)
	if left < 0 {
		return 0
	}
	return left
}

// Record counts one confirmed delivery. Callers invoke it only after
// the transport reported success: a failed delivery must not consume
// quota. On day rollover the count restarts at 1.
func (q *Quota) Record(ctx context.Context, u model.User) error {
	today := q.today()
	if u.LastCountDate != today {
		return q.users.ResetDailyCount(ctx, u.ID, today)
	}
	return q.users.BumpDailyCount(ctx, u.ID)
}
