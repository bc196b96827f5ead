package service

import (
	"context"
	"time"

	"github.com/kavyan/clipvault/internal/model"
)

// UserStore is the slice of the user repository the access ledger and
// quota counter need. *repository.UserRepo satisfies it; tests use an
// in-memory fake.
type UserStore interface {
	Get(ctx context.Context, id int64) (model.User, error)
	Ensure(ctx context.Context, id int64, name string) (model.User, error)
	SetPremiumExpiry(ctx context.Context, id int64, exp *time.Time) error
	SetTokenExpiry(ctx context.Context, id int64, exp time.Time) error
	SetVerifiedUntil(ctx context.Context, id int64, until time.Time) error
	ResetDailyCount(ctx context.Context, id int64, date string) error
	BumpDailyCount(ctx context.Context, id int64) error
	Block(ctx context.Context, id int64) error
	Unblock(ctx context.Context, id int64) error
	SetBlockedUntil(ctx context.Context, id int64, until *time.Time) error
}

// AccessLedger reconciles the independent grant sources (paid premium,
// time-boxed token access) into one verdict, and carries the operator
// block state that vetoes any grant. All comparisons are against UTC
// instants; the injected now() keeps tests deterministic.
type AccessLedger struct {
	users        UserStore
	verifyWindow time.Duration
	now          func() time.Time
}

func NewAccessLedger(users UserStore, verifyWindow time.Duration, now func() time.Time) *AccessLedger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AccessLedger{users: users, verifyWindow: verifyWindow, now: now}
}

// HasAccess reports whether the user may receive content right now:
// true iff the premium expiry or the token expiry is in the future.
// A premium grant that has lapsed is cleared as part of evaluation;
// no background sweep is needed for correctness.
func (a *AccessLedger) HasAccess(ctx context.Context, u model.User) (bool, error) {
	now := a.now()
	if u.PremiumExpiry != nil {
		if u.PremiumExpiry.After(now) {
			return true, nil
		}
		// Lazy expiry: drop the stale premium grant on read.
		if err := a.users.SetPremiumExpiry(ctx, u.ID, nil); err != nil {
			return false, err
		}
	}
	return u.TokenExpiry != nil && u.TokenExpiry.After(now), nil
}

// HasPremium reports whether the premium grant alone is active.
func (a *AccessLedger) HasPremium(u model.User) bool {
	return u.PremiumExpiry != nil && u.PremiumExpiry.After(a.now())
}

// Tier classifies the user for quota purposes: premium beats verified
// beats free.
func (a *AccessLedger) Tier(u model.User) model.Tier {
	if a.HasPremium(u) {
		return model.TierPremium
	}
	if u.VerifiedUntil != nil && u.VerifiedUntil.After(a.now()) {
		return model.TierVerified
	}
	return model.TierFree
}

// AccessExpiry returns the latest active grant end, or nil when no
// grant is active. Used for the human-readable status view.
func (a *AccessLedger) AccessExpiry(u model.User) *time.Time {
	now := a.now()
	var best *time.Time
	for _, t := range []*time.Time{u.PremiumExpiry, u.TokenExpiry} {
		if t != nil && t.After(now) && (best == nil || t.After(*best)) {
			best = t
		}
	}
	return best
}

// GrantPremium sets the premium expiry to now + days, unconditionally
// replacing any earlier grant. This is the "new subscription" path;
// it intentionally does not stack (contrast GrantPremiumExtend).
func (a *AccessLedger) GrantPremium(ctx context.Context, id int64, days int) (time.Time, error) {
	exp := a.now().Add(time.Duration(days) * 24 * time.Hour)
	return exp, a.users.SetPremiumExpiry(ctx, id, &exp)
}

// GrantPremiumExtend adds days on top of a still-running premium
// grant, or starts from now when none is active. This is the manual
// top-up path.
func (a *AccessLedger) GrantPremiumExtend(ctx context.Context, id int64, days int) (time.Time, error) {
	u, err := a.users.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	base := a.now()
	if u.PremiumExpiry != nil && u.PremiumExpiry.After(base) {
		base = *u.PremiumExpiry
	}
	exp := base.Add(time.Duration(days) * 24 * time.Hour)
	return exp, a.users.SetPremiumExpiry(ctx, id, &exp)
}

// GrantTokenAccess extends the token expiry with the same top-up
// policy as GrantPremiumExtend: stack onto a running grant, otherwise
// start from now. Ad watches and referral bonuses land here.
func (a *AccessLedger) GrantTokenAccess(ctx context.Context, id int64, d time.Duration) (time.Time, error) {
	u, err := a.users.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	base := a.now()
	if u.TokenExpiry != nil && u.TokenExpiry.After(base) {
		base = *u.TokenExpiry
	}
	exp := base.Add(d)
	return exp, a.users.SetTokenExpiry(ctx, id, exp)
}

// RevokePremium clears the premium grant. The token expiry is never
// touched: the grant sources stay independent.
func (a *AccessLedger) RevokePremium(ctx context.Context, id int64) error {
	return a.users.SetPremiumExpiry(ctx, id, nil)
}

// MarkVerified records a fresh shortlink verification, lifting the
// user to the verified ceiling for the configured window.
func (a *AccessLedger) MarkVerified(ctx context.Context, id int64) (time.Time, error) {
	until := a.now().Add(a.verifyWindow)
	return until, a.users.SetVerifiedUntil(ctx, id, until)
}

// IsBlocked reports whether the user is barred from the bot. The
// operator block wins over everything; a lapsed temporary block is
// cleared as part of evaluation, like a lapsed premium grant.
func (a *AccessLedger) IsBlocked(ctx context.Context, u model.User) (bool, error) {
	if u.Blocked {
		return true, nil
	}
	if u.BlockedUntil != nil {
		if u.BlockedUntil.After(a.now()) {
			return true, nil
		}
		if err := a.users.SetBlockedUntil(ctx, u.ID, nil); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Block bars the user until an operator lifts the bar. Grants and
// counters are untouched so an unblock restores the previous standing.
func (a *AccessLedger) Block(ctx context.Context, id int64) error {
	return a.users.Block(ctx, id)
}

// BlockFor bars the user for a fixed duration; the bar lifts by itself
// once the deadline passes.
func (a *AccessLedger) BlockFor(ctx context.Context, id int64, d time.Duration) (time.Time, error) {
	until := a.now().Add(d)
	return until, a.users.SetBlockedUntil(ctx, id, &until)
}

// Unblock lifts both the operator block and any temporary block.
func (a *AccessLedger) Unblock(ctx context.Context, id int64) error {
	return a.users.Unblock(ctx, id)
}
