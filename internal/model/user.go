package model

import "time"

// Tier is a user's access tier.  Each tier carries its own daily
// delivery ceiling; the ceilings increase monotonically from free to
// premium.
type Tier string

const (
    TierFree     Tier = "FREE"
    TierVerified Tier = "VERIFIED"
    TierPremium  Tier = "PREMIUM"
)

// User represents a bot user record as stored in the `users` table.
// The ID is the chat platform's opaque integer identifier; records are
// created on first contact and only removed by explicit administrative
// deletion.
//
// PremiumExpiry and TokenExpiry are independent grant sources: access
// is allowed while either lies in the future.  Both are stored as UTC
// DATETIME columns and are nil when no grant is active.
//
// Fields:
//  ID            – users.id, platform user identifier.
//  Name          – users.name, display name at first contact.
//  LifetimeCount – users.lifetime_count, total items ever delivered.
//  CountToday    – users.count_today, items delivered on LastCountDate.
//  LastCountDate – users.last_count_date, "YYYY-MM-DD" in the service
//                  calendar zone; empty until the first delivery.
//  PremiumExpiry – users.premium_expiry, paid subscription end (nullable).
//  TokenExpiry   – users.token_expiry, ad/referral grant end (nullable).
//  VerifiedUntil – users.verified_until, shortlink verification freshness.
//  ReferralCount – users.referral_count, confirmed referrals credited.
//  Category      – users.category, current catalog category filter.
//  ReminderSent  – users.reminder_sent, expiry reminder already queued.
//  Blocked       – users.blocked, operator block (lifted only by an operator).
//  BlockedUntil  – users.blocked_until, temporary block end; lifts by itself.
type User struct {
    ID            int64      // users.id
    Name          string     // users.name
    LifetimeCount int        // users.lifetime_count
    CountToday    int        // users.count_today
    LastCountDate string     // users.last_count_date
    PremiumExpiry *time.Time // users.premium_expiry (nullable)
    TokenExpiry   *time.Time // users.token_expiry (nullable)
    VerifiedUntil *time.Time // users.verified_until (nullable)
    ReferralCount int        // users.referral_count
    Category      string     // users.category
    ReminderSent  bool       // users.reminder_sent
    Blocked       bool       // users.blocked
    BlockedUntil  *time.Time // users.blocked_until (nullable)
    CreatedAt     time.Time  // users.created_at
    UpdatedAt     time.Time  // users.updated_at
}

// CategoryAll is the unfiltered catalog category every user starts in.
const CategoryAll = "all"
