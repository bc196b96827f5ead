package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kavyan/clipvault/internal/model"
)

const userColumns = `id,name,lifetime_count,count_today,last_count_date,
premium_expiry,token_expiry,verified_until,referral_count,category,
reminder_sent,blocked,blocked_until,created_at,updated_at`

// UserRepo provides access to the 'users' table.  All expiry columns
// are UTC DATETIMEs; the driver is configured with loc=UTC so they
// round-trip as UTC time.Time values.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Ensure inserts a user on first contact and returns the current row.
// Existing rows are left untouched (the display name is only a
// first-contact snapshot).
func (r *UserRepo) Ensure(ctx context.Context, id int64, name string) (model.User, error) {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO users (id, name, category) VALUES (?,?,?)",
		id, name, model.CategoryAll)
	if err != nil {
		return model.User{}, err
	}
	return r.Get(ctx, id)
}

// Get fetches a user by id.
func (r *UserRepo) Get(ctx context.Context, id int64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// Delete removes a user row. Administrative removal only.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	return err
}

// Count returns the total number of registered users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// PremiumCount returns the number of users whose premium grant is
// still in the future.
func (r *UserRepo) PremiumCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE premium_expiry IS NOT NULL AND premium_expiry > UTC_TIMESTAMP()").Scan(&n)
	return n, err
}

// SetPremiumExpiry writes the premium expiry column. A nil expiry
// clears the grant. Any change re-arms the expiry reminder.
func (r *UserRepo) SetPremiumExpiry(ctx context.Context, id int64, exp *time.Time) error {
	var v sql.NullTime
	if exp != nil {
		v = sql.NullTime{Time: exp.UTC(), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET premium_expiry=?, reminder_sent=0 WHERE id=?", v, id)
	return err
}

// SetTokenExpiry writes the token-access expiry column and re-arms the
// expiry reminder. Token grants never clear, they only move forward.
func (r *UserRepo) SetTokenExpiry(ctx context.Context, id int64, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET token_expiry=?, reminder_sent=0 WHERE id=?", exp.UTC(), id)
	return err
}

// SetVerifiedUntil records a fresh shortlink verification.
func (r *UserRepo) SetVerifiedUntil(ctx context.Context, id int64, until time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET verified_until=? WHERE id=?", until.UTC(), id)
	return err
}

// SetCategory updates the user's current catalog category.
func (r *UserRepo) SetCategory(ctx context.Context, id int64, category string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET category=? WHERE id=?", category, id)
	return err
}

// ResetDailyCount starts a fresh calendar day: today's count becomes 1
// and the lifetime counter advances.
func (r *UserRepo) ResetDailyCount(ctx context.Context, id int64, date string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET count_today=1, last_count_date=?, lifetime_count=lifetime_count+1 WHERE id=?",
		date, id)
	return err
}

// BumpDailyCount increments today's count and the lifetime counter in
// one atomic statement so concurrent taps cannot lose updates.
func (r *UserRepo) BumpDailyCount(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET count_today=count_today+1, lifetime_count=lifetime_count+1 WHERE id=?", id)
	return err
}

// IncrementReferrals credits one confirmed referral to the user.
func (r *UserRepo) IncrementReferrals(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET referral_count=referral_count+1 WHERE id=?", id)
	return err
}

// ExpiringBetween lists users whose premium or token grant ends inside
// [from, to) and who have not been reminded yet.
func (r *UserRepo) ExpiringBetween(ctx context.Context, from, to time.Time) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+` FROM users
		 WHERE reminder_sent=0
		   AND ((premium_expiry >= ? AND premium_expiry < ?)
		     OR (token_expiry >= ? AND token_expiry < ?))`,
		from.UTC(), to.UTC(), from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// MarkReminderSent flags a user so the sweep does not queue a second
// reminder for the same grant.
func (r *UserRepo) MarkReminderSent(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reminder_sent=1 WHERE id=?", id)
	return err
}

// Block sets the operator block flag. The user keeps their grants and
// counters; they simply cannot reach the bot until unblocked.
func (r *UserRepo) Block(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET blocked=1 WHERE id=?", id)
	return err
}

// Unblock lifts the operator block and any temporary block at once.
func (r *UserRepo) Unblock(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET blocked=0, blocked_until=NULL WHERE id=?", id)
	return err
}

// SetBlockedUntil writes the temporary block end. A nil until clears
// a lapsed or lifted temporary block.
func (r *UserRepo) SetBlockedUntil(ctx context.Context, id int64, until *time.Time) error {
	var v sql.NullTime
	if until != nil {
		v = sql.NullTime{Time: until.UTC(), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET blocked_until=? WHERE id=?", v, id)
	return err
}

// BlockedUsers lists users under an operator block or a still-running
// temporary block.
func (r *UserRepo) BlockedUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+` FROM users
		 WHERE blocked=1
		    OR (blocked_until IS NOT NULL AND blocked_until > UTC_TIMESTAMP())`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(row rowScanner) (model.User, error) {
	var (
		u        model.User
		lastDate sql.NullString
		premium  sql.NullTime
		token    sql.NullTime
		verified sql.NullTime
		blocked  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.LifetimeCount, &u.CountToday, &lastDate,
		&premium, &token, &verified, &u.ReferralCount, &u.Category,
		&u.ReminderSent, &u.Blocked, &blocked, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.LastCountDate = lastDate.String
	if premium.Valid {
		t := premium.Time
		u.PremiumExpiry = &t
	}
	if token.Valid {
		t := token.Time
		u.TokenExpiry = &t
	}
	if verified.Valid {
		t := verified.Time
		u.VerifiedUntil = &t
	}
	if blocked.Valid {
		t := blocked.Time
		u.BlockedUntil = &t
	}
	return u, nil
}
