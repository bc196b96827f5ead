// Package player owns the ephemeral per-user "now playing" sessions:
// one interactive view per user, a countdown that retracts it, and
// forward/back navigation. Sessions live in process memory only; a
// restart drops them, which is fine because they are minutes-lived by
// design. Everything durable stays in the stores.
package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kavyan/clipvault/internal/model"
	"github.com/kavyan/clipvault/internal/service"
	"github.com/kavyan/clipvault/internal/transport"
)

// ErrNoSession means the user pressed a player button without an
// active player (it expired or was never opened).
var ErrNoSession = errors.New("no active player session")

// ErrTransport wraps a delivery failure after the single retry. The
// caller renders a generic retry message; quota and history were not
// touched.
var ErrTransport = errors.New("transport delivery failed")

// UserStore is the slice of the user repository the manager needs.
type UserStore interface {
	Ensure(ctx context.Context, id int64, name string) (model.User, error)
	Get(ctx context.Context, id int64) (model.User, error)
	SetCategory(ctx context.Context, id int64, category string) error
}

// Session is one user's active player: the message currently on
// screen, the item inside it, the category filter and the countdown
// deadline.
type Session struct {
	UserID   int64
	Msg      transport.Message
	Current  model.CatalogItem
	Category string
	Deadline time.Time
	timer    Timer
}

// Manager is the session registry and state machine. The registry map
// is guarded by mu; each user's operations additionally serialize on a
// per-user mutex so open/navigate/expire for one user never interleave
// while different users proceed in parallel.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex

	clock    Clock
	timeout  time.Duration
	bridge   transport.Transport
	users    UserStore
	ledger   *service.AccessLedger
	quota    *service.Quota
	selector *service.Selector
}

func NewManager(clock Clock, timeout time.Duration, bridge transport.Transport,
	users UserStore, ledger *service.AccessLedger, quota *service.Quota, selector *service.Selector) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
		clock:    clock,
		timeout:  timeout,
		bridge:   bridge,
		users:    users,
		ledger:   ledger,
		quota:    quota,
		selector: selector,
	}
}

// userLock returns the per-user mutex, creating it on first use.
func (m *Manager) userLock(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// Session returns the user's active session, or nil.
func (m *Manager) Session(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// Open starts (or restarts) the player for a user: gate access and
// quota, pick the next item, deliver a fresh player message, then
// supersede any previous session — its timer is cancelled before the
// new one is installed so two countdowns can never race over
// retraction.
func (m *Manager) Open(ctx context.Context, userID int64, userName string, chatID int64) (*Session, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	u, err := m.users.Ensure(ctx, userID, userName)
	if err != nil {
		return nil, err
	}
	if err := m.gate(ctx, u); err != nil {
		return nil, err
	}
	item, err := m.selector.Pick(ctx, userID, u.Category)
	if err != nil {
		return nil, err
	}

	view := m.render(item, u.Category, m.timeout)
	msg, err := m.sendWithRetry(ctx, chatID, view)
	if err != nil {
		return nil, err
	}

	s := &Session{
		UserID:   userID,
		Msg:      msg,
		Current:  item,
		Category: u.Category,
		Deadline: m.clock.Now().Add(m.timeout),
	}
	m.install(s)

	return s, m.bookkeep(ctx, u, item)
}

// Next swaps the displayed item for a fresh pick. The countdown is
// deliberately left running: navigation refreshes content, not the
// expiry clock.
func (m *Manager) Next(ctx context.Context, userID int64) (*Session, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s := m.Session(userID)
	if s == nil {
		return nil, ErrNoSession
	}
	u, err := m.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := m.gate(ctx, u); err != nil {
		return nil, err
	}
	item, err := m.selector.Pick(ctx, userID, s.Category)
	if err != nil {
		return nil, err
	}
	if err := m.editWithRetry(ctx, s.Msg, m.render(item, s.Category, time.Until(s.Deadline))); err != nil {
		return nil, err
	}
	s.Current = item
	return s, m.bookkeep(ctx, u, item)
}

// Previous re-shows the item delivered before the current one. It is
// a replay, not a new delivery: no quota, no history writes.
func (m *Manager) Previous(ctx context.Context, userID int64) (*Session, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s := m.Session(userID)
	if s == nil {
		return nil, ErrNoSession
	}
	item, err := m.selector.Previous(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := m.editWithRetry(ctx, s.Msg, m.render(item, s.Category, time.Until(s.Deadline))); err != nil {
		return nil, err
	}
	s.Current = item
	return s, nil
}

// Refresh re-renders the current view, e.g. after a vote changed the
// like percentage.
func (m *Manager) Refresh(ctx context.Context, userID int64, item model.CatalogItem) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s := m.Session(userID)
	if s == nil || s.Current.ContentHash != item.ContentHash {
		return nil
	}
	s.Current = item
	return m.bridge.EditPlayer(ctx, s.Msg, m.render(item, s.Category, time.Until(s.Deadline)))
}

// ChangeCategory persists the user's new category filter and applies
// it to the running session, if any. The seen set is intentionally
// not reset here; that takes an explicit reset.
func (m *Manager) ChangeCategory(ctx context.Context, userID int64, category string) error {
	if err := m.users.SetCategory(ctx, userID, category); err != nil {
		return err
	}
	m.mu.Lock()
	if s := m.sessions[userID]; s != nil {
		s.Category = category
	}
	m.mu.Unlock()
	return nil
}

// Close tears the session down on user request; same path as expiry
// but caller-initiated.
func (m *Manager) Close(ctx context.Context, userID int64) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	s := m.sessions[userID]
	if s != nil {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if s == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	m.retract(ctx, s)
}

// install registers a new session, superseding any previous one: the
// old timer is stopped and the old message retracted best-effort.
func (m *Manager) install(s *Session) {
	m.mu.Lock()
	old := m.sessions[s.UserID]
	m.sessions[s.UserID] = s
	m.mu.Unlock()

	if old != nil {
		if old.timer != nil {
			old.timer.Stop()
		}
		m.retract(context.Background(), old)
	}
	s.timer = m.clock.AfterFunc(m.timeout, func() { m.expire(s) })
}

// expire fires when a session's countdown elapses. The session is
// removed only if it is still the installed one — a timer that lost
// the race against a superseding Open must not touch the newer
// session.
func (m *Manager) expire(s *Session) {
	l := m.userLock(s.UserID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	if m.sessions[s.UserID] != s {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, s.UserID)
	m.mu.Unlock()

	m.retract(context.Background(), s)
}

// retract removes the player message best-effort. The user may have
// deleted it already; failures are logged and swallowed.
func (m *Manager) retract(ctx context.Context, s *Session) {
	if err := m.bridge.Retract(ctx, s.Msg); err != nil {
		log.Printf("player: retract msg %d for user %d: %v", s.Msg.MessageID, s.UserID, err)
	}
}

// gate checks access then quota; both denials are terminal for the
// request and rendered to the user with a next step.
func (m *Manager) gate(ctx context.Context, u model.User) error {
	ok, err := m.ledger.HasAccess(ctx, u)
	if err != nil {
		return err
	}
	if !ok {
		return service.ErrNoAccess
	}
	if m.quota.Remaining(u, m.ledger.Tier(u)) <= 0 {
		return service.ErrQuotaExceeded
	}
	return nil
}

// bookkeep records a confirmed delivery: seen set, trail, daily and
// lifetime counters. Runs only after the transport accepted the send.
func (m *Manager) bookkeep(ctx context.Context, u model.User, item model.CatalogItem) error {
	if err := m.selector.MarkDelivered(ctx, u.ID, item); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if err := m.quota.Record(ctx, u); err != nil {
		return fmt.Errorf("record quota: %w", err)
	}
	return nil
}

func (m *Manager) render(item model.CatalogItem, category string, remaining time.Duration) transport.PlayerView {
	if remaining < 0 {
		remaining = 0
	}
	return transport.PlayerView{
		Item:      item,
		LikePct:   service.LikeRatio(item),
		Category:  category,
		ExpiresIn: remaining.Round(time.Second).String(),
	}
}

func (m *Manager) sendWithRetry(ctx context.Context, chatID int64, view transport.PlayerView) (transport.Message, error) {
	msg, err := m.bridge.SendPlayer(ctx, chatID, view)
	if err != nil {
		msg, err = m.bridge.SendPlayer(ctx, chatID, view)
	}
	if err != nil {
		return transport.Message{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return msg, nil
}

func (m *Manager) editWithRetry(ctx context.Context, msg transport.Message, view transport.PlayerView) error {
	err := m.bridge.EditPlayer(ctx, msg, view)
	if err != nil {
		err = m.bridge.EditPlayer(ctx, msg, view)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}
