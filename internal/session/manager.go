package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kotsebot/kotsebot/internal/models"
)

// Manager wraps a Store with the session lifecycle policy: 7-day expiry on
// load, creation of fresh sessions for new or expired users, and per-user
// turn serialization.
//
// Turns for one user id must run read-modify-write to completion before the
// next turn for that user; different users proceed in parallel.
type Manager struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a session Manager on top of a Store.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// SetClock overrides the time source, for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Lock acquires the per-user turn lock and returns the unlock function.
func (m *Manager) Lock(userID string) func() {
	m.mu.Lock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Load returns the session for a user, creating a fresh one if none exists
// or the stored one has passed its TTL. An expired session is discarded and
// the replacement is flagged as returning.
func (m *Manager) Load(ctx context.Context, userID string) (*models.Session, error) {
	sess, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session load for %s: %w: %w", userID, models.ErrSessionStore, err)
	}

	now := m.now()
	if sess == nil {
		slog.Debug("Manager creating new session", "user_id", userID)
		return models.NewSession(userID, now), nil
	}
	if !models.IsValidPhase(sess.Phase) {
		// A record from an incompatible deployment: drop it rather than
		// route on a phase the flow cannot handle.
		slog.Error("Manager discarding session with unknown phase", "user_id", userID, "phase", sess.Phase)
		if err := m.store.Delete(ctx, userID); err != nil {
			return nil, fmt.Errorf("session phase delete for %s: %w: %w", userID, models.ErrSessionStore, err)
		}
		fresh := models.NewSession(userID, now)
		fresh.IsReturning = true
		return fresh, nil
	}
	if sess.Expired(now) {
		slog.Info("Manager discarding expired session", "user_id", userID, "idle", now.Sub(sess.UpdatedAt))
		if err := m.store.Delete(ctx, userID); err != nil {
			return nil, fmt.Errorf("session expiry delete for %s: %w: %w", userID, models.ErrSessionStore, err)
		}
		fresh := models.NewSession(userID, now)
		fresh.IsReturning = true
		return fresh, nil
	}
	return sess, nil
}

// Save stamps UpdatedAt and persists the session.
func (m *Manager) Save(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = m.now()
	if err := m.store.Set(ctx, sess); err != nil {
		return fmt.Errorf("session save for %s: %w: %w", sess.ID, models.ErrSessionStore, err)
	}
	return nil
}

// SaveQuiet persists the session without touching UpdatedAt. The nudge
// sweep uses it so bookkeeping writes do not reset the idle clock.
func (m *Manager) SaveQuiet(ctx context.Context, sess *models.Session) error {
	if err := m.store.Set(ctx, sess); err != nil {
		return fmt.Errorf("session save for %s: %w: %w", sess.ID, models.ErrSessionStore, err)
	}
	return nil
}

// Delete removes a user's session.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.store.Delete(ctx, userID)
}

// List returns all stored sessions.
func (m *Manager) List(ctx context.Context) ([]*models.Session, error) {
	return m.store.List(ctx)
}
