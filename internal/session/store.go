// Package session provides storage and lifecycle management for per-user
// conversation sessions.
//
// It includes an in-memory store for tests and small deployments, plus
// SQLite and PostgreSQL backed stores. The Manager wraps a Store with the
// 7-day expiry policy and per-user turn serialization.
package session

import (
	"context"
	"errors"

	"github.com/kotsebot/kotsebot/internal/models"
)

// ErrDSNNotSet indicates a persistent store was constructed without a DSN.
var ErrDSNNotSet = errors.New("database DSN not set")

// Store defines the keyed session persistence abstraction. Get returns
// (nil, nil) when no record exists. No transactional guarantees are assumed
// beyond per-key read-then-write; callers serialize per user id.
type Store interface {
	// Get retrieves the session for a user id, or nil if absent.
	Get(ctx context.Context, userID string) (*models.Session, error)

	// Set saves the session under its user id, overwriting any previous record.
	Set(ctx context.Context, s *models.Session) error

	// Delete removes the session for a user id. Deleting a missing record is not an error.
	Delete(ctx context.Context, userID string) error

	// List returns all stored sessions, for the nudge sweep.
	List(ctx context.Context) ([]*models.Session, error)
}

// Opts holds configuration for persistent store constructors.
type Opts struct {
	DSN string
}

// Option configures a store constructor.
type Option func(*Opts)

// WithDSN sets the database DSN (a file path for SQLite, a connection
// string for PostgreSQL).
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}
