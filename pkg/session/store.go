package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session exists for the given ID
var ErrNotFound = errors.New("session: not found")

// Session is a host-local authenticated session record
type Session struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	SSOToken    string    `json:"sso_token,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Authorities []string  `json:"authorities,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store manages local session records
type Store interface {
	// Create stores a new session from the seed record, assigning a fresh
	// ID, creation time and expiry
	Create(ctx context.Context, seed Session) (*Session, error)

	// Get returns the session for the ID, or ErrNotFound
	Get(ctx context.Context, id string) (*Session, error)

	// Invalidate removes the session. Removing an unknown ID is not an
	// error.
	Invalidate(ctx context.Context, id string) error

	// Rotate atomically replaces the session: the old ID is dropped and
	// the seed payload stored under a fresh ID, defending against session
	// fixation. Returns ErrNotFound when no session exists for the old ID.
	Rotate(ctx context.Context, id string, seed Session) (*Session, error)

	// PurgeExpired removes expired sessions and returns how many were
	// dropped
	PurgeExpired(ctx context.Context) (int, error)

	// Ping checks the backing store is reachable
	Ping(ctx context.Context) error
}
