package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoryStoreSize bounds the in-memory store; the LRU evicts the
// oldest sessions when full
const DefaultMemoryStoreSize = 16384

// MemoryStore is an in-memory session store backed by an expirable LRU
type MemoryStore struct {
	cache *expirable.LRU[string, *Session]
	ttl   time.Duration
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory session store. Size <= 0 falls back
// to DefaultMemoryStoreSize.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMemoryStoreSize
	}
	return &MemoryStore{
		cache: expirable.NewLRU[string, *Session](size, nil, ttl),
		ttl:   ttl,
	}
}

// Create stores a new session with a fresh ID
func (m *MemoryStore) Create(ctx context.Context, seed Session) (*Session, error) {
	now := time.Now()
	sess := seed
	sess.ID = uuid.NewString()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(m.ttl)
	m.cache.Add(sess.ID, &sess)
	return &sess, nil
}

// Get returns the session for the ID, or ErrNotFound
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	sess, ok := m.cache.Get(id)
	if !ok || sess.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Invalidate removes the session
func (m *MemoryStore) Invalidate(ctx context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}

// Rotate drops the old session and stores the seed under a fresh ID
func (m *MemoryStore) Rotate(ctx context.Context, id string, seed Session) (*Session, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	m.cache.Remove(id)
	return m.Create(ctx, seed)
}

// PurgeExpired removes expired sessions and returns how many were
// dropped. The LRU hides expired entries from Peek, so any key that no
// longer resolves is reclaimed here.
func (m *MemoryStore) PurgeExpired(ctx context.Context) (int, error) {
	purged := 0
	for _, id := range m.cache.Keys() {
		if _, ok := m.cache.Peek(id); !ok {
			m.cache.Remove(id)
			purged++
		}
	}
	return purged, nil
}

// Ping always succeeds for the in-memory store
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
