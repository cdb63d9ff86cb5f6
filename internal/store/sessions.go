package store

import (
	"context"
	"time"

	"github.com/ashureev/yieldchat/internal/domain"
	"github.com/patrickmn/go-cache"
)

// SessionStore holds in-progress conversations keyed by session identifier.
// Callers serialize access per identifier; implementations only need to be
// safe for concurrent use across identifiers.
type SessionStore interface {
	// Get returns the session for id, or nil when there is none.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Put creates or replaces the session stored under session.ID.
	Put(ctx context.Context, session *domain.Session) error

	// Remove deletes the session for id. Removing an absent id is not an error.
	Remove(ctx context.Context, id string) error
}

// SessionLocker is implemented by stores shared between processes. Lock
// blocks until the caller holds id exclusively or ctx ends; release must be
// called exactly once.
type SessionLocker interface {
	Lock(ctx context.Context, id string) (release func(), err error)
}

// MemorySessionStore keeps sessions in process memory. Sessions idle for
// longer than the TTL are evicted; nothing survives a restart.
type MemorySessionStore struct {
	cache *cache.Cache
}

// NewMemorySessionStore creates a store whose entries expire after ttl of
// inactivity. A non-positive ttl disables expiry.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		return &MemorySessionStore{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &MemorySessionStore{cache: cache.New(ttl, ttl/2)}
}

// Get returns a copy of the stored session.
func (m *MemorySessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, nil
	}
	return v.(*domain.Session).Clone(), nil
}

// Put stores a copy of session and refreshes its expiry.
func (m *MemorySessionStore) Put(_ context.Context, session *domain.Session) error {
	m.cache.SetDefault(session.ID, session.Clone())
	return nil
}

// Remove deletes the session.
func (m *MemorySessionStore) Remove(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// Len returns the number of live sessions.
func (m *MemorySessionStore) Len() int {
	return m.cache.ItemCount()
}

var _ SessionStore = (*MemorySessionStore)(nil)
