// Package session holds the per-browser session state: the last-known
// authenticated user and tenant, plus the pending OAuth state token
// issued at login. One record per browser session, keyed by an opaque
// session id carried in a cookie.
package session

import (
	"context"
	"sync"
)

// User is the authenticated identity stored in a session record.
type User struct {
	Username string `json:"username"`
	Tenant   string `json:"tenant"`
}

// Record is the full per-session state. Flows overwrite the whole
// record; last-writer-wins under concurrent access is acceptable.
type Record struct {
	User       User   `json:"user"`
	Tenant     string `json:"tenant"`
	OAuthState string `json:"oauth_state,omitempty"`
}

// Store is the session storage contract. Get after Put within the
// session cookie's validity window returns the same record.
type Store interface {
	Put(ctx context.Context, id string, rec Record) error
	Get(ctx context.Context, id string) (Record, bool, error)
	Clear(ctx context.Context, id string) error
}

// MemoryStore is a process-wide in-memory Store. Safe for concurrent
// use per key.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Put stores or overwrites the record for the given session id.
func (s *MemoryStore) Put(_ context.Context, id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
	return nil
}

// Get returns the record for the given session id, if any.
func (s *MemoryStore) Get(_ context.Context, id string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok, nil
}

// Clear removes the record for the given session id.
func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
