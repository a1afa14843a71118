package inflight

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTTL bounds how long a key may be held by a run that never released it.
const DefaultTTL = 2 * time.Minute

// BuildKey returns the coordination key for one segment in one language.
func BuildKey(siteID int64, lang, hash string) string {
	return fmt.Sprintf("%d:%s:%s", siteID, lang, hash)
}

// Store is a keyed set of in-progress markers. Expired entries count as
// absent and are swept lazily. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL. Non-positive values disable expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert marks key as in progress. It returns false when the key is already
// held and has not expired.
func (s *Store) Insert(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.live(key, now) {
		return false
	}
	s.entries[key] = now
	return true
}

// Delete releases key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Has reports whether key is held and not expired.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key, s.now())
}

// Len sweeps expired entries and returns the number still held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key := range s.entries {
		if !s.live(key, now) {
			delete(s.entries, key)
		}
	}
	return len(s.entries)
}

func (s *Store) live(key string, now time.Time) bool {
	since, ok := s.entries[key]
	if !ok {
		return false
	}
	if s.ttl > 0 && now.Sub(since) >= s.ttl {
		delete(s.entries, key)
		return false
	}
	return true
}
