package cache

import (
	"sync"
	"time"
)

// ExpirySet remembers keys until a deadline. Unlike LRUCache it never
// evicts by size: a key leaves only once its deadline has passed.
type ExpirySet struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewExpirySet() *ExpirySet {
	return &ExpirySet{until: make(map[string]time.Time), now: time.Now}
}

// WithClock replaces the time source used for expiry.
func (s *ExpirySet) WithClock(now func() time.Time) *ExpirySet {
	s.now = now
	return s
}

// Add keeps key until the given time. A later deadline wins.
func (s *ExpirySet) Add(key string, until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.until[key]; ok && cur.After(until) {
		return
	}
	s.until[key] = until
}

func (s *ExpirySet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.until[key]
	if !ok {
		return false
	}
	if s.now().After(until) {
		delete(s.until, key)
		return false
	}
	return true
}

// CleanExpired drops keys past their deadline.
func (s *ExpirySet) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, until := range s.until {
		if now.After(until) {
			delete(s.until, k)
			removed++
		}
	}
	return removed
}

func (s *ExpirySet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.until)
}
