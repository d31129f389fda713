// Package memcache is the in-process fallback tier for verification codes.
// It holds codes when no Redis is configured or when Redis stops answering,
// so issuing and verifying login codes keeps working either way. Contents
// are lost on restart; codes are short-lived and trivially re-issued.
package memcache

import (
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

type entry struct {
	payload   string
	expiresAt time.Time
}

// Store is a TTL key/value map guarded by a single mutex. Expired entries
// are dropped lazily on read and by a periodic background sweep, which
// bounds growth without a timer per entry.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	stop    chan struct{}
	once    sync.Once
}

// New starts a Store sweeping at the given interval. A non-positive
// interval falls back to one minute.
func New(sweepInterval time.Duration) *Store {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	s := &Store{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	go s.sweep(sweepInterval)
	return s
}

// Put stores payload under key, replacing any previous value (last writer
// wins).
func (s *Store) Put(key, payload string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{payload: payload, expiresAt: time.Now().Add(ttl)}
}

// Get returns the payload for key. An entry past its TTL is never
// returned; it is evicted on the spot.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return "", false
	}
	return e.payload, true
}

// Has reports whether a live entry exists for key without mutating the map.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && time.Now().Before(e.expiresAt)
}

// Delete removes key and reports whether a live entry was actually removed.
// Under concurrent deletes for the same key exactly one caller sees true,
// which is what makes code consumption one-time in the fallback tier.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	return time.Now().Before(e.expiresAt)
}

// Len returns the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the background sweeper. Safe to call more than once.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}
