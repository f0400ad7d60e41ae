// Package apisession provides a typed, thread-safe store for per-client
// API state. Clients identify themselves with an opaque ID (typically a
// UUID); state is created on first access and evicted after a period of
// inactivity, so abandoned watches and sessions clean themselves up.
package apisession

import (
	"sync"
	"time"
)

// cleanupInterval is how often Get() triggers lazy eviction of expired entries.
const cleanupInterval = 100

type entry[T any] struct {
	value      *T
	lastAccess time.Time
}

// Store maps session IDs to one instance of T each.
type Store[T any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[T]
	ttl      time.Duration
	newFn    func() *T
	getCalls int
}

// New creates a Store that evicts entries inactive longer than ttl.
// newFn initialises state when an ID is seen for the first time.
func New[T any](ttl time.Duration, newFn func() *T) *Store[T] {
	return &Store[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		newFn:   newFn,
	}
}

// Get returns the state for the given ID, creating it if needed.
// Each call refreshes the entry's last-access timestamp.
func (s *Store[T]) Get(id string) *T {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getCalls++
	if s.getCalls%cleanupInterval == 0 {
		s.cleanupLocked()
	}

	e, ok := s.entries[id]
	if !ok {
		e = &entry[T]{value: s.newFn()}
		s.entries[id] = e
	}
	e.lastAccess = time.Now()
	return e.value
}

// Lookup returns the state for the given ID without creating it. Used
// where an unknown ID is a client error, not a fresh session.
func (s *Store[T]) Lookup(id string) (*T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e.lastAccess = time.Now()
	return e.value, true
}

// Delete removes the entry for the given ID, if present.
func (s *Store[T]) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Cleanup evicts all entries that have been inactive longer than the TTL.
func (s *Store[T]) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
}

func (s *Store[T]) cleanupLocked() {
	cutoff := time.Now().Add(-s.ttl)
	for id, e := range s.entries {
		if e.lastAccess.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}

// Len returns the number of active entries.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
