package cache

import (
	"sync"
	"time"

	"github.com/Veraticus/hearthledger/internal/model"
)

// Entry is one cached fetch result. Entries are replaced wholesale on
// refetch and marked stale by the invalidation fan-out; a stale entry
// triggers a refetch on its next read, not an immediate fetch.
type Entry struct {
	FetchedAt time.Time
	Rows      []model.Transaction
	Stale     bool
}

// Store holds cache entries keyed by scope. Entries are only ever
// replaced wholesale per scope, so a read observes either the old or
// the new value, never a partial update.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	subs    map[int]func(Key)
	nextSub int
}

// NewStore creates an empty cache store.
func NewStore() *Store {
	return &Store{
		entries: make(map[Key]Entry),
		subs:    make(map[int]func(Key)),
	}
}

// Get returns the entry for a key. Callers must treat a stale entry as
// a refetch trigger.
func (s *Store) Get(k Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[k]
	return entry, ok
}

// Put replaces the entry for a key wholesale and clears its staleness.
func (s *Store) Put(k Key, rows []model.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[k] = Entry{
		FetchedAt: time.Now(),
		Rows:      rows,
	}
}

// Invalidate marks stale every entry covered by the probe key and
// notifies subscribers of the probe. It returns the entry keys that
// were marked; a probe covering no cached entry marks nothing, since
// the next read of that scope fetches anyway.
func (s *Store) Invalidate(probe Key) []Key {
	s.mu.Lock()
	var marked []Key
	for k, entry := range s.entries {
		if probe.Covers(k) && !entry.Stale {
			entry.Stale = true
			s.entries[k] = entry
			marked = append(marked, k)
		}
	}
	subs := make([]func(Key), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	// Notify outside the lock; a subscriber may call back into the store.
	for _, fn := range subs {
		fn(probe)
	}
	return marked
}

// Subscribe registers a listener invoked with the probe key of every
// invalidation. The returned function cancels the subscription.
func (s *Store) Subscribe(fn func(Key)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
