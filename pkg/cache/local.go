package cache

import (
	"container/list"
	"sync"
	"time"
)

// localEntry is one in-process cached value.
type localEntry struct {
	key        string
	value      []byte
	insertedAt time.Time
	expiresAt  time.Time
}

// localStore is the in-process fallback tier for one TTL configuration.
// Eviction is least-recently-stored: when over capacity, the oldest entry by
// insertion time is removed. Structural mutation is mutex-serialized; a read
// racing the sweep simply misses and the caller falls through to a fetch.
type localStore struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*list.Element
	order   *list.List // front = oldest inserted
}

func newLocalStore(ttl time.Duration, maxSize int) *localStore {
	return &localStore{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// get returns the value for key if present and unexpired.
func (s *localStore) get(key string, now time.Time) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*localEntry)
	if now.After(entry.expiresAt) {
		s.removeLocked(el)
		return nil, false
	}
	return entry.value, true
}

// set inserts or replaces a value, evicting the oldest entry when the store
// is over capacity.
func (s *localStore) set(key string, value []byte, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.removeLocked(el)
	}
	el := s.order.PushBack(&localEntry{
		key:        key,
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(s.ttl),
	})
	s.entries[key] = el

	for len(s.entries) > s.maxSize {
		s.removeLocked(s.order.Front())
	}
}

func (s *localStore) removeLocked(el *list.Element) {
	entry := el.Value.(*localEntry)
	delete(s.entries, entry.key)
	s.order.Remove(el)
}

// len returns the resident entry count.
func (s *localStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// oldest returns the insertion time of the oldest entry, or false when empty.
func (s *localStore) oldest() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	front := s.order.Front()
	if front == nil {
		return time.Time{}, false
	}
	return front.Value.(*localEntry).insertedAt, true
}

// evictOldest removes the oldest entry. Reports whether one was removed.
func (s *localStore) evictOldest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	front := s.order.Front()
	if front == nil {
		return false
	}
	s.removeLocked(front)
	return true
}

// remove drops one key if present.
func (s *localStore) remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[key]; ok {
		s.removeLocked(el)
	}
}

// sweepExpired removes every entry past its TTL and returns the count.
func (s *localStore) sweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*localEntry).expiresAt) {
			s.removeLocked(el)
			removed++
		}
		el = next
	}
	return removed
}

// clear drops every entry.
func (s *localStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*list.Element)
	s.order.Init()
}
