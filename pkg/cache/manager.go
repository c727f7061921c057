package cache

import (
	"container/list"
	"sync"
)

// DefaultMaxEntries bounds the number of responses a Manager holds.
const DefaultMaxEntries = 10000

// Manager is a size-bounded, concurrency-safe response cache.
// The least recently used entry is evicted when the bound is reached.
type Manager struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List
}

type item struct {
	key   string
	entry *CacheEntry
}

// NewManager creates a cache holding at most maxEntries responses.
// A non-positive maxEntries uses DefaultMaxEntries.
func NewManager(maxEntries int) *Manager {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Manager{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get retrieves a cache entry by key.
func (m *Manager) Get(key string) (*CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		CacheMisses.Inc()
		return nil, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*item).entry, true
}

// Set stores an entry. Entries without a validator are not stored since they
// can never produce a 304.
func (m *Manager) Set(key string, entry *CacheEntry) {
	if entry == nil || !entry.Validatable() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		el.Value.(*item).entry = entry
		m.order.MoveToFront(el)
		return
	}

	m.entries[key] = m.order.PushFront(&item{key: key, entry: entry})
	for m.order.Len() > m.maxEntries {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*item).key)
		CacheEvictions.Inc()
	}
	CacheEntries.Set(float64(m.order.Len()))
}

// Delete removes a cache entry.
func (m *Manager) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		m.order.Remove(el)
		delete(m.entries, key)
		CacheEntries.Set(float64(m.order.Len()))
	}
}

// Len returns the number of cached entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
