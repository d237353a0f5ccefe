// Package cache is a module providing the "cache" capability: an in-memory
// store bound as cache.Store.
package cache

import (
	"sync"
	"time"

	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/module"
)

// Store is what dependents declare as a constructor parameter.
type Store interface {
	Get(key string) (any, bool)
	Put(key string, value any)
	Increment(key string) int
	Forget(key string)
}

// Module binds the store.
//
// Bound abstracts:
//   - cache.Store key, alias "cache" → *MemoryStore
type Module struct {
	module.BaseModule
}

func New() *Module { return &Module{} }

func (m *Module) Register(app *container.Container) error {
	app.Singleton(container.Key[Store](), container.Ctor(NewMemoryStore,
		container.Arg("ttl").Default(10*time.Minute),
	))
	app.Alias(container.Key[Store](), "cache")
	return nil
}

// ── MemoryStore ───────────────────────────────────────────────────────────────

type entry struct {
	value   any
	expires time.Time
}

// MemoryStore is a mutex guarded map. Entries expire ttl after their last
// write; a zero ttl keeps them forever.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	return e.value, ok
}

func (s *MemoryStore) Put(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, value)
}

// Increment adds one to an int entry, starting from zero, and returns the
// new value.
func (s *MemoryStore) Increment(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	if e, ok := s.live(key); ok {
		n, _ = e.value.(int)
	}
	n++
	s.put(key, n)
	return n
}

func (s *MemoryStore) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) live(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

func (s *MemoryStore) put(key string, value any) {
	e := entry{value: value}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.entries[key] = e
}
