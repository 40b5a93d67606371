package tracking

import "sync"

// Store holds the live execution contexts. It is the only writer of the
// live set; each flow touches only its own entry, so a single RWMutex is
// enough.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]*ExecutionContext
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{contexts: make(map[string]*ExecutionContext)}
}

// Put adds ec to the live set.
func (s *Store) Put(ec *ExecutionContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[ec.id] = ec
}

// Get returns the live context with id.
func (s *Store) Get(id string) (*ExecutionContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ec, ok := s.contexts[id]
	return ec, ok
}

// Delete removes id and reports whether it was live.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contexts[id]; !ok {
		return false
	}
	delete(s.contexts, id)
	return true
}

// Len returns the number of live contexts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}
