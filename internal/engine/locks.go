package engine

import "sync"

// scopeLocks serializes pipeline writes per memory scope. Extraction,
// decay, and user actions targeting the same user or partnership take the
// same lock; unrelated scopes proceed in parallel.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[string]*sync.Mutex)}
}

func (s *scopeLocks) forKey(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Lock acquires the lock for key and returns the unlock function.
func (s *scopeLocks) Lock(key string) func() {
	l := s.forKey(key)
	l.Lock()
	return l.Unlock
}
