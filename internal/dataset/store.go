package dataset

import "sync"

// Store keeps the most recently loaded dataset. Each upload replaces the
// previous one entirely; results from different files are never merged.
type Store struct {
	current *Dataset
	mu      sync.RWMutex
}

// Current returns the active dataset or nil.
func (s *Store) Current() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace installs ds and returns the dataset it displaced.
func (s *Store) Replace(ds *Dataset) *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = ds
	return prev
}
