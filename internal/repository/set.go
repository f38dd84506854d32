package repository

import (
	"sync"

	"github.com/docuvault/docuvault/internal/document"
)

// Set holds the process-wide repositories, keyed by collection name. Wiring
// code registers each repository once at startup; callers fetch them by key
// and type.
type Set struct {
	mu    sync.RWMutex
	repos map[string]any
}

func NewSet() *Set {
	return &Set{repos: make(map[string]any)}
}

func (s *Set) Register(name string, repo any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos[name] = repo
}

// Lookup fetches a registered repository by collection name and bound type.
func Lookup[T document.Model](s *Set, name string) (*Repository[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	repo, ok := s.repos[name].(*Repository[T])
	return repo, ok
}
