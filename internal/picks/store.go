package picks

import (
	"sync"

	"github.com/oddsmith/picks-engine/internal/models"
)

// Store is the single owner of the latest picks snapshot. All access
// goes through its methods; readers get value copies, never shared
// references into the pipeline.
type Store struct {
	mu    sync.RWMutex
	snap  models.PicksSnapshot
	valid bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Read returns the current snapshot and whether one has been written.
func (s *Store) Read() (models.PicksSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.valid
}

// Write replaces the current snapshot.
func (s *Store) Write(snap models.PicksSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.valid = true
}

// Clear drops the snapshot.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = models.PicksSnapshot{}
	s.valid = false
}
