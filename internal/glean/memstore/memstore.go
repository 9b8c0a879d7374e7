// Package memstore provides an in-memory implementation of glean.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

// Store holds runs and glean batches in memory. Suitable for dev/testing
// and for single-batch runs where nothing outlives the process.
type Store struct {
	mu     sync.RWMutex
	runs   map[string]*glean.Run    // run ID -> run
	seen   map[string]string        // window fingerprint -> run ID (dedup)
	gleans map[string][]glean.Glean // run ID -> batch
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		runs:   make(map[string]*glean.Run),
		seen:   make(map[string]string),
		gleans: make(map[string][]glean.Glean),
	}
}

// GetRun retrieves a run by its ID. Returns a copy.
func (s *Store) GetRun(_ context.Context, id string) (*glean.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetRunByFingerprint retrieves a run by window fingerprint, for
// deduplication. Returns a copy.
func (s *Store) GetRunByFingerprint(_ context.Context, fp string) (*glean.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seen[fp]
	if !ok {
		return nil, false, nil
	}
	r := s.runs[id]
	cp := *r
	return &cp, true, nil
}

// PutRun stores a copy of the run.
func (s *Store) PutRun(_ context.Context, r *glean.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runs[r.ID] = &cp
	s.seen[r.Fingerprint] = r.ID
	return nil
}

// PutGleans stores a copy of the run's glean batch, replacing any previous
// batch for that run.
func (s *Store) PutGleans(_ context.Context, runID string, gleans []glean.Glean) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]glean.Glean, len(gleans))
	copy(cp, gleans)
	s.gleans[runID] = cp
	return nil
}

// ListGleans returns a copy of the run's glean batch.
func (s *Store) ListGleans(_ context.Context, runID string) ([]glean.Glean, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch := s.gleans[runID]
	cp := make([]glean.Glean, len(batch))
	copy(cp, batch)
	return cp, nil
}
