// Package inmem provides a process-local checkpoint.Store for local
// development and tests. State is lost on process restart.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint"
)

// Store is an in-memory, mutex-guarded checkpoint.Store.
type Store struct {
	mu      sync.Mutex
	records map[checkpoint.Key]checkpoint.Record
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[checkpoint.Key]checkpoint.Record), now: time.Now}
}

// Load implements checkpoint.Store.
func (s *Store) Load(ctx context.Context, key checkpoint.Key) (checkpoint.Record, error) {
	select {
	case <-ctx.Done():
		return checkpoint.Record{}, ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return checkpoint.Record{}, checkpoint.ErrNotFound
	}
	return rec, nil
}

// Save implements checkpoint.Store.
func (s *Store) Save(ctx context.Context, key checkpoint.Key, expectedVersion int, state []byte) (checkpoint.Record, error) {
	select {
	case <-ctx.Done():
		return checkpoint.Record{}, ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[key]
	if exists && current.Version != expectedVersion {
		return checkpoint.Record{}, checkpoint.ErrVersionConflict
	}
	if !exists && expectedVersion != 0 {
		return checkpoint.Record{}, checkpoint.ErrVersionConflict
	}

	body := make([]byte, len(state))
	copy(body, state)
	rec := checkpoint.Record{Version: expectedVersion + 1, State: body, UpdatedAt: s.now()}
	s.records[key] = rec
	return rec, nil
}
