// Package inmem provides the default session.Store: an LRU-bounded
// in-memory map. It is grounded on the teacher's
// runtime/agent/session/inmem/store.go (RWMutex-guarded map with
// clone-on-read/write semantics) generalized with an actual container/list
// LRU keyed by session id (SPEC_FULL.md §4.6), since conversation memory,
// unlike the teacher's durable run metadata, is explicitly allowed to be
// dropped under memory pressure (spec.md §9).
package inmem

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/careflow-systems/hospital-core/runtime/agent/model"
	"github.com/careflow-systems/hospital-core/runtime/session"
)

// DefaultCapacity is used when New is called with capacity <= 0.
const DefaultCapacity = 10_000

// Store is an LRU-bounded, concurrency-safe session.Store.
type Store struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element // session id -> element in lru
	lru      *list.List                // front = most recently used
}

type entry struct {
	id      string
	session session.ConversationSession
}

// New returns an empty Store that evicts the least-recently-used session
// once more than capacity distinct sessions have been touched.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// GetOrCreate implements session.Store.
func (s *Store) GetOrCreate(_ context.Context, id string, userID *string, now time.Time) (session.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[id]; ok {
		s.lru.MoveToFront(el)
		return cloneSession(el.Value.(*entry).session), nil
	}

	sess := session.ConversationSession{
		ID:             id,
		UserID:         clonePtr(userID),
		WorkflowStates: make(map[string]session.WorkflowStateRef),
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	el := s.lru.PushFront(&entry{id: id, session: sess})
	s.entries[id] = el
	s.evictLocked()
	return cloneSession(sess), nil
}

// Get implements session.Store.
func (s *Store) Get(_ context.Context, id string) (session.ConversationSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[id]
	if !ok {
		return session.ConversationSession{}, false, nil
	}
	s.lru.MoveToFront(el)
	return cloneSession(el.Value.(*entry).session), true, nil
}

// AppendMessage implements session.Store.
func (s *Store) AppendMessage(_ context.Context, id string, msg model.Message, now time.Time) (session.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[id]
	if !ok {
		return session.ConversationSession{}, session.ErrSessionNotFound
	}
	s.lru.MoveToFront(el)
	e := el.Value.(*entry)
	e.session.Messages = append(e.session.Messages, msg)
	e.session.UpdatedAt = now.UTC()
	return cloneSession(e.session), nil
}

// SetWorkflowState implements session.Store.
func (s *Store) SetWorkflowState(_ context.Context, id, workflowKind string, ref session.WorkflowStateRef, now time.Time) (session.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[id]
	if !ok {
		return session.ConversationSession{}, session.ErrSessionNotFound
	}
	s.lru.MoveToFront(el)
	e := el.Value.(*entry)
	if e.session.WorkflowStates == nil {
		e.session.WorkflowStates = make(map[string]session.WorkflowStateRef)
	}
	ref.UpdatedAt = now.UTC()
	e.session.WorkflowStates[workflowKind] = ref
	e.session.UpdatedAt = now.UTC()
	return cloneSession(e.session), nil
}

// evictLocked removes least-recently-used sessions until the store is back
// at or under capacity. Callers must hold s.mu.
func (s *Store) evictLocked() {
	for s.lru.Len() > s.capacity {
		oldest := s.lru.Back()
		if oldest == nil {
			return
		}
		s.lru.Remove(oldest)
		delete(s.entries, oldest.Value.(*entry).id)
	}
}

func clonePtr(in *string) *string {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}

func cloneSession(in session.ConversationSession) session.ConversationSession {
	out := in
	out.UserID = clonePtr(in.UserID)
	if len(in.Messages) > 0 {
		out.Messages = make([]model.Message, len(in.Messages))
		copy(out.Messages, in.Messages)
	}
	if len(in.WorkflowStates) > 0 {
		out.WorkflowStates = make(map[string]session.WorkflowStateRef, len(in.WorkflowStates))
		for k, v := range in.WorkflowStates {
			out.WorkflowStates[k] = v
		}
	}
	return out
}
