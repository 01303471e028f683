// Package tracebuffer implements the trace/audit trail supplemented feature
// (SPEC_FULL.md §10): an in-memory, fixed-capacity record of the most recent
// tool calls, fed by runtime/toolregistry's TraceObserver hook. It mirrors
// the teacher's hooks.Bus fan-out shape (a registered subscriber receiving
// every event synchronously on the publisher's goroutine) but narrowed from
// a general pub/sub bus down to the one subscriber this core actually
// needs: a bounded ring buffer an operator can inspect through the
// system.list_recent_traces tool, rather than a run-event bus with
// subscription lifecycles (SPEC_FULL.md §4.0 names this as the audit trail
// for tool calls, not a general eventing system).
package tracebuffer

import (
	"context"
	"sync"

	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// DefaultCapacity bounds the buffer when New is given a non-positive capacity.
const DefaultCapacity = 500

// Buffer is a fixed-capacity ring of the most recent TraceEntry values
// recorded by a toolregistry.Registry. It implements toolregistry.TraceObserver
// and is safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	entries  []toolregistry.TraceEntry
	next     int
	size     int
	capacity int
}

// New constructs a Buffer holding at most capacity entries. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{entries: make([]toolregistry.TraceEntry, capacity), capacity: capacity}
}

// Observe records entry, overwriting the oldest recorded entry once the
// buffer is full.
func (b *Buffer) Observe(_ context.Context, entry toolregistry.TraceEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = entry
	b.next = (b.next + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Recent returns up to limit of the most recently recorded entries, newest
// first. A non-positive limit returns every entry currently held.
func (b *Buffer) Recent(limit int) []toolregistry.TraceEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 || limit > b.size {
		limit = b.size
	}
	out := make([]toolregistry.TraceEntry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (b.next - 1 - i + b.capacity) % b.capacity
		out = append(out, b.entries[idx])
	}
	return out
}
