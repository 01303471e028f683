// Package tools: idempotency-key support for mutating tools.
//
// SPEC_FULL.md §10 supplements the distilled spec with idempotency keys for
// tools whose ToolSpec sets Idempotent: a retried RPC call carrying the same
// `idempotency_key` argument within the window replays the recorded result
// instead of applying the underlying mutation again. This mirrors the teacher's own
// runtime/agent/tools/idempotency.go, adapted from "is this tool call
// idempotent across a transcript" (a planner concern) to "has this exact key
// already been applied" (a registry concern), since the hospital core has no
// LLM transcript to de-duplicate against for direct RPC callers.
package tools

import (
	"encoding/json"
	"sync"
	"time"
)

// idempotencyKeyField is the reserved argument name mutating tools accept to
// opt into de-duplication. The registry passes it through to the handler
// unchanged.
const idempotencyKeyField = "idempotency_key"

// ExtractIdempotencyKey pulls the idempotency_key field out of a raw JSON
// arguments payload, returning "" if absent or not a string.
func ExtractIdempotencyKey(args json.RawMessage) string {
	if len(args) == 0 {
		return ""
	}
	var probe struct {
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := json.Unmarshal(args, &probe); err != nil {
		return ""
	}
	return probe.IdempotencyKey
}

// IdempotencyTracker remembers recently-applied (tool, key) pairs and returns
// the prior result for a repeat within the retention window, instead of
// re-running the handler. It is safe for concurrent use.
type IdempotencyTracker struct {
	mu        sync.Mutex
	retention time.Duration
	entries   map[string]idempotencyEntry
}

type idempotencyEntry struct {
	result    any
	err       error
	expiresAt time.Time
}

// NewIdempotencyTracker constructs a tracker that retains entries for the
// given duration. A zero or negative retention defaults to 5 minutes.
func NewIdempotencyTracker(retention time.Duration) *IdempotencyTracker {
	if retention <= 0 {
		retention = 5 * time.Minute
	}
	return &IdempotencyTracker{retention: retention, entries: make(map[string]idempotencyEntry)}
}

// Lookup returns a previously recorded (result, err) for tool+key, if any and
// still within the retention window.
func (t *IdempotencyTracker) Lookup(tool Ident, key string, now time.Time) (any, error, bool) {
	if key == "" {
		return nil, nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[string(tool)+"\x00"+key]
	if !ok || now.After(e.expiresAt) {
		return nil, nil, false
	}
	return e.result, e.err, true
}

// Record stores the outcome of a tool call under tool+key for later Lookup calls.
func (t *IdempotencyTracker) Record(tool Ident, key string, result any, err error, now time.Time) {
	if key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[string(tool)+"\x00"+key] = idempotencyEntry{
		result:    result,
		err:       err,
		expiresAt: now.Add(t.retention),
	}
}
