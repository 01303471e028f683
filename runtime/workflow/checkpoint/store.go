// Package checkpoint defines the Checkpoint store capability (spec §6):
// put(key, state_bytes) / get(key) -> state_bytes, keyed by (session_id,
// workflow_kind). The workflow engine persists the full run state here at
// every node boundary so a process restart followed by resume continues
// from the same point.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// Key identifies a workflow run's checkpoint slot. Exactly one active run
// exists per (SessionID, WorkflowKind) at a time.
type Key struct {
	SessionID    string
	WorkflowKind string
}

// String renders the key for logging and trace correlation. It is not parsed
// back into a Key; callers that need both parts keep them separately.
func (k Key) String() string {
	return k.WorkflowKind + ":" + k.SessionID
}

// Record is a versioned checkpoint payload. Version starts at 0 for a key
// with no prior checkpoint and increments by one on every successful Save.
type Record struct {
	Version   int
	State     []byte
	UpdatedAt time.Time
}

var (
	// ErrNotFound is returned by Load when no checkpoint exists for a key.
	ErrNotFound = errors.New("checkpoint: no record for key")

	// ErrVersionConflict is returned by Save when expectedVersion does not
	// match the currently stored version, meaning another writer committed
	// a checkpoint for the same key concurrently. The checkpoint store is
	// single-writer per key (spec §5); the loser of a race must fail.
	ErrVersionConflict = errors.New("checkpoint: concurrent write rejected, version mismatch")
)

// Store persists workflow run checkpoints. Implementations must be safe for
// concurrent use and must reject a Save whose expectedVersion is stale.
type Store interface {
	// Load returns the current checkpoint for key, or ErrNotFound.
	Load(ctx context.Context, key Key) (Record, error)

	// Save writes state for key if the currently stored version equals
	// expectedVersion (0 if no record exists yet), then returns the new
	// Record. Returns ErrVersionConflict on a stale expectedVersion.
	Save(ctx context.Context, key Key, expectedVersion int, state []byte) (Record, error)
}
