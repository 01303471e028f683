package workflow

import (
	"encoding/json"
	"fmt"
)

// RunStatus is the lifecycle state of a single graph run.
type RunStatus string

const (
	// StatusRunning is the state of a run with more nodes left to execute.
	StatusRunning RunStatus = "running"
	// StatusPaused is reserved for nodes that suspend a run pending an
	// external event (e.g. a human confirmation) rather than a retry.
	// None of the currently compiled graphs emit it, and a NodeFunc has no
	// way to set it: it only receives the typed state S. The run loop
	// treats it as a terminal state like Succeeded/Failed.
	StatusPaused RunStatus = "paused"
	// StatusSucceeded is the terminal state after the graph reaches End.
	StatusSucceeded RunStatus = "succeeded"
	// StatusFailed is the terminal state after a permanent node failure,
	// retry exhaustion, or cancellation.
	StatusFailed RunStatus = "failed"
)

// NodeOutcome records one node execution in a run's history, including how
// many attempts it took.
type NodeOutcome struct {
	Node     string
	Attempts int
	Error    string `json:",omitempty"`
}

// RunInput is the payload passed to Engine.StartWorkflow for a graph run.
type RunInput[S any] struct {
	SessionID string
	State     S
}

// snapshotHeader is the status-only subset of a runSnapshot[S], allowing
// Status to report a run's progress without knowing the graph's state type.
type snapshotHeader struct {
	Kind        string
	SessionID   string
	CurrentNode string
	Status      RunStatus
	Error       string `json:",omitempty"`
}

// runSnapshot is the full checkpointed payload for a graph run.
type runSnapshot[S any] struct {
	snapshotHeader
	State   S
	History []NodeOutcome
}

// StatusSnapshot is the result of Status: a run's current node and lifecycle
// state, without its typed domain state.
type StatusSnapshot struct {
	Kind        string
	SessionID   string
	CurrentNode string
	Status      RunStatus
	Error       string
}

// decodeValue coerces input into T. Engines that round-trip activity/
// workflow input through JSON (Temporal's default data converter) deliver
// it back as a generic map rather than the original concrete type, so a
// direct type assertion is tried first and a marshal/unmarshal round trip
// is the fallback.
func decodeValue[T any](input any) (T, error) {
	if v, ok := input.(T); ok {
		return v, nil
	}
	var zero T
	data, err := json.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("workflow: marshal input: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("workflow: unmarshal input: %w", err)
	}
	return out, nil
}
