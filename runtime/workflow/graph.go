package workflow

import "github.com/careflow-systems/hospital-core/runtime/engine"

// End is the sentinel "next" value a NodeFunc returns to signal that the run
// has reached a terminal node and finished successfully.
const End = ""

// NodeFunc executes one node of a Graph, mutating state in place and
// returning the name of the next node to run (or End to finish). Errors
// should be wrapped with Transient or Permanent so the run loop can classify
// them; an unwrapped error is treated as permanent.
type NodeFunc[S any] func(wc engine.WorkflowContext, state *S) (next string, err error)

// Node is one vertex of a Graph.
type Node[S any] struct {
	// Name identifies the node within its graph; also recorded in run
	// history.
	Name string
	// Run is the node's transition function.
	Run NodeFunc[S]
	// RetryMax caps retry attempts for a transient failure at this node.
	// Zero uses the engine's default (workflow_node_retry_max).
	RetryMax int
}

// Graph is a directed graph of nodes over typed state S, compiled once via
// RegisterGraph and then started per session.
type Graph[S any] struct {
	// Kind names the graph; also the registered workflow name and the
	// workflow_kind half of every checkpoint key for runs of this graph.
	Kind string
	// Start is the name of the first node executed on a fresh run.
	Start string
	// Nodes indexes every node in the graph by name.
	Nodes map[string]Node[S]
}

// FailureKind classifies a node error for retry purposes.
type FailureKind int

const (
	// FailureTransient errors are retried (bounded by Node.RetryMax) with
	// backoff before the run fails.
	FailureTransient FailureKind = iota
	// FailurePermanent errors fail the run immediately, with no retry.
	FailurePermanent
)

// NodeError wraps a node's returned error with a FailureKind so the run loop
// knows whether to retry it.
type NodeError struct {
	Kind FailureKind
	Err  error
}

func (e *NodeError) Error() string { return e.Err.Error() }
func (e *NodeError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable node failure. Returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &NodeError{Kind: FailureTransient, Err: err}
}

// Permanent wraps err as a non-retryable node failure. Returns nil if err is
// nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &NodeError{Kind: FailurePermanent, Err: err}
}
