package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/careflow-systems/hospital-core/runtime/engine"
	"github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint"
)

const (
	// sleepActivityName is an internal activity used to implement
	// replay-safe backoff delays, since the plain engine.WorkflowContext
	// has no timer primitive of its own.
	sleepActivityName = "workflow.internal.sleep"
	// cancelSignalName is the reserved signal channel polled between node
	// executions to implement cooperative cancellation.
	cancelSignalName = "__cancel__"
	// defaultNodeRetryMax is workflow_node_retry_max's default (spec §6).
	defaultNodeRetryMax = 2

	backoffBase = 200 * time.Millisecond
	backoffMax  = 30 * time.Second
)

// Options configures an Engine.
type Options struct {
	// NodeRetryMax is the default per-node retry ceiling for transient
	// failures when a Node does not set its own RetryMax. Zero uses
	// defaultNodeRetryMax (workflow_node_retry_max's default of 2).
	NodeRetryMax int
}

// Engine runs compiled Graphs on top of an engine.Engine, checkpointing
// state at every node boundary.
type Engine struct {
	eng             engine.Engine
	store           checkpoint.Store
	defaultRetryMax int

	mu      sync.Mutex
	handles map[string]engine.WorkflowHandle
}

// New constructs an Engine and registers its internal backoff activity. e
// and store must be non-nil.
func New(e engine.Engine, store checkpoint.Store, opts Options) (*Engine, error) {
	if e == nil {
		return nil, fmt.Errorf("workflow: engine is required")
	}
	if store == nil {
		return nil, fmt.Errorf("workflow: checkpoint store is required")
	}
	retryMax := opts.NodeRetryMax
	if retryMax <= 0 {
		retryMax = defaultNodeRetryMax
	}

	we := &Engine{
		eng:             e,
		store:           store,
		defaultRetryMax: retryMax,
		handles:         make(map[string]engine.WorkflowHandle),
	}
	if err := we.eng.RegisterActivity(context.Background(), engine.ActivityDefinition{
		Name:    sleepActivityName,
		Handler: sleepActivityHandler,
	}); err != nil {
		return nil, fmt.Errorf("workflow: register backoff activity: %w", err)
	}
	return we, nil
}

type sleepInput struct {
	Duration time.Duration
}

func sleepActivityHandler(ctx context.Context, input any) (any, error) {
	in, err := decodeValue[sleepInput](input)
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(in.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func backoffDuration(attempt int) time.Duration {
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > backoffMax {
			return backoffMax
		}
	}
	return d
}

// RegisterGraph compiles g and registers it with the underlying engine as a
// workflow named g.Kind. Must be called before Start/Resume for that kind.
func RegisterGraph[S any](ctx context.Context, we *Engine, g Graph[S]) error {
	if g.Kind == "" {
		return fmt.Errorf("workflow: graph kind is required")
	}
	if _, ok := g.Nodes[g.Start]; !ok {
		return fmt.Errorf("workflow: graph %q start node %q is not defined", g.Kind, g.Start)
	}
	return we.eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: g.Kind,
		Handler: func(wc engine.WorkflowContext, input any) (any, error) {
			return runGraph(we, wc, g, input)
		},
	})
}

// Start launches a new run of the graph named kind for sessionID, with
// initial as its starting state.
func Start[S any](ctx context.Context, we *Engine, kind, sessionID string, initial S) (checkpoint.Key, error) {
	key := checkpoint.Key{SessionID: sessionID, WorkflowKind: kind}
	h, err := we.eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       key.String(),
		Workflow: kind,
		Input:    RunInput[S]{SessionID: sessionID, State: initial},
	})
	if err != nil {
		return checkpoint.Key{}, fmt.Errorf("workflow: start %q: %w", kind, err)
	}
	we.mu.Lock()
	we.handles[key.String()] = h
	we.mu.Unlock()
	return key, nil
}

// Resume restarts the graph named kind for sessionID after a process
// restart. The run loop reloads real state from the last checkpoint when one
// exists and is not terminal, so the zero value of S passed here is only
// ever used if no checkpoint is found (i.e. there was nothing to resume).
func Resume[S any](ctx context.Context, we *Engine, kind, sessionID string) (checkpoint.Key, error) {
	var zero S
	return Start[S](ctx, we, kind, sessionID, zero)
}

// Await blocks until the run started/resumed for (kind, sessionID) finishes,
// returning its final state.
func Await[S any](ctx context.Context, we *Engine, kind, sessionID string) (S, error) {
	var zero S
	key := checkpoint.Key{SessionID: sessionID, WorkflowKind: kind}

	we.mu.Lock()
	h, ok := we.handles[key.String()]
	we.mu.Unlock()
	if !ok {
		return zero, fmt.Errorf("workflow: no handle for %s (call Start or Resume first)", key)
	}

	var final S
	if err := h.Wait(ctx, &final); err != nil {
		return zero, err
	}
	return final, nil
}

// Status reports the current node and lifecycle status of the run for
// (kind, sessionID), read from its last checkpoint.
func Status(ctx context.Context, we *Engine, kind, sessionID string) (StatusSnapshot, error) {
	key := checkpoint.Key{SessionID: sessionID, WorkflowKind: kind}
	rec, err := we.store.Load(ctx, key)
	if err != nil {
		return StatusSnapshot{}, err
	}
	var hdr snapshotHeader
	if err := json.Unmarshal(rec.State, &hdr); err != nil {
		return StatusSnapshot{}, fmt.Errorf("workflow: parse checkpoint: %w", err)
	}
	return StatusSnapshot{
		Kind:        hdr.Kind,
		SessionID:   hdr.SessionID,
		CurrentNode: hdr.CurrentNode,
		Status:      hdr.Status,
		Error:       hdr.Error,
	}, nil
}

// Cancel requests cooperative cancellation of the running graph for
// (kind, sessionID). The run observes it at the next suspension point
// between node executions, not immediately.
func Cancel(ctx context.Context, we *Engine, kind, sessionID string) error {
	key := checkpoint.Key{SessionID: sessionID, WorkflowKind: kind}
	we.mu.Lock()
	h, ok := we.handles[key.String()]
	we.mu.Unlock()
	if !ok {
		return fmt.Errorf("workflow: no running handle for %s", key)
	}
	return h.Signal(ctx, cancelSignalName, true)
}

// runGraph is the node loop shared by every graph run. It is a free function
// (not a method) because Go does not allow a method to introduce type
// parameters beyond its receiver's.
func runGraph[S any](we *Engine, wc engine.WorkflowContext, g Graph[S], input any) (any, error) {
	ri, err := decodeValue[RunInput[S]](input)
	if err != nil {
		return nil, fmt.Errorf("workflow: decode run input: %w", err)
	}

	key := checkpoint.Key{SessionID: ri.SessionID, WorkflowKind: g.Kind}
	snap := runSnapshot[S]{
		snapshotHeader: snapshotHeader{
			Kind:        g.Kind,
			SessionID:   ri.SessionID,
			CurrentNode: g.Start,
			Status:      StatusRunning,
		},
		State: ri.State,
	}
	version := 0

	rec, loadErr := we.store.Load(wc.Context(), key)
	switch {
	case loadErr == nil:
		var resumed runSnapshot[S]
		if jerr := json.Unmarshal(rec.State, &resumed); jerr == nil && resumed.Status == StatusRunning {
			snap = resumed
			version = rec.Version
		}
	case errors.Is(loadErr, checkpoint.ErrNotFound):
		// fresh run: snap/version already set to the zero checkpoint above.
	default:
		return snap.State, fmt.Errorf("workflow: load checkpoint: %w", loadErr)
	}

	for snap.Status == StatusRunning {
		node, ok := g.Nodes[snap.CurrentNode]
		if !ok {
			snap.Status = StatusFailed
			snap.Error = fmt.Sprintf("node %q is not defined in graph %q", snap.CurrentNode, g.Kind)
		} else {
			next, attempts, runErr := runNodeWithRetry(we, wc, node, &snap.State)
			snap.History = append(snap.History, NodeOutcome{Node: node.Name, Attempts: attempts, Error: errString(runErr)})

			switch {
			case runErr != nil:
				snap.Status = StatusFailed
				snap.Error = runErr.Error()
			case next == End:
				snap.Status = StatusSucceeded
				snap.CurrentNode = End
			default:
				if _, ok := g.Nodes[next]; !ok {
					snap.Status = StatusFailed
					snap.Error = fmt.Sprintf("node %q returned undefined next node %q", node.Name, next)
				} else {
					snap.CurrentNode = next
				}
			}
		}

		// Cancellation is checked right after the node's external calls
		// complete and before the next node (or the final checkpoint)
		// starts, per the cooperative-cancellation suspension point.
		if snap.Status == StatusRunning && checkCancelled(wc) {
			snap.Status = StatusFailed
			snap.Error = context.Canceled.Error()
		}

		body, jerr := json.Marshal(snap)
		if jerr != nil {
			return snap.State, fmt.Errorf("workflow: marshal checkpoint: %w", jerr)
		}
		savedRec, serr := we.store.Save(wc.Context(), key, version, body)
		if serr != nil {
			return snap.State, fmt.Errorf("workflow: save checkpoint: %w", serr)
		}
		version = savedRec.Version
	}

	if snap.Status == StatusFailed {
		return snap.State, fmt.Errorf("workflow: run %q failed at node %q: %s", g.Kind, snap.CurrentNode, snap.Error)
	}
	return snap.State, nil
}

func runNodeWithRetry[S any](we *Engine, wc engine.WorkflowContext, node Node[S], state *S) (next string, attempts int, err error) {
	maxAttempts := node.RetryMax
	if maxAttempts <= 0 {
		maxAttempts = we.defaultRetryMax
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		n, runErr := node.Run(wc, state)
		if runErr == nil {
			return n, attempts, nil
		}

		var nerr *NodeError
		kind := FailurePermanent
		switch {
		case errors.As(runErr, &nerr):
			kind = nerr.Kind
		case errors.Is(runErr, context.DeadlineExceeded):
			kind = FailureTransient
		}

		if kind == FailurePermanent || attempt == maxAttempts {
			return "", attempts, unwrapNodeError(runErr)
		}
		if sleepErr := we.backoff(wc, attempt); sleepErr != nil {
			return "", attempts, sleepErr
		}
	}
	return "", attempts, fmt.Errorf("node %q exhausted retries", node.Name)
}

func (we *Engine) backoff(wc engine.WorkflowContext, attempt int) error {
	return wc.ExecuteActivity(wc.Context(), engine.ActivityRequest{
		Name:  sleepActivityName,
		Input: sleepInput{Duration: backoffDuration(attempt)},
	}, nil)
}

func checkCancelled(wc engine.WorkflowContext) bool {
	var payload bool
	return wc.SignalChannel(cancelSignalName).ReceiveAsync(&payload)
}

func unwrapNodeError(err error) error {
	var nerr *NodeError
	if errors.As(err, &nerr) {
		return nerr.Err
	}
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
