package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/runtime/engine"
	"github.com/careflow-systems/hospital-core/runtime/engine/inmem"
	"github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint"
	ckptinmem "github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint/inmem"
)

type counterState struct {
	Visited []string
	Count   int
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	we, err := New(inmem.New(inmem.Options{}), ckptinmem.New(), Options{NodeRetryMax: 3})
	require.NoError(t, err)
	return we
}

func TestRunGraphSucceeds(t *testing.T) {
	we := newTestEngine(t)
	ctx := context.Background()

	g := Graph[counterState]{
		Kind:  "two-step",
		Start: "first",
		Nodes: map[string]Node[counterState]{
			"first": {Name: "first", Run: func(_ engine.WorkflowContext, s *counterState) (string, error) {
				s.Visited = append(s.Visited, "first")
				return "second", nil
			}},
			"second": {Name: "second", Run: func(_ engine.WorkflowContext, s *counterState) (string, error) {
				s.Visited = append(s.Visited, "second")
				return End, nil
			}},
		},
	}
	require.NoError(t, RegisterGraph(ctx, we, g))

	_, err := Start(ctx, we, g.Kind, "sess-1", counterState{})
	require.NoError(t, err)

	final, err := Await[counterState](ctx, we, g.Kind, "sess-1")
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, final.Visited)

	status, err := Status(ctx, we, g.Kind, "sess-1")
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, status.Status)
	require.Equal(t, End, status.CurrentNode)
}

func TestRunGraphRetriesTransientThenSucceeds(t *testing.T) {
	we := newTestEngine(t)
	ctx := context.Background()

	var attempts int32
	g := Graph[counterState]{
		Kind:  "flaky",
		Start: "flaky",
		Nodes: map[string]Node[counterState]{
			"flaky": {Name: "flaky", RetryMax: 3, Run: func(_ engine.WorkflowContext, s *counterState) (string, error) {
				if atomic.AddInt32(&attempts, 1) < 3 {
					return "", Transient(context.DeadlineExceeded)
				}
				s.Count = 1
				return End, nil
			}},
		},
	}
	require.NoError(t, RegisterGraph(ctx, we, g))

	_, err := Start(ctx, we, g.Kind, "sess-2", counterState{})
	require.NoError(t, err)

	final, err := Await[counterState](ctx, we, g.Kind, "sess-2")
	require.NoError(t, err)
	require.Equal(t, 1, final.Count)
	require.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRunGraphFailsOnPermanentError(t *testing.T) {
	we := newTestEngine(t)
	ctx := context.Background()

	g := Graph[counterState]{
		Kind:  "doomed",
		Start: "bad",
		Nodes: map[string]Node[counterState]{
			"bad": {Name: "bad", Run: func(_ engine.WorkflowContext, _ *counterState) (string, error) {
				return "", Permanent(errBoom)
			}},
		},
	}
	require.NoError(t, RegisterGraph(ctx, we, g))

	_, err := Start(ctx, we, g.Kind, "sess-3", counterState{})
	require.NoError(t, err)

	_, err = Await[counterState](ctx, we, g.Kind, "sess-3")
	require.Error(t, err)

	status, err := Status(ctx, we, g.Kind, "sess-3")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, status.Status)
	require.Contains(t, status.Error, errBoom.Error())
}

func TestResumeContinuesFromLastCheckpoint(t *testing.T) {
	store := ckptinmem.New()
	we, err := New(inmem.New(inmem.Options{}), store, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	g := Graph[counterState]{
		Kind:  "resumable",
		Start: "first",
		Nodes: map[string]Node[counterState]{
			"first": {Name: "first", Run: func(_ engine.WorkflowContext, s *counterState) (string, error) {
				s.Visited = append(s.Visited, "first")
				return "second", nil
			}},
			"second": {Name: "second", Run: func(_ engine.WorkflowContext, s *counterState) (string, error) {
				s.Visited = append(s.Visited, "second")
				return End, nil
			}},
		},
	}
	require.NoError(t, RegisterGraph(ctx, we, g))

	key := checkpoint.Key{SessionID: "sess-4", WorkflowKind: g.Kind}
	body, err := json.Marshal(runSnapshot[counterState]{
		snapshotHeader: snapshotHeader{
			Kind: g.Kind, SessionID: "sess-4", CurrentNode: "second", Status: StatusRunning,
		},
		State: counterState{Visited: []string{"first"}},
	})
	require.NoError(t, err)
	_, err = store.Save(ctx, key, 0, body)
	require.NoError(t, err)

	_, err = Resume[counterState](ctx, we, g.Kind, "sess-4")
	require.NoError(t, err)

	final, err := Await[counterState](ctx, we, g.Kind, "sess-4")
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, final.Visited)
}

func TestCancelStopsRunningGraph(t *testing.T) {
	we := newTestEngine(t)
	ctx := context.Background()

	entered := make(chan struct{})
	g := Graph[counterState]{
		Kind:  "looping",
		Start: "loop",
		Nodes: map[string]Node[counterState]{
			"loop": {Name: "loop", Run: func(_ engine.WorkflowContext, s *counterState) (string, error) {
				s.Count++
				if s.Count == 1 {
					close(entered)
				}
				time.Sleep(time.Millisecond)
				return "loop", nil
			}},
		},
	}
	require.NoError(t, RegisterGraph(ctx, we, g))

	_, err := Start(ctx, we, g.Kind, "sess-5", counterState{})
	require.NoError(t, err)

	<-entered
	require.NoError(t, Cancel(ctx, we, g.Kind, "sess-5"))

	awaitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err = Await[counterState](awaitCtx, we, g.Kind, "sess-5")
	require.Error(t, err)

	status, err := Status(ctx, we, g.Kind, "sess-5")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, status.Status)
	require.Contains(t, status.Error, context.Canceled.Error())
}

var errBoom = errors.New("boom")
