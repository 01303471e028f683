package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/runtime/tracebuffer"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func newTestSystemAgent(t *testing.T) (*toolregistry.Registry, *tracebuffer.Buffer) {
	t.Helper()
	traces := tracebuffer.New(10)
	reg := toolregistry.New(toolregistry.WithTraceObserver(traces))
	require.NoError(t, NewSystemAgent(traces).Register(reg))
	return reg, traces
}

func TestListRecentTracesReportsDispatchedCalls(t *testing.T) {
	reg, _ := newTestSystemAgent(t)

	reg.Call(context.Background(), "system.list_recent_traces", json.RawMessage(`{}`))
	reg.Call(context.Background(), "no.such.tool", json.RawMessage(`{}`))

	res := reg.Call(context.Background(), "system.list_recent_traces", json.RawMessage(`{"limit": 2}`))
	require.True(t, res.OK, "%+v", res)

	body := res.Data.(map[string]any)
	views := body["traces"].([]recentTraceView)
	require.Len(t, views, 2)
	require.Equal(t, "no.such.tool", views[0].Tool)
	require.Equal(t, "not_found", views[0].Outcome)
	require.Equal(t, "system.list_recent_traces", views[1].Tool)
	require.Equal(t, "ok", views[1].Outcome)
}

func TestListRecentTracesDefaultsToEveryHeldEntry(t *testing.T) {
	reg, _ := newTestSystemAgent(t)
	for i := 0; i < 3; i++ {
		reg.Call(context.Background(), "no.such.tool", json.RawMessage(`{}`))
	}

	res := reg.Call(context.Background(), "system.list_recent_traces", json.RawMessage(`{}`))
	require.True(t, res.OK, "%+v", res)
	views := res.Data.(map[string]any)["traces"].([]recentTraceView)
	require.Len(t, views, 3)
}
