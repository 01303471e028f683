package tracebuffer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func entry(tool string, at time.Time) toolregistry.TraceEntry {
	return toolregistry.TraceEntry{Tool: tools.Ident(tool), Outcome: "ok", At: at}
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	buf := New(10)
	base := time.Unix(0, 0)
	buf.Observe(context.Background(), entry("a", base))
	buf.Observe(context.Background(), entry("b", base.Add(time.Second)))
	buf.Observe(context.Background(), entry("c", base.Add(2*time.Second)))

	got := buf.Recent(0)
	require.Len(t, got, 3)
	require.Equal(t, tools.Ident("c"), got[0].Tool)
	require.Equal(t, tools.Ident("b"), got[1].Tool)
	require.Equal(t, tools.Ident("a"), got[2].Tool)
}

func TestRecentRespectsLimit(t *testing.T) {
	buf := New(10)
	for i := 0; i < 5; i++ {
		buf.Observe(context.Background(), entry("t", time.Unix(int64(i), 0)))
	}
	require.Len(t, buf.Recent(2), 2)
}

func TestObserveOverwritesOldestOnceFull(t *testing.T) {
	buf := New(2)
	buf.Observe(context.Background(), entry("first", time.Unix(0, 0)))
	buf.Observe(context.Background(), entry("second", time.Unix(1, 0)))
	buf.Observe(context.Background(), entry("third", time.Unix(2, 0)))

	got := buf.Recent(0)
	require.Len(t, got, 2)
	require.Equal(t, tools.Ident("third"), got[0].Tool)
	require.Equal(t, tools.Ident("second"), got[1].Tool)
}

func TestNewFallsBackToDefaultCapacity(t *testing.T) {
	buf := New(0)
	require.Equal(t, DefaultCapacity, buf.capacity)
}
