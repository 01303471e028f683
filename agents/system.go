package agents

import (
	"context"
	"encoding/json"

	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/tracebuffer"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// SystemAgent owns introspection tools that are not part of any hospital
// bounded context: the trace/audit trail over every tool call the registry
// has dispatched (SPEC_FULL.md §10).
type SystemAgent struct {
	traces *tracebuffer.Buffer
}

// NewSystemAgent constructs a SystemAgent backed by traces.
func NewSystemAgent(traces *tracebuffer.Buffer) *SystemAgent {
	return &SystemAgent{traces: traces}
}

// Register adds the system agent's tools to reg.
func (a *SystemAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "system.list_recent_traces",
			OwningAgent: "system",
			Description: "List the most recently dispatched tool calls, newest first, for operator audit and debugging.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {"type": "integer", "minimum": 1}
				}
			}`),
			Handler: a.listRecentTraces,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type recentTraceView struct {
	Tool       string `json:"tool"`
	ArgsDigest string `json:"args_digest"`
	DurationMs int64  `json:"duration_ms"`
	Outcome    string `json:"outcome"`
	At         string `json:"at"`
}

func (a *SystemAgent) listRecentTraces(_ context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Limit int `json:"limit"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
	}

	entries := a.traces.Recent(in.Limit)
	out := make([]recentTraceView, 0, len(entries))
	for _, e := range entries {
		out = append(out, recentTraceView{
			Tool:       e.Tool.String(),
			ArgsDigest: e.ArgsDigest,
			DurationMs: e.DurationMs,
			Outcome:    e.Outcome,
			At:         e.At.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return map[string]any{"traces": out}, nil
}
