// Package orchestrator implements the Orchestrator (spec.md §4.6): the
// chat-turn loop that drives the LLM function-calling round trip against the
// Tool Registry, on top of the bounded conversation memory in
// runtime/session. It is grounded on the teacher's
// runtime/agent/runtime/workflow_loop.go and workflow_turn.go (the same
// "keep looping while the planner returns tool calls, finalize otherwise"
// shape), simplified from a durable Temporal-style workflow loop to a plain
// synchronous request handler since a chat turn has no business surviving a
// process restart mid-turn (SPEC_FULL.md §4.6).
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/careflow-systems/hospital-core/bedlifecycle"
	"github.com/careflow-systems/hospital-core/llm"
	"github.com/careflow-systems/hospital-core/runtime/agent/model"
	"github.com/careflow-systems/hospital-core/runtime/agent/telemetry"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/session"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

const (
	// DefaultMaxToolRounds is the chat turn's default ceiling on LLM/tool
	// round trips before the turn fails with max_tool_rounds_reached
	// (spec.md §4.6).
	DefaultMaxToolRounds = 6

	// DefaultConversationWindowSize is the default number of most-recent
	// messages sent to the LLM per turn, independent of how many messages a
	// session retains (spec.md §4.6, SPEC_FULL.md §10).
	DefaultConversationWindowSize = 32

	// DefaultTurnTimeout bounds an entire chat turn wall-clock, per
	// spec.md §5 "Cancellation and timeout defaults".
	DefaultTurnTimeout = 120 * time.Second
)

// Options configures an Orchestrator. Zero values fall back to the defaults
// above and to no-op telemetry.
type Options struct {
	MaxToolRounds          int
	ConversationWindowSize int
	TurnTimeout            time.Duration

	// BedManager runs the post-operation bed sweep hook (spec.md §4.6) after
	// any bed-affecting tool call. Nil disables the hook, which is only
	// acceptable in tests that never register the bed agent.
	BedManager *bedlifecycle.Manager

	Logger  telemetry.Logger
	Metrics telemetry.Metrics

	// Now overrides the clock (tests only); nil uses time.Now.
	Now func() time.Time
}

// Orchestrator implements the chat-turn algorithm of spec.md §4.6: append the
// user message, call the LLM with the session transcript and the Tool
// Registry's catalog, dispatch any requested tool calls, and loop until the
// model stops requesting tools or the round cap is reached.
type Orchestrator struct {
	registry *toolregistry.Registry
	router   *llm.Router
	sessions session.Store

	maxToolRounds int
	windowSize    int
	turnTimeout   time.Duration

	bedManager *bedlifecycle.Manager

	logger  telemetry.Logger
	metrics telemetry.Metrics
	now     func() time.Time
}

// New constructs an Orchestrator over the given Tool Registry, LLM router,
// and session store.
func New(registry *toolregistry.Registry, router *llm.Router, sessions session.Store, opts Options) *Orchestrator {
	o := &Orchestrator{
		registry:      registry,
		router:        router,
		sessions:      sessions,
		maxToolRounds: opts.MaxToolRounds,
		windowSize:    opts.ConversationWindowSize,
		turnTimeout:   opts.TurnTimeout,
		bedManager:    opts.BedManager,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		now:           opts.Now,
	}
	if o.maxToolRounds <= 0 {
		o.maxToolRounds = DefaultMaxToolRounds
	}
	if o.windowSize <= 0 {
		o.windowSize = DefaultConversationWindowSize
	}
	if o.turnTimeout <= 0 {
		o.turnTimeout = DefaultTurnTimeout
	}
	if o.logger == nil {
		o.logger = telemetry.NoopLogger{}
	}
	if o.metrics == nil {
		o.metrics = telemetry.NoopMetrics{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// ToolCallRecord reports one dispatched tool call and its outcome, for
// callers (the RPC Boundary) that want to show the user what happened during
// a turn (spec.md §4.6 `tool_calls[]`).
type ToolCallRecord struct {
	Name      tools.Ident
	Arguments json.RawMessage
	OK        bool
	ErrorKind toolerrors.Kind
	ErrorMsg  string
}

// ChatTurnResult is the outcome of one HandleMessage call (spec.md §4.6).
type ChatTurnResult struct {
	SessionID     string
	AssistantText string
	ToolCalls     []ToolCallRecord
}

// HandleMessage runs one full chat turn for sessionID: append the user
// message, loop the LLM/tool round trip, and append the final assistant
// message (spec.md §4.6).
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, userID *string, text string) (ChatTurnResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	if _, err := o.sessions.GetOrCreate(ctx, sessionID, userID, o.now()); err != nil {
		return ChatTurnResult{}, fmt.Errorf("orchestrator: get or create session: %w", err)
	}
	userMsg := model.Message{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: text}}}
	sess, err := o.sessions.AppendMessage(ctx, sessionID, userMsg, o.now())
	if err != nil {
		return ChatTurnResult{}, fmt.Errorf("orchestrator: append user message: %w", err)
	}

	hint, matched := classifyComplexRequest(text)
	window := windowMessages(sess.Messages, o.windowSize)
	if matched {
		window = append(window, model.Message{Role: model.ConversationRoleSystem, Parts: []model.Part{model.TextPart{Text: hint}}})
	}

	toolDefs := toolDefinitions(o.registry.List())
	var toolCalls []ToolCallRecord

	for round := 0; ; round++ {
		resp, err := o.router.Complete(ctx, &model.Request{Messages: toMessagePointers(window), Tools: toolDefs})
		if err != nil {
			return ChatTurnResult{}, fmt.Errorf("orchestrator: llm completion: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			assistantText := textOf(resp.Content)
			assistantMsg := model.Message{Role: model.ConversationRoleAssistant, Parts: []model.Part{model.TextPart{Text: assistantText}}}
			if _, err := o.sessions.AppendMessage(ctx, sessionID, assistantMsg, o.now()); err != nil {
				return ChatTurnResult{}, fmt.Errorf("orchestrator: append assistant message: %w", err)
			}
			return ChatTurnResult{SessionID: sessionID, AssistantText: assistantText, ToolCalls: toolCalls}, nil
		}

		if round >= o.maxToolRounds {
			return ChatTurnResult{}, toolerrors.New(toolerrors.KindMaxToolRounds, "max tool rounds reached for this turn")
		}

		assistantTurn := model.Message{Role: model.ConversationRoleAssistant, Parts: toolUseParts(resp.ToolCalls)}
		window = append(window, assistantTurn)
		if _, err := o.sessions.AppendMessage(ctx, sessionID, assistantTurn, o.now()); err != nil {
			return ChatTurnResult{}, fmt.Errorf("orchestrator: append assistant tool_use turn: %w", err)
		}

		resultParts := make([]model.Part, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			if desc, ok := o.registry.Describe(call.Name); ok {
				if pending, gated := needsConfirmation(desc, call.Payload); gated {
					toolCalls = append(toolCalls, ToolCallRecord{Name: call.Name, Arguments: call.Payload, OK: true})
					resultParts = append(resultParts, model.ToolResultPart{ToolUseID: call.ID, Content: pending, IsError: false})
					continue
				}
			}

			result := o.registry.Call(ctx, call.Name, call.Payload)
			toolCalls = append(toolCalls, ToolCallRecord{
				Name:      call.Name,
				Arguments: call.Payload,
				OK:        result.OK,
				ErrorKind: result.ErrorKind,
				ErrorMsg:  result.ErrorMsg,
			})

			o.runPostOperationHook(ctx, call.Name, result.OK)

			resultParts = append(resultParts, model.ToolResultPart{
				ToolUseID: call.ID,
				Content:   toolResultContent(result),
				IsError:   !result.OK,
			})
		}
		resultTurn := model.Message{Role: model.ConversationRoleUser, Parts: resultParts}
		window = append(window, resultTurn)
		if _, err := o.sessions.AppendMessage(ctx, sessionID, resultTurn, o.now()); err != nil {
			return ChatTurnResult{}, fmt.Errorf("orchestrator: append tool result turn: %w", err)
		}
	}
}

// runPostOperationHook synchronously sweeps expired cleaning beds after any
// successful bed-affecting tool call (spec.md §4.6): "after discharge_bed,
// assign_bed_to_patient, update_bed_status, create_bed_turnover, or
// auto_update_expired_cleaning_beds". Rather than hard-code that tool-name
// list, it asks the registry which agent owns the tool and whether the tool
// is side-effecting, since the registry already tracks exactly that
// (toolregistry.Registry.IsSideEffecting's own doc comment). Hook failures
// are logged, never propagated to the original call.
func (o *Orchestrator) runPostOperationHook(ctx context.Context, name tools.Ident, callSucceeded bool) {
	if o.bedManager == nil || !callSucceeded {
		return
	}
	desc, ok := o.registry.Describe(name)
	if !ok || desc.OwningAgent != "bed" || !desc.SideEffecting {
		return
	}
	if name == "bed.auto_update_expired_cleaning_beds" {
		return
	}
	if _, err := o.bedManager.SweepExpired(ctx); err != nil {
		o.logger.Warn(ctx, "orchestrator: post-operation bed sweep failed", "tool", name.String(), "error", err.Error())
	}
}

// windowMessages returns the last n messages of msgs (spec.md §4.6 "bounded
// message window").
func windowMessages(msgs []model.Message, n int) []model.Message {
	if len(msgs) <= n {
		out := make([]model.Message, len(msgs))
		copy(out, msgs)
		return out
	}
	out := make([]model.Message, n)
	copy(out, msgs[len(msgs)-n:])
	return out
}

func toMessagePointers(msgs []model.Message) []*model.Message {
	out := make([]*model.Message, len(msgs))
	for i := range msgs {
		m := msgs[i]
		out[i] = &m
	}
	return out
}

func toolDefinitions(descs []toolregistry.Descriptor) []*model.ToolDefinition {
	out := make([]*model.ToolDefinition, 0, len(descs))
	for _, d := range descs {
		out = append(out, &model.ToolDefinition{
			Name:        d.Name.String(),
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	return out
}

func toolUseParts(calls []model.ToolCall) []model.Part {
	out := make([]model.Part, len(calls))
	for i, c := range calls {
		var input any = json.RawMessage(c.Payload)
		out[i] = model.ToolUsePart{ID: c.ID, Name: c.Name.String(), Input: input}
	}
	return out
}

func toolResultContent(result toolregistry.Result) any {
	if result.OK {
		return result.Data
	}
	return map[string]any{"error_kind": string(result.ErrorKind), "error_message": result.ErrorMsg}
}

func textOf(msgs []model.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		for _, p := range m.Parts {
			if tp, ok := p.(model.TextPart); ok {
				b.WriteString(tp.Text)
			}
		}
	}
	return b.String()
}
