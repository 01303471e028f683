// Package workflows compiles the three graphs spec.md §4.4 names —
// admission, clinical decision, document processing — on top of the generic
// runtime/workflow engine. Every node reaches the Tool Registry through a
// single registered activity rather than calling it in-process, since
// runtime/engine.WorkflowContext requires all I/O to cross an activity
// boundary for replay-safety on a Temporal-backed engine (SPEC_FULL.md §2.1).
package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/engine"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
	"github.com/careflow-systems/hospital-core/runtime/workflow"
)

const (
	// toolCallActivityName is the one activity every compiled graph's nodes
	// use to reach the Tool Registry.
	toolCallActivityName = "workflows.call_tool"
	// sleepActivityName backs the bounded delay in the admission graph's
	// wait_or_fail node. It is distinct from runtime/workflow's own internal
	// backoff activity, which is private to that package.
	sleepActivityName = "workflows.sleep"
)

// RegisterActivities registers every activity the graphs built in this
// package depend on. It must be called once per engine.Engine, before any
// graph whose nodes use callTool or the wait_or_fail sleep is registered or
// started.
func RegisterActivities(ctx context.Context, eng engine.Engine, reg *toolregistry.Registry) error {
	if err := eng.RegisterActivity(ctx, engine.ActivityDefinition{
		Name:    toolCallActivityName,
		Handler: toolCallHandler(reg),
	}); err != nil {
		return fmt.Errorf("workflows: register tool-call activity: %w", err)
	}
	if err := eng.RegisterActivity(ctx, engine.ActivityDefinition{
		Name:    sleepActivityName,
		Handler: sleepActivityHandler,
	}); err != nil {
		return fmt.Errorf("workflows: register sleep activity: %w", err)
	}
	return nil
}

type toolCallInput struct {
	Name tools.Ident
	Args json.RawMessage
}

type toolCallOutput struct {
	OK        bool
	Data      json.RawMessage
	ErrorKind string
	ErrorMsg  string
}

func toolCallHandler(reg *toolregistry.Registry) engine.ActivityFunc {
	return func(ctx context.Context, input any) (any, error) {
		in, err := decodeActivityInput[toolCallInput](input)
		if err != nil {
			return nil, err
		}
		res := reg.Call(ctx, in.Name, in.Args)
		data, err := json.Marshal(res.Data)
		if err != nil {
			return nil, fmt.Errorf("workflows: marshal tool result for %s: %w", in.Name, err)
		}
		return toolCallOutput{
			OK:        res.OK,
			Data:      data,
			ErrorKind: string(res.ErrorKind),
			ErrorMsg:  res.ErrorMsg,
		}, nil
	}
}

// retriableToolErrorKinds are the error_kind values (spec.md §7) worth
// retrying at the node level rather than failing the run outright.
var retriableToolErrorKinds = map[string]bool{
	"timeout":            true,
	"transient_upstream": true,
}

// callTool invokes name through the Tool Registry activity and decodes its
// result into T. A retriable error_kind is wrapped with workflow.Transient
// so the node is retried per the graph's backoff policy (spec.md §4.4);
// every other failure, including one scheduling the activity itself, is
// workflow.Permanent.
func callTool[T any](wc engine.WorkflowContext, name tools.Ident, args any) (T, error) {
	var zero T
	raw, err := json.Marshal(args)
	if err != nil {
		return zero, workflow.Permanent(fmt.Errorf("workflows: marshal args for %s: %w", name, err))
	}

	var out toolCallOutput
	if err := wc.ExecuteActivity(wc.Context(), engine.ActivityRequest{
		Name:  toolCallActivityName,
		Input: toolCallInput{Name: name, Args: raw},
	}, &out); err != nil {
		return zero, workflow.Permanent(fmt.Errorf("workflows: schedule %s: %w", name, err))
	}

	if !out.OK {
		callErr := fmt.Errorf("workflows: tool %s failed (%s): %s", name, out.ErrorKind, out.ErrorMsg)
		if retriableToolErrorKinds[out.ErrorKind] {
			return zero, workflow.Transient(callErr)
		}
		return zero, workflow.Permanent(callErr)
	}

	if len(out.Data) == 0 || string(out.Data) == "null" {
		return zero, nil
	}
	if err := json.Unmarshal(out.Data, &zero); err != nil {
		return zero, workflow.Permanent(fmt.Errorf("workflows: decode result of %s: %w", name, err))
	}
	return zero, nil
}

type sleepInput struct {
	Milliseconds int64
}

func sleepActivityHandler(ctx context.Context, input any) (any, error) {
	in, err := decodeActivityInput[sleepInput](input)
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(time.Duration(in.Milliseconds) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// decodeActivityInput coerces an activity's generic input into T. Engines
// that round-trip activity input through JSON deliver it back as a generic
// map rather than the original concrete type, so a direct type assertion is
// tried first and a marshal/unmarshal round trip is the fallback (mirrors
// runtime/workflow.decodeValue).
func decodeActivityInput[T any](input any) (T, error) {
	if v, ok := input.(T); ok {
		return v, nil
	}
	var zero T
	data, err := json.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("workflows: marshal activity input: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("workflows: unmarshal activity input: %w", err)
	}
	return out, nil
}
