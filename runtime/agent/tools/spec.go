package tools

import (
	"context"
	"encoding/json"
)

type (
	// Handler executes a tool's business logic once the Tool Registry has
	// validated its arguments against InputSchema. Handlers return the raw
	// JSON result to encode in the envelope, or a *toolerrors.ToolError (as an
	// error) classifying the failure. Handlers never see invalid input: the
	// registry rejects it before Handler is invoked (spec.md §4.1 guarantee (c)).
	Handler func(ctx context.Context, args json.RawMessage) (result any, err error)

	// ConfirmationSpec declares a design-time confirmation requirement for a
	// tool (SPEC_FULL.md §10: equipment maintenance, staff deactivation).
	// When set, the Orchestrator must obtain an explicit affirmative answer
	// from the end user before the Tool Registry dispatches the call.
	ConfirmationSpec struct {
		// Title is shown in the confirmation prompt, when supported by the frontend.
		Title string
		// PromptTemplate is rendered against the tool arguments to build the
		// question shown to the user (Go text/template syntax).
		PromptTemplate string
	}

	// ToolSpec is the full descriptor for one registered tool: everything the
	// Tool Registry needs to validate, dispatch, and advertise it, and
	// everything the Orchestrator/RPC Boundary need to describe it to an LLM
	// or list it over `/tools/list` (spec.md §4.1, §4.7).
	ToolSpec struct {
		// Name is the stable, globally unique tool identifier.
		Name Ident
		// OwningAgent identifies the domain agent that registered this tool
		// (spec.md §4.5), e.g. "bed", "patient", "inventory".
		OwningAgent string
		// Description is shown to the LLM function-calling frontend and to
		// human operators via `/tools/list`.
		Description string
		// InputSchema is a JSON Schema (draft 2020-12, compiled with
		// santhosh-tekuri/jsonschema/v6) describing the argument shape.
		InputSchema json.RawMessage
		// OutputSchema is a JSON Schema describing the successful result shape.
		// Advertised for documentation; the registry does not validate outputs.
		OutputSchema json.RawMessage
		// SideEffecting marks a tool as mutating state, as opposed to a pure
		// read (spec.md §4.1). The Orchestrator's post-operation bed sweep hook
		// keys off this.
		SideEffecting bool
		// Idempotent enables idempotency-key de-duplication (SPEC_FULL.md §10)
		// for this tool when callers supply an `idempotency_key` argument.
		Idempotent bool
		// Confirmation optionally requires an explicit user confirmation before
		// dispatch (SPEC_FULL.md §10).
		Confirmation *ConfirmationSpec
		// Handler implements the tool.
		Handler Handler
	}
)
