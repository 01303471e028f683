// Package toolregistry implements the Tool Registry (spec.md §4.1): the
// central, process-wide catalog of every action the LLM function-calling
// loop or the RPC Boundary may invoke. It is grounded on the teacher's own
// distributed tool-registry gateway (runtime/toolregistry/{provider,executor},
// pre-trim) but adapted from "route a call over a Pulse/Redis stream to an
// out-of-process provider" to "validate and dispatch in-process" — this core
// has no separate tool-provider process to route to (SPEC_FULL.md §2.1, §4.0).
package toolregistry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/careflow-systems/hospital-core/runtime/agent/telemetry"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
)

// RegistrationError is returned by Register when a tool name is already taken
// (spec.md §4.1, §8 property 1).
type RegistrationError struct {
	Name tools.Ident
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("toolregistry: tool %q already registered", e.Name)
}

// Result is the outcome of Call: the uniform tool envelope minus the
// transport-specific trace_id, which callers (RPC Boundary, Orchestrator)
// attach themselves (spec.md §4.5, §6).
type Result struct {
	OK        bool
	Data      any
	ErrorKind toolerrors.Kind
	ErrorMsg  string
	Issues    []tools.FieldIssue
}

// TraceEntry is recorded for every Call, successful or not (spec.md §4.1
// guarantee (b)).
type TraceEntry struct {
	Tool       tools.Ident
	ArgsDigest string
	DurationMs int64
	Outcome    string // "ok", "invalid_arguments", "<error_kind>"
	At         time.Time
}

// TraceObserver receives a TraceEntry after every Call. Implementations must
// not block the caller for long; the registry invokes the observer
// synchronously on the calling goroutine.
type TraceObserver interface {
	Observe(ctx context.Context, entry TraceEntry)
}

// TraceObserverFunc adapts a function to TraceObserver.
type TraceObserverFunc func(ctx context.Context, entry TraceEntry)

// Observe calls f.
func (f TraceObserverFunc) Observe(ctx context.Context, entry TraceEntry) { f(ctx, entry) }

type compiledTool struct {
	spec   tools.ToolSpec
	input  *jsonschema.Schema
	output *jsonschema.Schema
}

// Registry is the process-wide tool catalog described by spec.md §4.1. It is
// read-mostly after startup: Register is only ever called during agent
// construction (spec.md §5 "Shared resource policy"), and Call/List/Describe
// may run concurrently from many goroutines without further locking beyond
// the registration mutex.
type Registry struct {
	mu    sync.RWMutex
	order []tools.Ident
	tools map[tools.Ident]*compiledTool

	observers []TraceObserver
	idemp     *tools.IdempotencyTracker

	logger telemetry.Logger
	tracer telemetry.Tracer
	clock  func() time.Time
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLogger sets the structured logger used for dispatch diagnostics.
func WithLogger(l telemetry.Logger) Option { return func(r *Registry) { r.logger = l } }

// WithTracer sets the tracer used to span each Call.
func WithTracer(t telemetry.Tracer) Option { return func(r *Registry) { r.tracer = t } }

// WithTraceObserver registers an additional TraceObserver; may be called
// multiple times to fan out to several sinks.
func WithTraceObserver(o TraceObserver) Option {
	return func(r *Registry) { r.observers = append(r.observers, o) }
}

// WithClock overrides the time source (tests only).
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.clock = now } }

// New constructs an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		tools: make(map[tools.Ident]*compiledTool),
		idemp: tools.NewIdempotencyTracker(5 * time.Minute),
		clock: time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = telemetry.NoopLogger{}
	}
	if r.tracer == nil {
		r.tracer = telemetry.NoopTracer{}
	}
	return r
}

// Register adds a tool descriptor to the catalog. Tool names are immutable
// after registration (spec.md §4.1 guarantee (a)); a duplicate name returns
// *RegistrationError and the registry is left unchanged.
func (r *Registry) Register(spec tools.ToolSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("toolregistry: tool name is required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("toolregistry: tool %q has no handler", spec.Name)
	}

	var input, output *jsonschema.Schema
	var err error
	if len(spec.InputSchema) > 0 {
		if input, err = compileSchema(spec.Name.String()+"#input", spec.InputSchema); err != nil {
			return fmt.Errorf("toolregistry: compile input schema for %q: %w", spec.Name, err)
		}
	}
	if len(spec.OutputSchema) > 0 {
		if output, err = compileSchema(spec.Name.String()+"#output", spec.OutputSchema); err != nil {
			return fmt.Errorf("toolregistry: compile output schema for %q: %w", spec.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[spec.Name]; dup {
		return &RegistrationError{Name: spec.Name}
	}
	r.tools[spec.Name] = &compiledTool{spec: spec, input: input, output: output}
	r.order = append(r.order, spec.Name)
	return nil
}

func compileSchema(resourceName string, raw json.RawMessage) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, err
	}
	return c.Compile(resourceName)
}

// Descriptor is the LLM/operator-facing view of a tool: everything from
// ToolSpec except the Handler (spec.md §4.1 `list()`).
type Descriptor struct {
	Name          tools.Ident
	OwningAgent   string
	Description   string
	InputSchema   json.RawMessage
	OutputSchema  json.RawMessage
	SideEffecting bool
	Idempotent    bool
	// Confirmation is non-nil when the Orchestrator must obtain an explicit
	// affirmative answer from the end user before calling this tool
	// (SPEC_FULL.md §10). The registry itself does not enforce this gate —
	// confirmation happens above the call boundary, in the chat loop, since
	// only the Orchestrator has a channel back to the end user.
	Confirmation *tools.ConfirmationSpec
}

// List returns descriptors for every registered tool, in registration order,
// suitable for LLM function-calling catalog generation (spec.md §4.1, §6).
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		ct := r.tools[name]
		out = append(out, Descriptor{
			Name:          ct.spec.Name,
			OwningAgent:   ct.spec.OwningAgent,
			Description:   ct.spec.Description,
			InputSchema:   ct.spec.InputSchema,
			OutputSchema:  ct.spec.OutputSchema,
			SideEffecting: ct.spec.SideEffecting,
			Idempotent:    ct.spec.Idempotent,
			Confirmation:  ct.spec.Confirmation,
		})
	}
	return out
}

// Describe returns the descriptor for a single tool.
func (r *Registry) Describe(name tools.Ident) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.tools[name]
	if !ok {
		return Descriptor{}, false
	}
	return Descriptor{
		Name:          ct.spec.Name,
		OwningAgent:   ct.spec.OwningAgent,
		Description:   ct.spec.Description,
		InputSchema:   ct.spec.InputSchema,
		OutputSchema:  ct.spec.OutputSchema,
		SideEffecting: ct.spec.SideEffecting,
		Idempotent:    ct.spec.Idempotent,
		Confirmation:  ct.spec.Confirmation,
	}, true
}

// IsSideEffecting reports whether name is registered and marked side-effecting.
// The Orchestrator's post-operation hook (spec.md §4.6) uses this instead of a
// hard-coded tool-name list where possible.
func (r *Registry) IsSideEffecting(name tools.Ident) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.tools[name]
	return ok && ct.spec.SideEffecting
}

// Call validates arguments against the tool's input schema and, on success,
// dispatches to its handler (spec.md §4.1 `call()`). Validation failure never
// invokes the handler (spec.md §4.1 guarantee (c), §8 property 2). Every call,
// successful or not, records a TraceEntry (spec.md §4.1 guarantee (b)).
func (r *Registry) Call(ctx context.Context, name tools.Ident, args json.RawMessage) Result {
	start := r.clock()
	ctx, span := r.tracer.Start(ctx, "toolregistry.call")
	defer span.End()

	r.mu.RLock()
	ct, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		res := Result{ErrorKind: toolerrors.KindNotFound, ErrorMsg: fmt.Sprintf("unknown tool %q", name)}
		r.trace(ctx, name, args, start, "not_found")
		return res
	}

	if ct.input != nil {
		if issues := validateAgainstSchema(ct.input, args); len(issues) > 0 {
			r.trace(ctx, name, args, start, "invalid_arguments")
			return Result{ErrorKind: toolerrors.KindInvalidArguments, ErrorMsg: "arguments failed schema validation", Issues: issues}
		}
	}

	if ct.spec.Idempotent {
		key := tools.ExtractIdempotencyKey(args)
		if result, err, found := r.idemp.Lookup(name, key, start); found {
			r.logger.Debug(ctx, "toolregistry: idempotent replay", "tool", name, "idempotency_key", key)
			res := toResult(result, err)
			outcome := "ok"
			if !res.OK {
				outcome = string(res.ErrorKind)
			}
			r.trace(ctx, name, args, start, outcome)
			return res
		}
	}

	result, err := ct.spec.Handler(ctx, args)

	if ct.spec.Idempotent {
		key := tools.ExtractIdempotencyKey(args)
		r.idemp.Record(name, key, result, err, start)
	}

	res := toResult(result, err)
	outcome := "ok"
	if !res.OK {
		outcome = string(res.ErrorKind)
	}
	r.trace(ctx, name, args, start, outcome)
	return res
}

func toResult(result any, err error) Result {
	if err == nil {
		return Result{OK: true, Data: result}
	}
	te := toolerrors.FromError(err)
	return Result{ErrorKind: te.EffectiveKind(), ErrorMsg: te.Error()}
}

func (r *Registry) trace(ctx context.Context, name tools.Ident, args json.RawMessage, start time.Time, outcome string) {
	entry := TraceEntry{
		Tool:       name,
		ArgsDigest: digest(args),
		DurationMs: r.clock().Sub(start).Milliseconds(),
		Outcome:    outcome,
		At:         start,
	}
	for _, o := range r.observers {
		o.Observe(ctx, entry)
	}
}

func digest(args json.RawMessage) string {
	sum := sha256.Sum256(args)
	return hex.EncodeToString(sum[:8])
}

func validateAgainstSchema(schema *jsonschema.Schema, args json.RawMessage) []tools.FieldIssue {
	var doc any
	if len(args) == 0 {
		doc = map[string]any{}
	} else if err := json.Unmarshal(args, &doc); err != nil {
		return []tools.FieldIssue{{Field: "", Constraint: "invalid_json"}}
	}
	if err := schema.Validate(doc); err != nil {
		return issuesFromValidationError(err)
	}
	return nil
}

func issuesFromValidationError(err error) []tools.FieldIssue {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []tools.FieldIssue{{Field: "", Constraint: "invalid_field_type"}}
	}
	var issues []tools.FieldIssue
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		field := strings.Join(e.InstanceLocation, "/")
		constraint := "invalid_field_type"
		if e.ErrorKind != nil {
			constraint = classifyErrorKind(e.ErrorKind)
		}
		issues = append(issues, tools.FieldIssue{Field: field, Constraint: constraint})
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return issues
}

func classifyErrorKind(k kind.ErrorKind) string {
	switch k.(type) {
	case *kind.Required:
		return "missing_field"
	case *kind.Enum:
		return "invalid_enum_value"
	case *kind.Format:
		return "invalid_format"
	case *kind.Pattern:
		return "invalid_pattern"
	case *kind.MinProperties, *kind.MaxProperties, *kind.MinItems, *kind.MaxItems:
		return "invalid_length"
	case *kind.Minimum, *kind.Maximum, *kind.ExclusiveMinimum, *kind.ExclusiveMaximum:
		return "invalid_range"
	default:
		return "invalid_field_type"
	}
}
