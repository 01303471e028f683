// Package toolerrors provides structured error types for tool invocation
// failures. ToolError preserves error chains and supports errors.Is/As, and
// carries the Kind that the Tool Registry surfaces verbatim in the uniform
// tool envelope (spec.md §7).
package toolerrors

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy surfaced in the uniform tool envelope
// (spec.md §7). An empty Kind is treated as KindInternal by callers that need
// a taxonomy value.
type Kind string

const (
	KindInvalidArguments  Kind = "invalid_arguments"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindStockInsufficient Kind = "stock_insufficient"
	KindPermissionDenied  Kind = "permission_denied"
	KindTimeout           Kind = "timeout"
	KindTransientUpstream Kind = "transient_upstream"
	KindPermanentUpstream Kind = "permanent_upstream"
	KindWorkflowCancelled Kind = "workflow_cancelled"
	KindMaxToolRounds     Kind = "max_tool_rounds_reached"
	KindInternal          Kind = "internal"
)

// ToolError represents a structured tool failure that preserves message and causal
// context while still implementing the standard error interface. Tool errors may be
// nested via Cause to retain rich diagnostics across retries and agent-as-tool hops.
type ToolError struct {
	// Message is the human-readable summary of the failure.
	Message string
	// Kind classifies the failure per the error taxonomy (spec.md §7).
	Kind Kind
	// Cause links to the underlying tool error, enabling error chains with errors.Is/As.
	Cause *ToolError
}

// New constructs a ToolError with the provided message and kind. Use when the
// failure does not wrap an underlying error but still requires structured
// reporting.
func New(kind Kind, message string) *ToolError {
	if message == "" {
		message = "tool error"
	}
	if kind == "" {
		kind = KindInternal
	}
	return &ToolError{Kind: kind, Message: message}
}

// NewWithCause constructs a ToolError that wraps an underlying error. The cause is
// converted into a ToolError chain so error metadata survives serialization while still
// supporting errors.Is/As through Unwrap.
func NewWithCause(kind Kind, message string, cause error) *ToolError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	if kind == "" {
		kind = KindInternal
	}
	return &ToolError{
		Kind:    kind,
		Message: message,
		Cause:   FromError(cause),
	}
}

// FromError converts an arbitrary error into a ToolError chain.
func FromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{
		Kind:    KindInternal,
		Message: err.Error(),
		Cause:   FromError(errors.Unwrap(err)),
	}
}

// Errorf formats according to a format specifier and returns the result as a
// ToolError of the given kind.
func Errorf(kind Kind, format string, args ...any) *ToolError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the underlying tool error to support errors.Is/As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// EffectiveKind returns e.Kind, falling back to KindInternal for a nil error
// or an unset Kind.
func (e *ToolError) EffectiveKind() Kind {
	if e == nil || e.Kind == "" {
		return KindInternal
	}
	return e.Kind
}
