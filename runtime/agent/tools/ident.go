// Package tools defines the metadata primitives shared by the Tool Registry
// (runtime/toolregistry), the domain agents (agents/...), and the Orchestrator:
// a stable tool identifier type, the tool descriptor schema, JSON validation
// issue reporting, and the opt-in idempotency-key convention for mutating
// tools (SPEC_FULL.md §10).
package tools

// Ident is the strong type for a fully qualified, stable tool name
// (e.g. "bed.assign_bed_to_patient"). Using a distinct type instead of a bare
// string keeps tool names from being accidentally mixed with free-form text
// in registry maps and RPC payloads.
type Ident string

// String returns the identifier as a plain string.
func (i Ident) String() string { return string(i) }
