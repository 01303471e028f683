// Package agents implements the Domain Agents (spec.md §4.5): bounded
// contexts that validate input and register tools with the Tool Registry,
// delegating CRUD to repositories and cross-cutting operations to
// bedlifecycle.Manager and discharge.Aggregator.
package agents

import (
	"errors"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
)

// translateRepoErr maps a repository sentinel error to the uniform tool
// error taxonomy (spec.md §7). Any other error is treated as internal.
func translateRepoErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return toolerrors.NewWithCause(toolerrors.KindNotFound, "not found", err)
	case errors.Is(err, domain.ErrConflict):
		return toolerrors.NewWithCause(toolerrors.KindConflict, "conflicting state", err)
	default:
		return toolerrors.NewWithCause(toolerrors.KindInternal, "internal error", err)
	}
}
