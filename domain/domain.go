// Package domain holds the sentinel errors every entity repository (§3.1)
// returns, so agents can translate storage outcomes into the uniform tool
// error taxonomy (spec.md §7) without depending on a specific repository
// implementation's error types.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup by id or code finds no row.
	// Agents map this to error_kind "not_found".
	ErrNotFound = errors.New("domain: entity not found")

	// ErrConflict is returned when a write would violate a uniqueness or
	// state invariant (duplicate code, illegal status transition, stale
	// version). Agents map this to error_kind "conflict".
	ErrConflict = errors.New("domain: conflicting state")
)

// Page bounds a List query. Limit <= 0 means no limit: every row from
// Offset on is returned.
type Page struct {
	Offset int
	Limit  int
}

// TimeWindow bounds a query by [Start, End). A zero Start or End leaves that
// bound open — used for discharge episode windows (spec.md §4.3) and usage/assignment
// history queries.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}
