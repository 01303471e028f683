// Package staffassignment defines the StaffAssignment entity (spec.md §3):
// append-only records tying staff to a patient's care team. Overlapping
// active assignments for the same patient are allowed (a care team).
package staffassignment

import (
	"context"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
)

// StaffAssignment is one staff member's tenure on a patient's care team.
type StaffAssignment struct {
	ID         string
	PatientID  string
	StaffID    string
	RoleOnCase string
	StartedAt  time.Time
	EndedAt    *time.Time
}

// Repository persists StaffAssignment rows.
type Repository interface {
	Create(ctx context.Context, a StaffAssignment) (StaffAssignment, error)
	Close(ctx context.Context, id string, endedAt time.Time) (StaffAssignment, error)
	ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]StaffAssignment, error)
}
