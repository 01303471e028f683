// Package meeting defines the Meeting entity: a scheduled care-team
// discussion (case conference, family update) distinct from a patient
// Appointment, which always ties a single patient to a single doctor.
package meeting

import (
	"context"
	"time"
)

// Meeting is a scheduled discussion among staff, optionally about a patient.
type Meeting struct {
	ID        string
	Subject   string
	PatientID string
	StaffIDs  []string
	StartAt   time.Time
	Duration  time.Duration
	Notes     string
}

// Repository persists Meeting rows.
type Repository interface {
	Create(ctx context.Context, m Meeting) (Meeting, error)
	Get(ctx context.Context, id string) (Meeting, error)
	ListByStaff(ctx context.Context, staffID string) ([]Meeting, error)
}
