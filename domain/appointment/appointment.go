// Package appointment defines the Appointment entity (spec.md §3).
package appointment

import (
	"context"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
)

// Status is an appointment's lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Appointment is a scheduled patient/doctor encounter. No two scheduled
// appointments for the same DoctorID may overlap in time.
type Appointment struct {
	ID        string
	PatientID string
	DoctorID  string
	StartAt   time.Time
	Duration  time.Duration
	Status    Status
}

// Repository persists Appointment rows. Create must reject a scheduling
// conflict (overlapping StatusScheduled appointment for the same doctor)
// with domain.ErrConflict.
type Repository interface {
	Create(ctx context.Context, a Appointment) (Appointment, error)
	Get(ctx context.Context, id string) (Appointment, error)
	Update(ctx context.Context, a Appointment) (Appointment, error)
	ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]Appointment, error)
	// ListByDoctor supports the doctor-overlap check at scheduling time.
	ListByDoctor(ctx context.Context, doctorID string, window domain.TimeWindow) ([]Appointment, error)
}
