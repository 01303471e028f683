// Package dischargereport defines the DischargeReport entity (spec.md §3),
// produced atomically by the Discharge Aggregator (spec.md §4.3).
package dischargereport

import (
	"context"
	"time"
)

// Section is one fixed-order block of a discharge report (Identification,
// Admission/Discharge dates, Care Team, Treatments, Equipment Used,
// Supplies Used, Appointments, Free-text Summary — spec.md §4.3 step 3).
type Section struct {
	Title string
	Body  string
}

// DischargeReport is the single report produced per discharge episode.
type DischargeReport struct {
	ID               string
	PatientID        string
	BedIDAtDischarge string
	GeneratedAt      time.Time
	Sections         []Section
	RenderedText     string
}

// Repository persists DischargeReport rows. One report exists per discharge
// episode; Create is called exactly once by the Discharge Aggregator as
// part of its atomic commit (spec.md §4.3 steps 4–6).
type Repository interface {
	Create(ctx context.Context, r DischargeReport) (DischargeReport, error)
	Get(ctx context.Context, id string) (DischargeReport, error)
	GetLatestForPatient(ctx context.Context, patientID string) (DischargeReport, error)
	// Delete supports the Discharge Aggregator's compensating rollback when
	// a later step of the atomic commit fails (spec.md §4.3 steps 4–6).
	Delete(ctx context.Context, id string) error
}
