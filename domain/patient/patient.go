// Package patient defines the Patient entity and its repository (spec.md §3).
package patient

import (
	"context"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
)

// Status is the patient lifecycle state.
type Status string

const (
	StatusActive     Status = "active"
	StatusDischarged Status = "discharged"
)

// Patient is a hospital patient record. Status transitions from
// Active to Discharged exactly once, via the discharge workflow.
type Patient struct {
	ID          string
	PatientCode string
	Name        string
	DateOfBirth time.Time
	Status      Status
	CreatedAt   time.Time
}

// Repository persists Patient rows. Create rejects a duplicate PatientCode
// with domain.ErrConflict; Get/FindByCode return domain.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, p Patient) (Patient, error)
	Get(ctx context.Context, id string) (Patient, error)
	FindByCode(ctx context.Context, patientCode string) (Patient, error)
	Update(ctx context.Context, p Patient) (Patient, error)
	List(ctx context.Context, status Status, page domain.Page) ([]Patient, error)
}
