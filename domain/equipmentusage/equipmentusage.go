// Package equipmentusage defines the EquipmentUsage entity (spec.md §3): an
// append-only record of a piece of equipment being used on a patient.
package equipmentusage

import (
	"context"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
)

// EquipmentUsage records one episode of equipment use. EndedAt is nil while
// in progress; when set it must be >= StartedAt.
type EquipmentUsage struct {
	ID          string
	PatientID   string
	EquipmentID string
	OperatorID  string
	StartedAt   time.Time
	EndedAt     *time.Time
	Purpose     string
}

// Repository persists EquipmentUsage rows.
type Repository interface {
	Create(ctx context.Context, u EquipmentUsage) (EquipmentUsage, error)
	Close(ctx context.Context, id string, endedAt time.Time) (EquipmentUsage, error)
	ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]EquipmentUsage, error)
}
