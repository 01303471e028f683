// Package bed defines the Bed entity and its repository (spec.md §3). The
// Bed Lifecycle Manager (bedlifecycle package) is the sole mutator of
// Status, CurrentPatientID and CleaningStartedAt; this repository only
// persists whatever state that manager computes.
package bed

import (
	"context"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
)

// Status is a bed's position in the lifecycle state machine (spec.md §4.2).
type Status string

const (
	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusCleaning    Status = "cleaning"
	StatusMaintenance Status = "maintenance"
	StatusReserved    Status = "reserved"
)

// Bed is one physical bed. CurrentPatientID is non-nil iff Status is
// occupied; CleaningStartedAt is non-nil iff Status is cleaning.
type Bed struct {
	ID                      string
	BedNumber               string
	RoomID                  string
	Status                  Status
	CurrentPatientID        *string
	CleaningStartedAt       *time.Time
	CleaningDurationMinutes int
}

// Repository persists Bed rows. BedNumber is unique within a RoomID;
// violating that uniqueness returns domain.ErrConflict.
type Repository interface {
	Create(ctx context.Context, b Bed) (Bed, error)
	Get(ctx context.Context, id string) (Bed, error)
	Update(ctx context.Context, b Bed) (Bed, error)
	List(ctx context.Context, roomID string, page domain.Page) ([]Bed, error)
	// ListByStatus returns every bed currently in status, across rooms.
	// Used by the Bed Lifecycle Manager's sweep and by candidate-bed search.
	ListByStatus(ctx context.Context, status Status) ([]Bed, error)
}
