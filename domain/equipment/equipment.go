// Package equipment defines the Equipment entity and its repository
// (spec.md §3).
package equipment

import (
	"context"

	"github.com/careflow-systems/hospital-core/domain"
)

// Status is the equipment availability state machine (spec.md §4.5).
type Status string

const (
	StatusAvailable    Status = "available"
	StatusInUse        Status = "in_use"
	StatusMaintenance  Status = "maintenance"
	StatusOutOfService Status = "out_of_service"
)

// Equipment is one trackable piece of hospital equipment.
type Equipment struct {
	ID            string
	EquipmentCode string
	CategoryID    string
	Status        Status
	Location      string
}

// Repository persists Equipment rows. EquipmentCode is globally unique.
type Repository interface {
	Create(ctx context.Context, e Equipment) (Equipment, error)
	Get(ctx context.Context, id string) (Equipment, error)
	FindByCode(ctx context.Context, equipmentCode string) (Equipment, error)
	Update(ctx context.Context, e Equipment) (Equipment, error)
	List(ctx context.Context, status Status, page domain.Page) ([]Equipment, error)
}
