// Package staff defines the Staff entity and its repository (spec.md §3).
package staff

import (
	"context"

	"github.com/careflow-systems/hospital-core/domain"
)

// Role is one of the fixed set of clinical/operational staff roles.
type Role string

const (
	RoleDoctor     Role = "doctor"
	RoleNurse      Role = "nurse"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Staff is a hospital employee record. Deactivation is soft: Active flips
// to false, the row is never deleted.
type Staff struct {
	ID           string
	EmployeeCode string
	Role         Role
	DepartmentID string
	Active       bool
}

// Repository persists Staff rows. EmployeeCode is globally unique.
type Repository interface {
	Create(ctx context.Context, s Staff) (Staff, error)
	Get(ctx context.Context, id string) (Staff, error)
	FindByCode(ctx context.Context, employeeCode string) (Staff, error)
	Update(ctx context.Context, s Staff) (Staff, error)
	List(ctx context.Context, departmentID string, page domain.Page) ([]Staff, error)
}
