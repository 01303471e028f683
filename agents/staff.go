package agents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/staff"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// StaffAgent owns the Staff bounded context (spec.md §4.5), including the
// append-only StaffAssignment records that tie staff to a patient's care
// team.
type StaffAgent struct {
	staff       staff.Repository
	assignments staffassignment.Repository
}

// NewStaffAgent constructs a StaffAgent.
func NewStaffAgent(s staff.Repository, assignments staffassignment.Repository) *StaffAgent {
	return &StaffAgent{staff: s, assignments: assignments}
}

// Register adds every Staff agent tool to reg.
func (a *StaffAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "staff.create_staff",
			OwningAgent: "staff",
			Description: "Create a new staff record.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"employee_code": {"type": "string"},
					"role": {"type": "string", "enum": ["doctor", "nurse", "technician", "admin"]},
					"department_id": {"type": "string"}
				},
				"required": ["employee_code", "role", "department_id"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.createStaff,
		},
		{
			Name:        "staff.list_staff",
			OwningAgent: "staff",
			Description: "List staff, optionally filtered by department.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"department_id": {"type": "string"}}
			}`),
			Handler: a.listStaff,
		},
		{
			Name:        "staff.assign_staff_to_patient_simple",
			OwningAgent: "staff",
			Description: "Add a staff member to a patient's care team with a role on the case.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"patient_id": {"type": "string"},
					"staff_id": {"type": "string"},
					"role_on_case": {"type": "string"}
				},
				"required": ["patient_id", "staff_id", "role_on_case"]
			}`),
			SideEffecting: true,
			Handler:       a.assignStaffToPatient,
		},
		{
			Name:        "staff.update_staff_status",
			OwningAgent: "staff",
			Description: "Activate or deactivate a staff member.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"active": {"type": "boolean"}
				},
				"required": ["id", "active"]
			}`),
			SideEffecting: true,
			Handler:       a.updateStaffStatus,
			Confirmation: &tools.ConfirmationSpec{
				Title:          "Change staff status",
				PromptTemplate: "Set staff member {{.id}} active={{.active}}?",
			},
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type createStaffArgs struct {
	EmployeeCode string     `json:"employee_code"`
	Role         staff.Role `json:"role"`
	DepartmentID string     `json:"department_id"`
}

func (a *StaffAgent) createStaff(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createStaffArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	s, err := a.staff.Create(ctx, staff.Staff{
		ID:           uuid.NewString(),
		EmployeeCode: args.EmployeeCode,
		Role:         args.Role,
		DepartmentID: args.DepartmentID,
		Active:       true,
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return s, nil
}

type listStaffArgs struct {
	DepartmentID string `json:"department_id"`
}

func (a *StaffAgent) listStaff(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listStaffArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	results, err := a.staff.List(ctx, args.DepartmentID, domain.Page{Limit: 500})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return results, nil
}

type assignStaffToPatientArgs struct {
	PatientID  string `json:"patient_id"`
	StaffID    string `json:"staff_id"`
	RoleOnCase string `json:"role_on_case"`
}

func (a *StaffAgent) assignStaffToPatient(ctx context.Context, raw json.RawMessage) (any, error) {
	var args assignStaffToPatientArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	assignment, err := a.assignments.Create(ctx, staffassignment.StaffAssignment{
		ID:         uuid.NewString(),
		PatientID:  args.PatientID,
		StaffID:    args.StaffID,
		RoleOnCase: args.RoleOnCase,
		StartedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return assignment, nil
}

type updateStaffStatusArgs struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

func (a *StaffAgent) updateStaffStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	var args updateStaffStatusArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	s, err := a.staff.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	s.Active = args.Active
	updated, err := a.staff.Update(ctx, s)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return updated, nil
}
