package agents

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/domain/department"
	"github.com/careflow-systems/hospital-core/domain/room"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// DepartmentAgent owns the Department and Room bounded contexts (spec.md
// §4.5's "department" agent). Rooms are the physical container a Bed's
// RoomID points at, so they are registered alongside Department rather than
// under the Bed/Room agent, which owns bed-state transitions only.
type DepartmentAgent struct {
	departments department.Repository
	rooms       room.Repository
}

// NewDepartmentAgent constructs a DepartmentAgent.
func NewDepartmentAgent(departments department.Repository, rooms room.Repository) *DepartmentAgent {
	return &DepartmentAgent{departments: departments, rooms: rooms}
}

// Register adds every Department agent tool to reg.
func (a *DepartmentAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "department.create_department",
			OwningAgent: "department",
			Description: "Create a new department.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"code": {"type": "string"}
				},
				"required": ["name", "code"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.createDepartment,
		},
		{
			Name:        "department.list_departments",
			OwningAgent: "department",
			Description: "List all departments.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
			Handler:     a.listDepartments,
		},
		{
			Name:        "department.create_room",
			OwningAgent: "department",
			Description: "Create a new room within a department.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"room_number": {"type": "string"},
					"department_id": {"type": "string"},
					"floor": {"type": "integer"}
				},
				"required": ["room_number", "department_id"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.createRoom,
		},
		{
			Name:        "department.list_rooms",
			OwningAgent: "department",
			Description: "List rooms within a department.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"department_id": {"type": "string"}},
				"required": ["department_id"]
			}`),
			Handler: a.listRooms,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type createDepartmentArgs struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (a *DepartmentAgent) createDepartment(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createDepartmentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	d, err := a.departments.Create(ctx, department.Department{ID: uuid.NewString(), Name: args.Name, Code: args.Code})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return d, nil
}

func (a *DepartmentAgent) listDepartments(ctx context.Context, _ json.RawMessage) (any, error) {
	results, err := a.departments.List(ctx)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return results, nil
}

type createRoomArgs struct {
	RoomNumber   string `json:"room_number"`
	DepartmentID string `json:"department_id"`
	Floor        int    `json:"floor"`
}

func (a *DepartmentAgent) createRoom(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createRoomArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	r, err := a.rooms.Create(ctx, room.Room{
		ID:           uuid.NewString(),
		RoomNumber:   args.RoomNumber,
		DepartmentID: args.DepartmentID,
		Floor:        args.Floor,
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return r, nil
}

type listRoomsArgs struct {
	DepartmentID string `json:"department_id"`
}

func (a *DepartmentAgent) listRooms(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listRoomsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	results, err := a.rooms.ListByDepartment(ctx, args.DepartmentID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return results, nil
}
