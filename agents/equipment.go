package agents

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/equipment"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// EquipmentAgent owns the Equipment bounded context (spec.md §4.5) and
// enforces its status state machine: available -> in_use (via usage),
// in_use -> available (on usage close), any -> maintenance, maintenance ->
// available.
//
// equipmentusage.Repository only lists usage episodes by patient
// (domain/equipmentusage/equipmentusage.go), so this agent tracks which
// usage episode is currently open for each piece of equipment itself, to
// know which one to close when equipment moves to maintenance.
type EquipmentAgent struct {
	equipment equipment.Repository
	usages    equipmentusage.Repository

	openUsagesMu sync.Mutex
	openUsages   map[string]string // equipment id -> open usage id
}

// NewEquipmentAgent constructs an EquipmentAgent.
func NewEquipmentAgent(e equipment.Repository, usages equipmentusage.Repository) *EquipmentAgent {
	return &EquipmentAgent{equipment: e, usages: usages, openUsages: make(map[string]string)}
}

// Register adds every Equipment agent tool to reg.
func (a *EquipmentAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "equipment.create_equipment",
			OwningAgent: "equipment",
			Description: "Create a new equipment record.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"equipment_code": {"type": "string"},
					"category_id": {"type": "string"},
					"location": {"type": "string"}
				},
				"required": ["equipment_code", "category_id"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.createEquipment,
		},
		{
			Name:        "equipment.list_equipment",
			OwningAgent: "equipment",
			Description: "List equipment, optionally filtered by status.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"status": {"type": "string", "enum": ["available", "in_use", "maintenance", "out_of_service"]}
				}
			}`),
			Handler: a.listEquipment,
		},
		{
			Name:        "equipment.update_equipment_status",
			OwningAgent: "equipment",
			Description: "Transition equipment status directly (e.g. to out_of_service).",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"status": {"type": "string", "enum": ["available", "in_use", "maintenance", "out_of_service"]}
				},
				"required": ["id", "status"]
			}`),
			SideEffecting: true,
			Handler:       a.updateEquipmentStatus,
		},
		{
			Name:        "equipment.add_equipment_usage_simple",
			OwningAgent: "equipment",
			Description: "Start a usage episode for a piece of equipment on a patient, moving it to in_use.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"equipment_id": {"type": "string"},
					"patient_id": {"type": "string"},
					"operator_id": {"type": "string"},
					"purpose": {"type": "string"}
				},
				"required": ["equipment_id", "patient_id", "operator_id"]
			}`),
			SideEffecting: true,
			Handler:       a.addEquipmentUsage,
		},
		{
			Name:        "equipment.schedule_equipment_maintenance",
			OwningAgent: "equipment",
			Description: "Move equipment into maintenance from any status, closing any open usage episode.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"id": {"type": "string"}},
				"required": ["id"]
			}`),
			SideEffecting: true,
			Handler:       a.scheduleMaintenance,
			Confirmation: &tools.ConfirmationSpec{
				Title:          "Schedule equipment maintenance",
				PromptTemplate: "Move equipment {{.id}} into maintenance, closing any open usage episode?",
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

type createEquipmentArgs struct {
	EquipmentCode string `json:"equipment_code"`
	CategoryID    string `json:"category_id"`
	Location      string `json:"location"`
}

func (a *EquipmentAgent) createEquipment(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createEquipmentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	e, err := a.equipment.Create(ctx, equipment.Equipment{
		ID:            uuid.NewString(),
		EquipmentCode: args.EquipmentCode,
		CategoryID:    args.CategoryID,
		Status:        equipment.StatusAvailable,
		Location:      args.Location,
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return e, nil
}

type listEquipmentArgs struct {
	Status equipment.Status `json:"status"`
}

func (a *EquipmentAgent) listEquipment(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listEquipmentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	results, err := a.equipment.List(ctx, args.Status, domain.Page{Limit: 500})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return results, nil
}

type updateEquipmentStatusArgs struct {
	ID     string           `json:"id"`
	Status equipment.Status `json:"status"`
}

func (a *EquipmentAgent) updateEquipmentStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	var args updateEquipmentStatusArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	e, err := a.equipment.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	e.Status = args.Status
	updated, err := a.equipment.Update(ctx, e)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return updated, nil
}

type addEquipmentUsageArgs struct {
	EquipmentID string `json:"equipment_id"`
	PatientID   string `json:"patient_id"`
	OperatorID  string `json:"operator_id"`
	Purpose     string `json:"purpose"`
}

func (a *EquipmentAgent) addEquipmentUsage(ctx context.Context, raw json.RawMessage) (any, error) {
	var args addEquipmentUsageArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	e, err := a.equipment.Get(ctx, args.EquipmentID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	if e.Status != equipment.StatusAvailable {
		return nil, toolerrors.New(toolerrors.KindConflict, "equipment is not available")
	}

	usage, err := a.usages.Create(ctx, equipmentusage.EquipmentUsage{
		ID:          uuid.NewString(),
		PatientID:   args.PatientID,
		EquipmentID: args.EquipmentID,
		OperatorID:  args.OperatorID,
		StartedAt:   time.Now().UTC(),
		Purpose:     args.Purpose,
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}

	e.Status = equipment.StatusInUse
	if _, err := a.equipment.Update(ctx, e); err != nil {
		return nil, translateRepoErr(err)
	}

	a.openUsagesMu.Lock()
	a.openUsages[args.EquipmentID] = usage.ID
	a.openUsagesMu.Unlock()

	return usage, nil
}

type equipmentIDArgs struct {
	ID string `json:"id"`
}

func (a *EquipmentAgent) scheduleMaintenance(ctx context.Context, raw json.RawMessage) (any, error) {
	var args equipmentIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	e, err := a.equipment.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}

	if e.Status == equipment.StatusInUse {
		if err := a.closeOpenUsage(ctx, args.ID); err != nil {
			return nil, err
		}
	}

	e.Status = equipment.StatusMaintenance
	updated, err := a.equipment.Update(ctx, e)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return updated, nil
}

func (a *EquipmentAgent) closeOpenUsage(ctx context.Context, equipmentID string) error {
	a.openUsagesMu.Lock()
	usageID, ok := a.openUsages[equipmentID]
	delete(a.openUsages, equipmentID)
	a.openUsagesMu.Unlock()
	if !ok {
		return nil
	}
	if _, err := a.usages.Close(ctx, usageID, time.Now().UTC()); err != nil {
		return translateRepoErr(err)
	}
	return nil
}
