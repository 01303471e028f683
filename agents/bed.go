package agents

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/careflow-systems/hospital-core/bedlifecycle"
	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/bed"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// BedAgent owns the Bed/Room bounded context (spec.md §4.5). Every mutating
// tool delegates to bedlifecycle.Manager, the sole mutator of bed state
// (spec.md §4.2); this agent only translates between the tool wire format
// and the Manager's API.
type BedAgent struct {
	beds    bed.Repository
	manager *bedlifecycle.Manager
}

// NewBedAgent constructs a BedAgent.
func NewBedAgent(beds bed.Repository, manager *bedlifecycle.Manager) *BedAgent {
	return &BedAgent{beds: beds, manager: manager}
}

// Register adds every Bed/Room agent tool to reg.
func (a *BedAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "bed.list_beds",
			OwningAgent: "bed",
			Description: "List beds, optionally filtered by room or by status.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"room_id": {"type": "string"},
					"status": {"type": "string", "enum": ["available", "occupied", "cleaning", "maintenance", "reserved"]}
				}
			}`),
			Handler: a.listBeds,
		},
		{
			Name:        "bed.assign_bed_to_patient",
			OwningAgent: "bed",
			Description: "Assign an available or reserved bed to an active patient.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"bed_id": {"type": "string"},
					"patient_id": {"type": "string"}
				},
				"required": ["bed_id", "patient_id"]
			}`),
			SideEffecting: true,
			Handler:       a.assignBedToPatient,
		},
		{
			Name:        "bed.discharge_bed",
			OwningAgent: "bed",
			Description: "Discharge the occupying patient from a bed, starting its cleaning timer.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"bed_id": {"type": "string"},
					"cleaning_duration_minutes": {"type": "integer", "minimum": 0}
				},
				"required": ["bed_id"]
			}`),
			SideEffecting: true,
			Handler:       a.dischargeBed,
		},
		{
			Name:        "bed.get_bed_status_with_time_remaining",
			OwningAgent: "bed",
			Description: "Report a bed's lifecycle status and, if cleaning, the minutes remaining and percent complete.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"bed_id": {"type": "string"},
					"bed_number": {"type": "string"}
				}
			}`),
			Handler: a.getBedStatus,
		},
		{
			Name:        "bed.create_bed_turnover",
			OwningAgent: "bed",
			Description: "Force-complete a bed's cleaning cycle, making it immediately available.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"bed_id": {"type": "string"}},
				"required": ["bed_id"]
			}`),
			SideEffecting: true,
			Handler:       a.createBedTurnover,
		},
		{
			Name:        "bed.auto_update_expired_cleaning_beds",
			OwningAgent: "bed",
			Description: "Sweep every cleaning bed and complete those whose timer has elapsed.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.autoUpdateExpiredCleaningBeds,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type listBedsArgs struct {
	RoomID string     `json:"room_id"`
	Status bed.Status `json:"status"`
}

func (a *BedAgent) listBeds(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listBedsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	if args.Status != "" {
		beds, err := a.beds.ListByStatus(ctx, args.Status)
		if err != nil {
			return nil, translateRepoErr(err)
		}
		if args.RoomID == "" {
			return beds, nil
		}
		filtered := make([]bed.Bed, 0, len(beds))
		for _, b := range beds {
			if b.RoomID == args.RoomID {
				filtered = append(filtered, b)
			}
		}
		return filtered, nil
	}
	beds, err := a.beds.List(ctx, args.RoomID, domain.Page{Limit: 500})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return beds, nil
}

type bedPatientArgs struct {
	BedID     string `json:"bed_id"`
	PatientID string `json:"patient_id"`
}

func (a *BedAgent) assignBedToPatient(ctx context.Context, raw json.RawMessage) (any, error) {
	var args bedPatientArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	b, err := a.manager.Assign(ctx, args.BedID, args.PatientID)
	if err != nil {
		return nil, translateLifecycleErr(err)
	}
	return b, nil
}

type dischargeBedArgs struct {
	BedID                   string `json:"bed_id"`
	CleaningDurationMinutes int    `json:"cleaning_duration_minutes"`
}

func (a *BedAgent) dischargeBed(ctx context.Context, raw json.RawMessage) (any, error) {
	var args dischargeBedArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	b, err := a.manager.Discharge(ctx, args.BedID, args.CleaningDurationMinutes)
	if err != nil {
		return nil, translateLifecycleErr(err)
	}
	return b, nil
}

type bedLookupArgs struct {
	BedID     string `json:"bed_id"`
	BedNumber string `json:"bed_number"`
}

func (a *BedAgent) getBedStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	var args bedLookupArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	bedID := args.BedID
	if bedID == "" {
		if args.BedNumber == "" {
			return nil, toolerrors.New(toolerrors.KindInvalidArguments, "bed_id or bed_number is required")
		}
		found, err := a.findByBedNumber(ctx, args.BedNumber)
		if err != nil {
			return nil, err
		}
		bedID = found.ID
	}
	status, err := a.manager.Status(ctx, bedID)
	if err != nil {
		return nil, translateLifecycleErr(err)
	}
	return status, nil
}

// findByBedNumber scans every room, since bed.Repository has no index by
// BedNumber alone (it is only unique within a RoomID).
func (a *BedAgent) findByBedNumber(ctx context.Context, bedNumber string) (bed.Bed, error) {
	beds, err := a.beds.List(ctx, "", domain.Page{Limit: 1000})
	if err != nil {
		return bed.Bed{}, translateRepoErr(err)
	}
	for _, b := range beds {
		if b.BedNumber == bedNumber {
			return b, nil
		}
	}
	return bed.Bed{}, toolerrors.New(toolerrors.KindNotFound, "no bed with that bed_number")
}

type bedIDArgs struct {
	BedID string `json:"bed_id"`
}

func (a *BedAgent) createBedTurnover(ctx context.Context, raw json.RawMessage) (any, error) {
	var args bedIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	b, err := a.manager.ForceComplete(ctx, args.BedID)
	if err != nil {
		return nil, translateLifecycleErr(err)
	}
	return b, nil
}

func (a *BedAgent) autoUpdateExpiredCleaningBeds(ctx context.Context, _ json.RawMessage) (any, error) {
	updated, err := a.manager.SweepExpired(ctx)
	if err != nil {
		return nil, translateLifecycleErr(err)
	}
	return map[string]any{"updated_bed_ids": updated}, nil
}

// translateLifecycleErr maps bedlifecycle's sentinel errors (spec.md §4.2
// Failure semantics) to the uniform tool error taxonomy (spec.md §7).
func translateLifecycleErr(err error) error {
	switch {
	case errors.Is(err, bedlifecycle.ErrBedNotFound):
		return toolerrors.NewWithCause(toolerrors.KindNotFound, "bed not found", err)
	case errors.Is(err, bedlifecycle.ErrIllegalTransition):
		return toolerrors.NewWithCause(toolerrors.KindConflict, "illegal bed state transition", err)
	case errors.Is(err, bedlifecycle.ErrBedUnavailable):
		return toolerrors.NewWithCause(toolerrors.KindConflict, "bed is not available for assignment", err)
	case errors.Is(err, bedlifecycle.ErrPatientInactive):
		return toolerrors.NewWithCause(toolerrors.KindConflict, "patient is not active", err)
	default:
		return toolerrors.NewWithCause(toolerrors.KindInternal, "internal error", err)
	}
}
