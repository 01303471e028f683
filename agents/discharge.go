package agents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/careflow-systems/hospital-core/discharge"
	"github.com/careflow-systems/hospital-core/domain/bed"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// DischargeAgent owns the Discharge Aggregator tool (spec.md §4.5), the
// single entry point that produces a DischargeReport and commits the bed
// and patient mutations that complete a discharge.
type DischargeAgent struct {
	beds       bed.Repository
	aggregator *discharge.Aggregator
}

// NewDischargeAgent constructs a DischargeAgent.
func NewDischargeAgent(beds bed.Repository, aggregator *discharge.Aggregator) *DischargeAgent {
	return &DischargeAgent{beds: beds, aggregator: aggregator}
}

// Register adds the Discharge agent's tool to reg.
func (a *DischargeAgent) Register(reg *toolregistry.Registry) error {
	spec := tools.ToolSpec{
		Name:        "discharge.generate_discharge_report",
		OwningAgent: "discharge",
		Description: "Produce a discharge report for a patient's current episode and complete their discharge.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"patient_id": {"type": "string"},
				"bed_id": {"type": "string"},
				"episode_start": {"type": "string", "format": "date-time"},
				"episode_end": {"type": "string", "format": "date-time"}
			}
		}`),
		SideEffecting: true,
		Idempotent:    true,
		Handler:       a.generateDischargeReport,
	}
	return reg.Register(spec)
}

type generateDischargeReportArgs struct {
	PatientID    string    `json:"patient_id"`
	BedID        string    `json:"bed_id"`
	EpisodeStart time.Time `json:"episode_start"`
	EpisodeEnd   time.Time `json:"episode_end"`
}

func (a *DischargeAgent) generateDischargeReport(ctx context.Context, raw json.RawMessage) (any, error) {
	var args generateDischargeReportArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}

	patientID := args.PatientID
	if patientID == "" {
		if args.BedID == "" {
			return nil, toolerrors.New(toolerrors.KindInvalidArguments, "patient_id or bed_id is required")
		}
		b, err := a.beds.Get(ctx, args.BedID)
		if err != nil {
			return nil, translateRepoErr(err)
		}
		if b.CurrentPatientID == nil {
			return nil, toolerrors.New(toolerrors.KindConflict, "bed has no current patient")
		}
		patientID = *b.CurrentPatientID
	}

	report, err := a.aggregator.Discharge(ctx, discharge.Input{
		PatientID:    patientID,
		BedID:        args.BedID,
		EpisodeStart: args.EpisodeStart,
		EpisodeEnd:   args.EpisodeEnd,
	})
	if err != nil {
		return nil, translateDischargeErr(err)
	}
	return report, nil
}

// translateDischargeErr maps the Discharge Aggregator's sentinel errors
// (spec.md §4.3) to the uniform tool error taxonomy (spec.md §7).
func translateDischargeErr(err error) error {
	switch {
	case errors.Is(err, discharge.ErrPatientNotActive):
		return toolerrors.NewWithCause(toolerrors.KindConflict, "patient is not active", err)
	case errors.Is(err, discharge.ErrNoOccupiedBed):
		return toolerrors.NewWithCause(toolerrors.KindConflict, "patient has no occupied bed", err)
	case errors.Is(err, discharge.ErrReportMissingForDischargedPatient):
		return toolerrors.NewWithCause(toolerrors.KindInternal, "discharged patient is missing its report", err)
	default:
		return toolerrors.NewWithCause(toolerrors.KindInternal, "internal error", err)
	}
}
