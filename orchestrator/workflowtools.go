package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/careflow-systems/hospital-core/domain/staff"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
	"github.com/careflow-systems/hospital-core/runtime/workflow"
	"github.com/careflow-systems/hospital-core/workflows"
)

// DefaultWorkflowToolTimeout bounds how long a workflow-coupled tool call
// blocks waiting for its run to reach a terminal state (spec.md §4.6
// "block until workflow terminal or timeout").
const DefaultWorkflowToolTimeout = 60 * time.Second

// WorkflowTools registers the three workflow-coupled tools
// (execute_admission, execute_clinical_decision, execute_document_processing)
// that the chat loop can call like any other tool, but which block on a full
// Workflow Engine run rather than a single synchronous operation (spec.md
// §4.6, mirroring the teacher's `execute_langraph_patient_admission`-style
// tools). The underlying graphs and their activities must already be
// registered with we via workflows.RegisterActivities/workflow.RegisterGraph.
type WorkflowTools struct {
	we      *workflow.Engine
	timeout time.Duration
}

// NewWorkflowTools constructs a WorkflowTools bound to we. timeout <= 0 uses
// DefaultWorkflowToolTimeout.
func NewWorkflowTools(we *workflow.Engine, timeout time.Duration) *WorkflowTools {
	if timeout <= 0 {
		timeout = DefaultWorkflowToolTimeout
	}
	return &WorkflowTools{we: we, timeout: timeout}
}

// Register adds the workflow-coupled tools to reg.
func (w *WorkflowTools) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "workflow.execute_admission",
			OwningAgent: "workflow",
			Description: "Run the full patient admission workflow (validate, create patient, assign bed/staff/equipment, generate reports) and block until it completes.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"session_id": {"type": "string"},
					"name": {"type": "string"},
					"date_of_birth": {"type": "string", "format": "date-time"},
					"room_id": {"type": "string"},
					"staff_role": {"type": "string", "enum": ["doctor", "nurse", "technician", "admin"]},
					"equipment_category_id": {"type": "string"}
				},
				"required": ["session_id", "name", "date_of_birth", "room_id"]
			}`),
			SideEffecting: true,
			Handler:       w.executeAdmission,
		},
		{
			Name:        "workflow.execute_clinical_decision",
			OwningAgent: "workflow",
			Description: "Run the clinical decision support workflow for a patient's presenting complaint and block until it completes.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"session_id": {"type": "string"},
					"patient_id": {"type": "string"},
					"query": {"type": "string"}
				},
				"required": ["session_id", "patient_id", "query"]
			}`),
			Handler: w.executeClinicalDecision,
		},
		{
			Name:        "workflow.execute_document_processing",
			OwningAgent: "workflow",
			Description: "Run the document processing workflow (parse, extract and validate clinical entities, persist) and block until it completes.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"session_id": {"type": "string"},
					"name": {"type": "string"},
					"format": {"type": "string"},
					"text": {"type": "string"},
					"patient_id": {"type": "string"}
				},
				"required": ["session_id", "name", "format", "text"]
			}`),
			SideEffecting: true,
			Handler:       w.executeDocumentProcessing,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (w *WorkflowTools) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, w.timeout)
}

type executeAdmissionArgs struct {
	SessionID           string     `json:"session_id"`
	Name                string     `json:"name"`
	DateOfBirth         time.Time  `json:"date_of_birth"`
	RoomID              string     `json:"room_id"`
	StaffRole           staff.Role `json:"staff_role"`
	EquipmentCategoryID string     `json:"equipment_category_id"`
}

func (w *WorkflowTools) executeAdmission(ctx context.Context, raw json.RawMessage) (any, error) {
	var args executeAdmissionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	if args.SessionID == "" {
		return nil, toolerrors.New(toolerrors.KindInvalidArguments, "session_id is required")
	}

	ctx, cancel := w.withTimeout(ctx)
	defer cancel()

	input := workflows.AdmissionInput{
		Name:                args.Name,
		DateOfBirth:         args.DateOfBirth,
		RoomID:              args.RoomID,
		StaffRole:           args.StaffRole,
		EquipmentCategoryID: args.EquipmentCategoryID,
	}
	if _, err := workflow.Start(ctx, w.we, workflows.AdmissionKind, args.SessionID, workflows.AdmissionState{Input: input}); err != nil {
		return nil, classifyWorkflowErr(err)
	}
	final, err := workflow.Await[workflows.AdmissionState](ctx, w.we, workflows.AdmissionKind, args.SessionID)
	if err != nil {
		return nil, classifyWorkflowErr(err)
	}
	return final, nil
}

type executeClinicalDecisionArgs struct {
	SessionID string `json:"session_id"`
	PatientID string `json:"patient_id"`
	Query     string `json:"query"`
}

func (w *WorkflowTools) executeClinicalDecision(ctx context.Context, raw json.RawMessage) (any, error) {
	var args executeClinicalDecisionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	if args.SessionID == "" {
		return nil, toolerrors.New(toolerrors.KindInvalidArguments, "session_id is required")
	}

	ctx, cancel := w.withTimeout(ctx)
	defer cancel()

	input := workflows.ClinicalDecisionInput{PatientID: args.PatientID, Query: args.Query}
	if _, err := workflow.Start(ctx, w.we, workflows.ClinicalDecisionKind, args.SessionID, workflows.ClinicalDecisionState{Input: input}); err != nil {
		return nil, classifyWorkflowErr(err)
	}
	final, err := workflow.Await[workflows.ClinicalDecisionState](ctx, w.we, workflows.ClinicalDecisionKind, args.SessionID)
	if err != nil {
		return nil, classifyWorkflowErr(err)
	}
	return final, nil
}

type executeDocumentProcessingArgs struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Format    string `json:"format"`
	Text      string `json:"text"`
	PatientID string `json:"patient_id"`
}

func (w *WorkflowTools) executeDocumentProcessing(ctx context.Context, raw json.RawMessage) (any, error) {
	var args executeDocumentProcessingArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	if args.SessionID == "" {
		return nil, toolerrors.New(toolerrors.KindInvalidArguments, "session_id is required")
	}

	ctx, cancel := w.withTimeout(ctx)
	defer cancel()

	input := workflows.DocumentProcessingInput{Name: args.Name, Format: args.Format, Text: args.Text, PatientID: args.PatientID}
	if _, err := workflow.Start(ctx, w.we, workflows.DocumentProcessingKind, args.SessionID, workflows.DocumentProcessingState{Input: input}); err != nil {
		return nil, classifyWorkflowErr(err)
	}
	final, err := workflow.Await[workflows.DocumentProcessingState](ctx, w.we, workflows.DocumentProcessingKind, args.SessionID)
	if err != nil {
		return nil, classifyWorkflowErr(err)
	}
	return final, nil
}

// classifyWorkflowErr maps a workflow run/await failure onto the uniform
// tool error taxonomy: a context deadline while waiting becomes a retriable
// timeout, anything else is treated as a permanent failure of that run.
func classifyWorkflowErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return toolerrors.New(toolerrors.KindTimeout, "workflow run did not reach a terminal state before the timeout")
	}
	return toolerrors.NewWithCause(toolerrors.KindPermanentUpstream, "workflow run failed", err)
}
