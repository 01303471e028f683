package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/appointment"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
	"github.com/careflow-systems/hospital-core/domain/inventory"
	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// PatientAgent owns the Patient bounded context (spec.md §4.5). Its medical
// history tool reads across several other bounded contexts' repositories,
// since a patient's history is defined by everything that happened to them
// rather than by data the Patient entity itself holds.
type PatientAgent struct {
	patients         patient.Repository
	staffAssignments staffassignment.Repository
	equipmentUsages  equipmentusage.Repository
	supplyUsages     inventory.UsageRepository
	appointments     appointment.Repository
	seq              atomic.Uint64
}

// NewPatientAgent constructs a PatientAgent. nextSeq seeds the deterministic
// patient_code generator used when a caller omits one; pass the count of
// existing patients at startup so generated codes never collide with
// previously issued ones.
func NewPatientAgent(
	patients patient.Repository,
	staffAssignments staffassignment.Repository,
	equipmentUsages equipmentusage.Repository,
	supplyUsages inventory.UsageRepository,
	appointments appointment.Repository,
	nextSeq uint64,
) *PatientAgent {
	a := &PatientAgent{
		patients:         patients,
		staffAssignments: staffAssignments,
		equipmentUsages:  equipmentUsages,
		supplyUsages:     supplyUsages,
		appointments:     appointments,
	}
	a.seq.Store(nextSeq)
	return a
}

// Register adds every Patient agent tool to reg.
func (a *PatientAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "patient.create_patient",
			OwningAgent: "patient",
			Description: "Create a new patient record, optionally with a caller-supplied patient code.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"date_of_birth": {"type": "string", "format": "date-time"},
					"patient_code": {"type": "string"}
				},
				"required": ["name", "date_of_birth"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.createPatient,
		},
		{
			Name:        "patient.search_patients",
			OwningAgent: "patient",
			Description: "Find patients whose name or patient code matches a free-text query.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"query": {"type": "string"}},
				"required": ["query"]
			}`),
			Handler: a.searchPatients,
		},
		{
			Name:        "patient.get_patient",
			OwningAgent: "patient",
			Description: "Fetch a patient by id or patient code.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"patient_code": {"type": "string"}
				}
			}`),
			Handler: a.getPatient,
		},
		{
			Name:        "patient.update_patient",
			OwningAgent: "patient",
			Description: "Update mutable patient fields.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"name": {"type": "string"},
					"date_of_birth": {"type": "string", "format": "date-time"}
				},
				"required": ["id"]
			}`),
			SideEffecting: true,
			Handler:       a.updatePatient,
		},
		{
			Name:        "patient.get_patient_medical_history",
			OwningAgent: "patient",
			Description: "Aggregate a patient's care team assignments, equipment usage, supply usage, and appointments.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"id": {"type": "string"}},
				"required": ["id"]
			}`),
			Handler: a.getPatientMedicalHistory,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type createPatientArgs struct {
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	PatientCode string    `json:"patient_code"`
}

func (a *PatientAgent) createPatient(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createPatientArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	code := args.PatientCode
	if code == "" {
		code = a.nextPatientCode()
	}
	p, err := a.patients.Create(ctx, patient.Patient{
		ID:          uuid.NewString(),
		PatientCode: code,
		Name:        args.Name,
		DateOfBirth: args.DateOfBirth,
		Status:      patient.StatusActive,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return p, nil
}

func (a *PatientAgent) nextPatientCode() string {
	n := a.seq.Add(1)
	return fmt.Sprintf("P-%06d", n)
}

type patientLookupArgs struct {
	ID          string `json:"id"`
	PatientCode string `json:"patient_code"`
}

type searchPatientsArgs struct {
	Query string `json:"query"`
}

// searchPatients scans both patient statuses and filters in-process, since
// Repository exposes only a status-scoped List (domain/patient/patient.go):
// there is no full-text index behind this tool.
func (a *PatientAgent) searchPatients(ctx context.Context, raw json.RawMessage) (any, error) {
	var args searchPatientsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	query := strings.ToLower(strings.TrimSpace(args.Query))
	if query == "" {
		return nil, toolerrors.New(toolerrors.KindInvalidArguments, "query is required")
	}

	var matches []patient.Patient
	for _, status := range []patient.Status{patient.StatusActive, patient.StatusDischarged} {
		page := domain.Page{Limit: 500}
		results, err := a.patients.List(ctx, status, page)
		if err != nil {
			return nil, translateRepoErr(err)
		}
		for _, p := range results {
			if strings.Contains(strings.ToLower(p.Name), query) || strings.Contains(strings.ToLower(p.PatientCode), query) {
				matches = append(matches, p)
			}
		}
	}
	return matches, nil
}

func (a *PatientAgent) getPatient(ctx context.Context, raw json.RawMessage) (any, error) {
	var args patientLookupArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	if args.ID != "" {
		p, err := a.patients.Get(ctx, args.ID)
		if err != nil {
			return nil, translateRepoErr(err)
		}
		return p, nil
	}
	if args.PatientCode != "" {
		p, err := a.patients.FindByCode(ctx, args.PatientCode)
		if err != nil {
			return nil, translateRepoErr(err)
		}
		return p, nil
	}
	return nil, toolerrors.New(toolerrors.KindInvalidArguments, "id or patient_code is required")
}

type updatePatientArgs struct {
	ID          string     `json:"id"`
	Name        *string    `json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

func (a *PatientAgent) updatePatient(ctx context.Context, raw json.RawMessage) (any, error) {
	var args updatePatientArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	p, err := a.patients.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	if args.Name != nil {
		p.Name = *args.Name
	}
	if args.DateOfBirth != nil {
		p.DateOfBirth = *args.DateOfBirth
	}
	updated, err := a.patients.Update(ctx, p)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return updated, nil
}

// MedicalHistory is the aggregated view returned by get_patient_medical_history.
type MedicalHistory struct {
	Patient          patient.Patient                    `json:"patient"`
	StaffAssignments []staffassignment.StaffAssignment `json:"staff_assignments"`
	EquipmentUsages  []equipmentusage.EquipmentUsage    `json:"equipment_usages"`
	SupplyUsages     []inventory.PatientSupplyUsage     `json:"supply_usages"`
	Appointments     []appointment.Appointment          `json:"appointments"`
}

type patientIDArgs struct {
	ID string `json:"id"`
}

func (a *PatientAgent) getPatientMedicalHistory(ctx context.Context, raw json.RawMessage) (any, error) {
	var args patientIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	p, err := a.patients.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}

	window := domain.TimeWindow{Start: p.CreatedAt}
	assignments, err := a.staffAssignments.ListByPatient(ctx, p.ID, window)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	equipment, err := a.equipmentUsages.ListByPatient(ctx, p.ID, window)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	supplies, err := a.supplyUsages.ListByPatient(ctx, p.ID, window)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	appts, err := a.appointments.ListByPatient(ctx, p.ID, window)
	if err != nil {
		return nil, translateRepoErr(err)
	}

	return MedicalHistory{
		Patient:          p,
		StaffAssignments: assignments,
		EquipmentUsages:  equipment,
		SupplyUsages:     supplies,
		Appointments:     appts,
	}, nil
}
