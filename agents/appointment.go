package agents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/appointment"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// AppointmentAgent owns the Appointment bounded context (spec.md §4.5). The
// no-overlap check for create_appointment is enforced atomically by
// appointment.Repository.Create itself (a half-open interval check against
// every other StatusScheduled appointment for the same doctor); this agent
// only translates the resulting domain.ErrConflict into the uniform tool
// error taxonomy.
type AppointmentAgent struct {
	appointments appointment.Repository
}

// NewAppointmentAgent constructs an AppointmentAgent.
func NewAppointmentAgent(appointments appointment.Repository) *AppointmentAgent {
	return &AppointmentAgent{appointments: appointments}
}

// Register adds every Appointment agent tool to reg.
func (a *AppointmentAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "appointment.create_appointment",
			OwningAgent: "appointment",
			Description: "Schedule a patient/doctor appointment, rejecting any overlap with the doctor's existing scheduled appointments.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"patient_id": {"type": "string"},
					"doctor_id": {"type": "string"},
					"start_at": {"type": "string", "format": "date-time"},
					"duration_minutes": {"type": "integer", "minimum": 1}
				},
				"required": ["patient_id", "doctor_id", "start_at", "duration_minutes"]
			}`),
			SideEffecting: true,
			Handler:       a.createAppointment,
		},
		{
			Name:        "appointment.get_appointment",
			OwningAgent: "appointment",
			Description: "Fetch an appointment by id.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"id": {"type": "string"}},
				"required": ["id"]
			}`),
			Handler: a.getAppointment,
		},
		{
			Name:        "appointment.update_appointment_status",
			OwningAgent: "appointment",
			Description: "Transition an appointment to completed or cancelled.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"status": {"type": "string", "enum": ["completed", "cancelled"]}
				},
				"required": ["id", "status"]
			}`),
			SideEffecting: true,
			Handler:       a.updateAppointmentStatus,
		},
		{
			Name:        "appointment.list_appointments_by_patient",
			OwningAgent: "appointment",
			Description: "List a patient's appointments, optionally bounded to a time window.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"patient_id": {"type": "string"},
					"start": {"type": "string", "format": "date-time"},
					"end": {"type": "string", "format": "date-time"}
				},
				"required": ["patient_id"]
			}`),
			Handler: a.listAppointmentsByPatient,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type createAppointmentArgs struct {
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	StartAt         time.Time `json:"start_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (a *AppointmentAgent) createAppointment(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createAppointmentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	appt, err := a.appointments.Create(ctx, appointment.Appointment{
		ID:        uuid.NewString(),
		PatientID: args.PatientID,
		DoctorID:  args.DoctorID,
		StartAt:   args.StartAt,
		Duration:  time.Duration(args.DurationMinutes) * time.Minute,
		Status:    appointment.StatusScheduled,
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return appt, nil
}

type appointmentIDArgs struct {
	ID string `json:"id"`
}

func (a *AppointmentAgent) getAppointment(ctx context.Context, raw json.RawMessage) (any, error) {
	var args appointmentIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	appt, err := a.appointments.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return appt, nil
}

type updateAppointmentStatusArgs struct {
	ID     string             `json:"id"`
	Status appointment.Status `json:"status"`
}

func (a *AppointmentAgent) updateAppointmentStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	var args updateAppointmentStatusArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	appt, err := a.appointments.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	appt.Status = args.Status
	updated, err := a.appointments.Update(ctx, appt)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return updated, nil
}

type listAppointmentsByPatientArgs struct {
	PatientID string    `json:"patient_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

func (a *AppointmentAgent) listAppointmentsByPatient(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listAppointmentsByPatientArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	results, err := a.appointments.ListByPatient(ctx, args.PatientID, domain.TimeWindow{Start: args.Start, End: args.End})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return results, nil
}
