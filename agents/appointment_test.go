package agents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain/appointment"
	"github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func newTestAppointmentAgent() (*AppointmentAgent, *toolregistry.Registry) {
	a := NewAppointmentAgent(inmem.NewAppointmentRepository())
	reg := toolregistry.New()
	if err := a.Register(reg); err != nil {
		panic(err)
	}
	return a, reg
}

func TestCreateAppointmentRejectsOverlap(t *testing.T) {
	_, reg := newTestAppointmentAgent()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	res := reg.Call(context.Background(), "appointment.create_appointment", json.RawMessage(`{
		"patient_id": "pat-1", "doctor_id": "doc-1",
		"start_at": "`+start.Format(time.RFC3339)+`", "duration_minutes": 30
	}`))
	require.True(t, res.OK, "%+v", res)

	overlapping := start.Add(15 * time.Minute)
	res = reg.Call(context.Background(), "appointment.create_appointment", json.RawMessage(`{
		"patient_id": "pat-2", "doctor_id": "doc-1",
		"start_at": "`+overlapping.Format(time.RFC3339)+`", "duration_minutes": 30
	}`))
	require.False(t, res.OK, "overlapping slot for the same doctor must be rejected")
}

func TestCreateAppointmentAllowsNonOverlap(t *testing.T) {
	_, reg := newTestAppointmentAgent()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	res := reg.Call(context.Background(), "appointment.create_appointment", json.RawMessage(`{
		"patient_id": "pat-1", "doctor_id": "doc-1",
		"start_at": "`+start.Format(time.RFC3339)+`", "duration_minutes": 30
	}`))
	require.True(t, res.OK, "%+v", res)

	after := start.Add(30 * time.Minute)
	res = reg.Call(context.Background(), "appointment.create_appointment", json.RawMessage(`{
		"patient_id": "pat-2", "doctor_id": "doc-1",
		"start_at": "`+after.Format(time.RFC3339)+`", "duration_minutes": 30
	}`))
	require.True(t, res.OK, "%+v", res)
}

func TestUpdateAppointmentStatusToCancelled(t *testing.T) {
	a, reg := newTestAppointmentAgent()
	created, err := a.appointments.Create(context.Background(), appointment.Appointment{
		ID: "appt-1", PatientID: "pat-1", DoctorID: "doc-1",
		StartAt: time.Now(), Duration: 30 * time.Minute, Status: appointment.StatusScheduled,
	})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "appointment.update_appointment_status", json.RawMessage(`{"id": "`+created.ID+`", "status": "cancelled"}`))
	require.True(t, res.OK, "%+v", res)
	require.Equal(t, appointment.StatusCancelled, res.Data.(appointment.Appointment).Status)
}
