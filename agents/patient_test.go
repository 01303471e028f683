package agents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain/appointment"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
	"github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func newTestPatientAgent() (*PatientAgent, *toolregistry.Registry) {
	a := NewPatientAgent(
		inmem.NewPatientRepository(),
		inmem.NewStaffAssignmentRepository(),
		inmem.NewEquipmentUsageRepository(),
		inmem.NewUsageRepository(),
		inmem.NewAppointmentRepository(),
		0,
	)
	reg := toolregistry.New()
	if err := a.Register(reg); err != nil {
		panic(err)
	}
	return a, reg
}

func patientFixture(name, code string) patient.Patient {
	return patient.Patient{
		Name:        name,
		PatientCode: code,
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:      patient.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestCreatePatientGeneratesCodeWhenOmitted(t *testing.T) {
	_, reg := newTestPatientAgent()

	res := reg.Call(context.Background(), "patient.create_patient", json.RawMessage(`{
		"name": "Ada Lovelace",
		"date_of_birth": "1990-01-01T00:00:00Z"
	}`))
	require.True(t, res.OK, "%+v", res)

	created, ok := res.Data.(patient.Patient)
	require.True(t, ok)
	require.Equal(t, "P-000001", created.PatientCode)
}

func TestCreatePatientAcceptsSuppliedCode(t *testing.T) {
	_, reg := newTestPatientAgent()

	res := reg.Call(context.Background(), "patient.create_patient", json.RawMessage(`{
		"name": "Ada Lovelace",
		"date_of_birth": "1990-01-01T00:00:00Z",
		"patient_code": "P-CUSTOM"
	}`))
	require.True(t, res.OK, "%+v", res)

	res = reg.Call(context.Background(), "patient.create_patient", json.RawMessage(`{
		"name": "Grace Hopper",
		"date_of_birth": "1906-12-09T00:00:00Z",
		"patient_code": "P-CUSTOM"
	}`))
	require.False(t, res.OK, "duplicate patient_code must be rejected")
}

func TestGetPatientByIDAndCode(t *testing.T) {
	a, reg := newTestPatientAgent()

	created, err := a.patients.Create(context.Background(), patientFixture("Ada Lovelace", "P-0001"))
	require.NoError(t, err)

	res := reg.Call(context.Background(), "patient.get_patient", json.RawMessage(`{"id": "`+created.ID+`"}`))
	require.True(t, res.OK, "%+v", res)

	res = reg.Call(context.Background(), "patient.get_patient", json.RawMessage(`{"patient_code": "P-0001"}`))
	require.True(t, res.OK, "%+v", res)

	res = reg.Call(context.Background(), "patient.get_patient", json.RawMessage(`{}`))
	require.False(t, res.OK)
}

func TestSearchPatientsMatchesNameOrCode(t *testing.T) {
	a, reg := newTestPatientAgent()
	_, err := a.patients.Create(context.Background(), patientFixture("Ada Lovelace", "P-0001"))
	require.NoError(t, err)
	_, err = a.patients.Create(context.Background(), patientFixture("Grace Hopper", "P-0002"))
	require.NoError(t, err)

	res := reg.Call(context.Background(), "patient.search_patients", json.RawMessage(`{"query": "ada"}`))
	require.True(t, res.OK, "%+v", res)

	matches, ok := res.Data.([]patient.Patient)
	require.True(t, ok)
	require.Len(t, matches, 1)
	require.Equal(t, "Ada Lovelace", matches[0].Name)
}

func TestUpdatePatientChangesName(t *testing.T) {
	a, reg := newTestPatientAgent()
	created, err := a.patients.Create(context.Background(), patientFixture("Ada Lovelace", "P-0001"))
	require.NoError(t, err)

	res := reg.Call(context.Background(), "patient.update_patient", json.RawMessage(`{"id": "`+created.ID+`", "name": "Ada, Countess of Lovelace"}`))
	require.True(t, res.OK, "%+v", res)

	updated, err := a.patients.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada, Countess of Lovelace", updated.Name)
}

func TestGetPatientMedicalHistoryAggregatesAcrossRepositories(t *testing.T) {
	a, reg := newTestPatientAgent()
	created, err := a.patients.Create(context.Background(), patientFixture("Ada Lovelace", "P-0001"))
	require.NoError(t, err)

	_, err = a.staffAssignments.Create(context.Background(), staffassignment.StaffAssignment{
		PatientID:  created.ID,
		StaffID:    "staff-1",
		RoleOnCase: "attending",
		StartedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = a.equipmentUsages.Create(context.Background(), equipmentusage.EquipmentUsage{
		PatientID:   created.ID,
		EquipmentID: "equip-1",
		OperatorID:  "staff-1",
		StartedAt:   time.Now().UTC(),
		Purpose:     "monitoring",
	})
	require.NoError(t, err)

	_, err = a.appointments.Create(context.Background(), appointment.Appointment{
		PatientID: created.ID,
		DoctorID:  "doc-1",
		StartAt:   time.Now().UTC().Add(24 * time.Hour),
		Duration:  30 * time.Minute,
		Status:    appointment.StatusScheduled,
	})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "patient.get_patient_medical_history", json.RawMessage(`{"id": "`+created.ID+`"}`))
	require.True(t, res.OK, "%+v", res)

	history, ok := res.Data.(MedicalHistory)
	require.True(t, ok)
	require.Len(t, history.StaffAssignments, 1)
	require.Len(t, history.EquipmentUsages, 1)
	require.Len(t, history.Appointments, 1)
}

func TestGetPatientMedicalHistoryUnknownPatient(t *testing.T) {
	_, reg := newTestPatientAgent()
	res := reg.Call(context.Background(), "patient.get_patient_medical_history", json.RawMessage(`{"id": "missing"}`))
	require.False(t, res.OK)
}
