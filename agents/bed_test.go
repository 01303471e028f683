package agents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/bedlifecycle"
	"github.com/careflow-systems/hospital-core/domain/bed"
	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func newTestBedAgent(t *testing.T) (*BedAgent, *toolregistry.Registry, bed.Repository, patient.Repository) {
	t.Helper()
	beds := inmem.NewBedRepository()
	patients := inmem.NewPatientRepository()
	manager := bedlifecycle.New(beds, patients)
	a := NewBedAgent(beds, manager)
	reg := toolregistry.New()
	require.NoError(t, a.Register(reg))
	return a, reg, beds, patients
}

func TestAssignBedToPatientThenDischarge(t *testing.T) {
	_, reg, beds, patients := newTestBedAgent(t)

	b, err := beds.Create(context.Background(), bed.Bed{ID: "bed-1", BedNumber: "101A", RoomID: "room-1", Status: bed.StatusAvailable})
	require.NoError(t, err)
	p, err := patients.Create(context.Background(), patient.Patient{ID: "pat-1", PatientCode: "P-1", Status: patient.StatusActive, CreatedAt: time.Now()})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "bed.assign_bed_to_patient", json.RawMessage(`{"bed_id": "`+b.ID+`", "patient_id": "`+p.ID+`"}`))
	require.True(t, res.OK, "%+v", res)

	res = reg.Call(context.Background(), "bed.discharge_bed", json.RawMessage(`{"bed_id": "`+b.ID+`"}`))
	require.True(t, res.OK, "%+v", res)

	status := res.Data.(bed.Bed)
	require.Equal(t, bed.StatusCleaning, status.Status)
}

func TestAssignUnavailableBedFails(t *testing.T) {
	_, reg, beds, _ := newTestBedAgent(t)
	b, err := beds.Create(context.Background(), bed.Bed{ID: "bed-1", BedNumber: "101A", RoomID: "room-1", Status: bed.StatusMaintenance})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "bed.assign_bed_to_patient", json.RawMessage(`{"bed_id": "`+b.ID+`", "patient_id": "pat-1"}`))
	require.False(t, res.OK)
}

func TestGetBedStatusByBedNumber(t *testing.T) {
	_, reg, beds, _ := newTestBedAgent(t)
	_, err := beds.Create(context.Background(), bed.Bed{ID: "bed-1", BedNumber: "101A", RoomID: "room-1", Status: bed.StatusAvailable})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "bed.get_bed_status_with_time_remaining", json.RawMessage(`{"bed_number": "101A"}`))
	require.True(t, res.OK, "%+v", res)

	res = reg.Call(context.Background(), "bed.get_bed_status_with_time_remaining", json.RawMessage(`{"bed_number": "missing"}`))
	require.False(t, res.OK)
}

func TestListBedsFiltersByStatusAndRoom(t *testing.T) {
	_, reg, beds, _ := newTestBedAgent(t)
	_, err := beds.Create(context.Background(), bed.Bed{ID: "bed-1", BedNumber: "101A", RoomID: "room-1", Status: bed.StatusAvailable})
	require.NoError(t, err)
	_, err = beds.Create(context.Background(), bed.Bed{ID: "bed-2", BedNumber: "102A", RoomID: "room-2", Status: bed.StatusOccupied})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "bed.list_beds", json.RawMessage(`{"status": "available"}`))
	require.True(t, res.OK, "%+v", res)
	listed := res.Data.([]bed.Bed)
	require.Len(t, listed, 1)
	require.Equal(t, "bed-1", listed[0].ID)
}

func TestCreateBedTurnoverForceCompletes(t *testing.T) {
	_, reg, beds, _ := newTestBedAgent(t)
	started := time.Now()
	_, err := beds.Create(context.Background(), bed.Bed{
		ID: "bed-1", BedNumber: "101A", RoomID: "room-1",
		Status: bed.StatusCleaning, CleaningStartedAt: &started, CleaningDurationMinutes: 30,
	})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "bed.create_bed_turnover", json.RawMessage(`{"bed_id": "bed-1"}`))
	require.True(t, res.OK, "%+v", res)
	require.Equal(t, bed.StatusAvailable, res.Data.(bed.Bed).Status)
}

func TestAutoUpdateExpiredCleaningBeds(t *testing.T) {
	_, reg, beds, _ := newTestBedAgent(t)
	expired := time.Now().Add(-time.Hour)
	_, err := beds.Create(context.Background(), bed.Bed{
		ID: "bed-1", BedNumber: "101A", RoomID: "room-1",
		Status: bed.StatusCleaning, CleaningStartedAt: &expired, CleaningDurationMinutes: 30,
	})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "bed.auto_update_expired_cleaning_beds", json.RawMessage(`{}`))
	require.True(t, res.OK, "%+v", res)

	updated, err := beds.Get(context.Background(), "bed-1")
	require.NoError(t, err)
	require.Equal(t, bed.StatusAvailable, updated.Status)
}
