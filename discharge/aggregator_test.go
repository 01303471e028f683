package discharge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/bedlifecycle"
	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/bed"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
	"github.com/careflow-systems/hospital-core/repos/inmem"
)

type testFixture struct {
	aggregator *Aggregator
	beds       *inmem.BedRepository
	patients   *inmem.PatientRepository
	reports    *inmem.DischargeReportRepository
	staff      *inmem.StaffAssignmentRepository
	equipment  *inmem.EquipmentUsageRepository
	supplies   *inmem.UsageRepository
}

func newFixture() testFixture {
	beds := inmem.NewBedRepository()
	patients := inmem.NewPatientRepository()
	reports := inmem.NewDischargeReportRepository()
	staff := inmem.NewStaffAssignmentRepository()
	equipment := inmem.NewEquipmentUsageRepository()
	supplies := inmem.NewUsageRepository()
	appts := inmem.NewAppointmentRepository()
	bedMgr := bedlifecycle.New(beds, patients)

	aggregator := New(reports, staff, equipment, supplies, appts, patients, beds, bedMgr)
	return testFixture{
		aggregator: aggregator,
		beds:       beds,
		patients:   patients,
		reports:    reports,
		staff:      staff,
		equipment:  equipment,
		supplies:   supplies,
	}
}

func TestDischargeProducesReportAndTransitionsBedAndPatient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	admittedAt := time.Now().Add(-48 * time.Hour)
	_, err := f.patients.Create(ctx, patient.Patient{ID: "p1", PatientCode: "P1", Name: "Jane Roe", Status: patient.StatusActive, CreatedAt: admittedAt})
	require.NoError(t, err)

	patientID := "p1"
	_, err = f.beds.Create(ctx, bed.Bed{ID: "b1", BedNumber: "101A", RoomID: "r1", Status: bed.StatusOccupied, CurrentPatientID: &patientID})
	require.NoError(t, err)

	_, err = f.staff.Create(ctx, staffassignment.StaffAssignment{ID: "a1", PatientID: "p1", StaffID: "s1", RoleOnCase: "attending", StartedAt: admittedAt.Add(time.Hour)})
	require.NoError(t, err)

	_, err = f.equipment.Create(ctx, equipmentusage.EquipmentUsage{ID: "eu1", PatientID: "p1", EquipmentID: "eq1", StartedAt: admittedAt.Add(2 * time.Hour), Purpose: "monitoring"})
	require.NoError(t, err)

	report, err := f.aggregator.Discharge(ctx, Input{PatientID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "b1", report.BedIDAtDischarge)
	require.Len(t, report.Sections, 8)
	assert.Equal(t, "Identification", report.Sections[0].Title)
	assert.Equal(t, "Free-text Summary", report.Sections[7].Title)

	updatedBed, err := f.beds.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, bed.StatusCleaning, updatedBed.Status)

	updatedPatient, err := f.patients.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, patient.StatusDischarged, updatedPatient.Status)
}

func TestDischargeIsIdempotentForAlreadyDischargedPatient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	patientID := "p1"
	_, err := f.patients.Create(ctx, patient.Patient{ID: "p1", Status: patient.StatusActive, CreatedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	_, err = f.beds.Create(ctx, bed.Bed{ID: "b1", BedNumber: "101A", RoomID: "r1", Status: bed.StatusOccupied, CurrentPatientID: &patientID})
	require.NoError(t, err)

	first, err := f.aggregator.Discharge(ctx, Input{PatientID: "p1"})
	require.NoError(t, err)

	second, err := f.aggregator.Discharge(ctx, Input{PatientID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestDischargeWidensWindowForEarlierRecords(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	episodeStart := time.Now().Add(-time.Hour)
	earlier := time.Now().Add(-10 * time.Hour)

	patientID := "p1"
	_, err := f.patients.Create(ctx, patient.Patient{ID: "p1", Status: patient.StatusActive, CreatedAt: earlier})
	require.NoError(t, err)
	_, err = f.beds.Create(ctx, bed.Bed{ID: "b1", BedNumber: "101A", RoomID: "r1", Status: bed.StatusOccupied, CurrentPatientID: &patientID})
	require.NoError(t, err)

	_, err = f.equipment.Create(ctx, equipmentusage.EquipmentUsage{ID: "eu1", PatientID: "p1", EquipmentID: "eq1", StartedAt: earlier})
	require.NoError(t, err)

	report, err := f.aggregator.Discharge(ctx, Input{PatientID: "p1", EpisodeStart: episodeStart})
	require.NoError(t, err)

	var equipmentSection string
	for _, s := range report.Sections {
		if s.Title == "Equipment Used" {
			equipmentSection = s.Body
		}
	}
	assert.Contains(t, equipmentSection, "eq1")
}

func TestDischargeFailsWhenNoOccupiedBedAndNoneGiven(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.patients.Create(ctx, patient.Patient{ID: "p1", Status: patient.StatusActive, CreatedAt: time.Now()})
	require.NoError(t, err)

	_, err = f.aggregator.Discharge(ctx, Input{PatientID: "p1"})
	assert.ErrorIs(t, err, ErrNoOccupiedBed)
}

// failingUpdatePatientRepository wraps a real patient.Repository and fails
// every Update, so the Discharge saga's last step (mark patient discharged)
// can be forced to fail after the bed has already transitioned.
type failingUpdatePatientRepository struct {
	*inmem.PatientRepository
}

func (r failingUpdatePatientRepository) Update(context.Context, patient.Patient) (patient.Patient, error) {
	return patient.Patient{}, errors.New("forced update failure")
}

func TestDischargeRevertsBedWhenPatientUpdateFails(t *testing.T) {
	beds := inmem.NewBedRepository()
	realPatients := inmem.NewPatientRepository()
	reports := inmem.NewDischargeReportRepository()
	staff := inmem.NewStaffAssignmentRepository()
	equipment := inmem.NewEquipmentUsageRepository()
	supplies := inmem.NewUsageRepository()
	appts := inmem.NewAppointmentRepository()
	bedMgr := bedlifecycle.New(beds, realPatients)

	failingPatients := failingUpdatePatientRepository{realPatients}
	aggregator := New(reports, staff, equipment, supplies, appts, failingPatients, beds, bedMgr)

	ctx := context.Background()
	patientID := "p1"
	_, err := realPatients.Create(ctx, patient.Patient{ID: patientID, Status: patient.StatusActive, CreatedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	_, err = beds.Create(ctx, bed.Bed{ID: "b1", BedNumber: "101A", RoomID: "r1", Status: bed.StatusOccupied, CurrentPatientID: &patientID})
	require.NoError(t, err)

	_, err = aggregator.Discharge(ctx, Input{PatientID: patientID})
	require.Error(t, err)

	revertedBed, err := beds.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, bed.StatusOccupied, revertedBed.Status)
	require.NotNil(t, revertedBed.CurrentPatientID)
	assert.Equal(t, patientID, *revertedBed.CurrentPatientID)

	_, err = reports.GetLatestForPatient(ctx, patientID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
