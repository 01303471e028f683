package workflows

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/bed"
	"github.com/careflow-systems/hospital-core/domain/equipment"
	"github.com/careflow-systems/hospital-core/domain/staff"
	"github.com/careflow-systems/hospital-core/runtime/workflow"
)

func TestAdmissionGraphHappyPath(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	_, err := h.beds.Create(ctx, bed.Bed{ID: "bed-1", BedNumber: "101", RoomID: "room-1", Status: bed.StatusAvailable})
	require.NoError(t, err)
	_, err = h.staff.Create(ctx, staff.Staff{ID: "staff-1", EmployeeCode: "E1", Role: staff.RoleDoctor, Active: true})
	require.NoError(t, err)
	_, err = h.equipment.Create(ctx, equipment.Equipment{ID: "equip-1", EquipmentCode: "EQ1", CategoryID: "monitor", Status: equipment.StatusAvailable})
	require.NoError(t, err)

	require.NoError(t, workflow.RegisterGraph(ctx, h.we, BuildAdmissionGraph(AdmissionOptions{})))

	input := AdmissionInput{
		Name:                "Jane Roe",
		DateOfBirth:         time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		RoomID:              "room-1",
		StaffRole:           staff.RoleDoctor,
		EquipmentCategoryID: "monitor",
	}
	_, err = workflow.Start(ctx, h.we, AdmissionKind, "session-1", AdmissionState{Input: input})
	require.NoError(t, err)

	final, err := workflow.Await[AdmissionState](ctx, h.we, AdmissionKind, "session-1")
	require.NoError(t, err)

	require.Equal(t, "ok", final.ValidationResult)
	require.NotEmpty(t, final.PatientID)
	require.Equal(t, "bed-1", final.SelectedBedID)
	require.Equal(t, "staff-1", final.AssignedStaffID)
	require.Equal(t, "equip-1", final.AssignedEquipmentID)
	require.Len(t, final.Reports, 1)
	require.Equal(t, "admitted", final.Status)
	require.Empty(t, final.Errors)
}

func TestAdmissionGraphNoBedAvailable(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	_, err := h.staff.Create(ctx, staff.Staff{ID: "staff-1", EmployeeCode: "E1", Role: staff.RoleDoctor, Active: true})
	require.NoError(t, err)

	require.NoError(t, workflow.RegisterGraph(ctx, h.we, BuildAdmissionGraph(AdmissionOptions{
		MaxBedWaitAttempts: 1,
		BedWaitDelay:       time.Millisecond,
	})))

	input := AdmissionInput{
		Name:        "No Bed Patient",
		DateOfBirth: time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC),
		RoomID:      "room-missing",
	}
	_, err = workflow.Start(ctx, h.we, AdmissionKind, "session-no-bed", AdmissionState{Input: input})
	require.NoError(t, err)

	_, err = workflow.Await[AdmissionState](ctx, h.we, AdmissionKind, "session-no-bed")
	require.Error(t, err)

	status, statusErr := workflow.Status(ctx, h.we, AdmissionKind, "session-no-bed")
	require.NoError(t, statusErr)
	require.Equal(t, workflow.StatusFailed, status.Status)

	// Seed scenario S2 (spec.md §8): exhausting wait_or_fail must leave no
	// patient created and no bed touched. find_bed runs before
	// create_patient in the graph specifically so this holds without a
	// compensating delete.
	remaining, err := h.patients.List(ctx, "", domain.Page{})
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestAdmissionGraphValidationFailure(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, workflow.RegisterGraph(ctx, h.we, BuildAdmissionGraph(AdmissionOptions{})))

	input := AdmissionInput{RoomID: "room-1"}
	_, err := workflow.Start(ctx, h.we, AdmissionKind, "session-invalid", AdmissionState{Input: input})
	require.NoError(t, err)

	_, err = workflow.Await[AdmissionState](ctx, h.we, AdmissionKind, "session-invalid")
	require.Error(t, err)
}
