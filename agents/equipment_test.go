package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/equipment"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
	"github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func newTestEquipmentAgent() (*EquipmentAgent, *toolregistry.Registry) {
	a := NewEquipmentAgent(inmem.NewEquipmentRepository(), inmem.NewEquipmentUsageRepository())
	reg := toolregistry.New()
	if err := a.Register(reg); err != nil {
		panic(err)
	}
	return a, reg
}

func TestAddEquipmentUsageMovesToInUse(t *testing.T) {
	a, reg := newTestEquipmentAgent()
	e, err := a.equipment.Create(context.Background(), equipment.Equipment{ID: "eq-1", EquipmentCode: "EQ-1", Status: equipment.StatusAvailable})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "equipment.add_equipment_usage_simple", json.RawMessage(`{
		"equipment_id": "`+e.ID+`",
		"patient_id": "pat-1",
		"operator_id": "staff-1"
	}`))
	require.True(t, res.OK, "%+v", res)

	updated, err := a.equipment.Get(context.Background(), e.ID)
	require.NoError(t, err)
	require.Equal(t, equipment.StatusInUse, updated.Status)
}

func TestAddEquipmentUsageRejectsUnavailable(t *testing.T) {
	a, reg := newTestEquipmentAgent()
	e, err := a.equipment.Create(context.Background(), equipment.Equipment{ID: "eq-1", EquipmentCode: "EQ-1", Status: equipment.StatusMaintenance})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "equipment.add_equipment_usage_simple", json.RawMessage(`{
		"equipment_id": "`+e.ID+`",
		"patient_id": "pat-1",
		"operator_id": "staff-1"
	}`))
	require.False(t, res.OK)
}

func TestScheduleMaintenanceClosesOpenUsage(t *testing.T) {
	a, reg := newTestEquipmentAgent()
	e, err := a.equipment.Create(context.Background(), equipment.Equipment{ID: "eq-1", EquipmentCode: "EQ-1", Status: equipment.StatusAvailable})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "equipment.add_equipment_usage_simple", json.RawMessage(`{
		"equipment_id": "`+e.ID+`",
		"patient_id": "pat-1",
		"operator_id": "staff-1"
	}`))
	require.True(t, res.OK, "%+v", res)
	usage := res.Data.(equipmentusage.EquipmentUsage)

	res = reg.Call(context.Background(), "equipment.schedule_equipment_maintenance", json.RawMessage(`{"id": "`+e.ID+`"}`))
	require.True(t, res.OK, "%+v", res)
	require.Equal(t, equipment.StatusMaintenance, res.Data.(equipment.Equipment).Status)

	closed, err := a.usages.ListByPatient(context.Background(), "pat-1", domain.TimeWindow{})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, usage.ID, closed[0].ID)
	require.NotNil(t, closed[0].EndedAt)
}

func TestUpdateEquipmentStatusDirectTransition(t *testing.T) {
	a, reg := newTestEquipmentAgent()
	e, err := a.equipment.Create(context.Background(), equipment.Equipment{ID: "eq-1", EquipmentCode: "EQ-1", Status: equipment.StatusAvailable})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "equipment.update_equipment_status", json.RawMessage(`{"id": "`+e.ID+`", "status": "out_of_service"}`))
	require.True(t, res.OK, "%+v", res)
	require.Equal(t, equipment.StatusOutOfService, res.Data.(equipment.Equipment).Status)
}
