package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain/staff"
	"github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func newTestStaffAgent() (*StaffAgent, *toolregistry.Registry) {
	a := NewStaffAgent(inmem.NewStaffRepository(), inmem.NewStaffAssignmentRepository())
	reg := toolregistry.New()
	if err := a.Register(reg); err != nil {
		panic(err)
	}
	return a, reg
}

func TestCreateStaffDefaultsActive(t *testing.T) {
	_, reg := newTestStaffAgent()

	res := reg.Call(context.Background(), "staff.create_staff", json.RawMessage(`{
		"employee_code": "E-1",
		"role": "nurse",
		"department_id": "dept-1"
	}`))
	require.True(t, res.OK, "%+v", res)
	created := res.Data.(staff.Staff)
	require.True(t, created.Active)
}

func TestAssignStaffToPatient(t *testing.T) {
	a, reg := newTestStaffAgent()
	created, err := a.staff.Create(context.Background(), staff.Staff{ID: "s-1", EmployeeCode: "E-1", Role: staff.RoleNurse, Active: true})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "staff.assign_staff_to_patient_simple", json.RawMessage(`{
		"patient_id": "pat-1",
		"staff_id": "`+created.ID+`",
		"role_on_case": "primary_nurse"
	}`))
	require.True(t, res.OK, "%+v", res)
}

func TestUpdateStaffStatusDeactivates(t *testing.T) {
	a, reg := newTestStaffAgent()
	created, err := a.staff.Create(context.Background(), staff.Staff{ID: "s-1", EmployeeCode: "E-1", Role: staff.RoleNurse, Active: true})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "staff.update_staff_status", json.RawMessage(`{"id": "`+created.ID+`", "active": false}`))
	require.True(t, res.OK, "%+v", res)
	require.False(t, res.Data.(staff.Staff).Active)
}

func TestListStaffFiltersByDepartment(t *testing.T) {
	a, reg := newTestStaffAgent()
	_, err := a.staff.Create(context.Background(), staff.Staff{ID: "s-1", EmployeeCode: "E-1", Role: staff.RoleNurse, DepartmentID: "dept-1", Active: true})
	require.NoError(t, err)
	_, err = a.staff.Create(context.Background(), staff.Staff{ID: "s-2", EmployeeCode: "E-2", Role: staff.RoleDoctor, DepartmentID: "dept-2", Active: true})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "staff.list_staff", json.RawMessage(`{"department_id": "dept-1"}`))
	require.True(t, res.OK, "%+v", res)
	listed := res.Data.([]staff.Staff)
	require.Len(t, listed, 1)
	require.Equal(t, "s-1", listed[0].ID)
}
