package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain/department"
	"github.com/careflow-systems/hospital-core/domain/room"
	"github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func newTestDepartmentAgent() (*DepartmentAgent, *toolregistry.Registry) {
	a := NewDepartmentAgent(inmem.NewDepartmentRepository(), inmem.NewRoomRepository())
	reg := toolregistry.New()
	if err := a.Register(reg); err != nil {
		panic(err)
	}
	return a, reg
}

func TestCreateDepartmentAndListRooms(t *testing.T) {
	_, reg := newTestDepartmentAgent()
	ctx := context.Background()

	res := reg.Call(ctx, "department.create_department", json.RawMessage(`{"name": "Cardiology", "code": "CARD"}`))
	require.True(t, res.OK, "%+v", res)
	dept := res.Data.(department.Department)

	res = reg.Call(ctx, "department.create_room", json.RawMessage(`{"room_number": "101", "department_id": "`+dept.ID+`", "floor": 1}`))
	require.True(t, res.OK, "%+v", res)

	res = reg.Call(ctx, "department.list_rooms", json.RawMessage(`{"department_id": "`+dept.ID+`"}`))
	require.True(t, res.OK, "%+v", res)
	require.Len(t, res.Data.([]room.Room), 1)
}

func TestListDepartments(t *testing.T) {
	_, reg := newTestDepartmentAgent()
	ctx := context.Background()
	res := reg.Call(ctx, "department.create_department", json.RawMessage(`{"name": "ICU", "code": "ICU"}`))
	require.True(t, res.OK, "%+v", res)

	res = reg.Call(ctx, "department.list_departments", json.RawMessage(`{}`))
	require.True(t, res.OK, "%+v", res)
	require.Len(t, res.Data.([]department.Department), 1)
}
