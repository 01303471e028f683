package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain/inventory"
	"github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func newTestInventoryAgent() (*InventoryAgent, *toolregistry.Registry) {
	a := NewInventoryAgent(inmem.NewInventoryRepository())
	reg := toolregistry.New()
	if err := a.Register(reg); err != nil {
		panic(err)
	}
	return a, reg
}

func TestUpdateSupplyStockRestockAndConsume(t *testing.T) {
	a, reg := newTestInventoryAgent()
	s, err := a.supplies.Create(context.Background(), inventory.Supply{ID: "s-1", ItemCode: "SUP-1", QuantityOnHand: 0, ReorderThreshold: 5})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "inventory.update_supply_stock", json.RawMessage(`{
		"supply_id": "`+s.ID+`", "delta": 10, "kind": "restock", "performed_by": "staff-1"
	}`))
	require.True(t, res.OK, "%+v", res)
	require.Equal(t, 10, res.Data.(inventory.Supply).QuantityOnHand)

	res = reg.Call(context.Background(), "inventory.update_supply_stock", json.RawMessage(`{
		"supply_id": "`+s.ID+`", "delta": -3, "kind": "consume", "performed_by": "staff-1"
	}`))
	require.True(t, res.OK, "%+v", res)
	require.Equal(t, 7, res.Data.(inventory.Supply).QuantityOnHand)
}

func TestUpdateSupplyStockRejectsNegative(t *testing.T) {
	a, reg := newTestInventoryAgent()
	s, err := a.supplies.Create(context.Background(), inventory.Supply{ID: "s-1", ItemCode: "SUP-1", QuantityOnHand: 2})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "inventory.update_supply_stock", json.RawMessage(`{
		"supply_id": "`+s.ID+`", "delta": -5, "kind": "consume", "performed_by": "staff-1"
	}`))
	require.False(t, res.OK)
	require.Equal(t, "stock_insufficient", string(res.ErrorKind))
}

func TestGetLowStockSupplies(t *testing.T) {
	a, reg := newTestInventoryAgent()
	_, err := a.supplies.Create(context.Background(), inventory.Supply{ID: "s-1", ItemCode: "SUP-1", QuantityOnHand: 1, ReorderThreshold: 5})
	require.NoError(t, err)
	_, err = a.supplies.Create(context.Background(), inventory.Supply{ID: "s-2", ItemCode: "SUP-2", QuantityOnHand: 20, ReorderThreshold: 5})
	require.NoError(t, err)

	res := reg.Call(context.Background(), "inventory.get_low_stock_supplies", json.RawMessage(`{}`))
	require.True(t, res.OK, "%+v", res)
	low := res.Data.([]inventory.Supply)
	require.Len(t, low, 1)
	require.Equal(t, "s-1", low[0].ID)
}
