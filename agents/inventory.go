package agents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/inventory"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// InventoryAgent owns Supply, InventoryTransaction and PatientSupplyUsage
// (spec.md §4.5), the three entities the inventory agent manages together.
type InventoryAgent struct {
	supplies inventory.SupplyRepository
}

// NewInventoryAgent constructs an InventoryAgent.
func NewInventoryAgent(supplies inventory.SupplyRepository) *InventoryAgent {
	return &InventoryAgent{supplies: supplies}
}

// Register adds every Inventory agent tool to reg.
func (a *InventoryAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "inventory.create_supply",
			OwningAgent: "inventory",
			Description: "Create a new stocked supply item.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"item_code": {"type": "string"},
					"category_id": {"type": "string"},
					"quantity_on_hand": {"type": "integer", "minimum": 0},
					"reorder_threshold": {"type": "integer", "minimum": 0}
				},
				"required": ["item_code", "category_id"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.createSupply,
		},
		{
			Name:        "inventory.list_supplies",
			OwningAgent: "inventory",
			Description: "List supplies, optionally filtered by category.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"category_id": {"type": "string"}}
			}`),
			Handler: a.listSupplies,
		},
		{
			Name:        "inventory.update_supply_stock",
			OwningAgent: "inventory",
			Description: "Apply a signed stock movement to a supply, recording the transaction.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"supply_id": {"type": "string"},
					"delta": {"type": "integer"},
					"kind": {"type": "string", "enum": ["restock", "consume", "adjust"]},
					"performed_by": {"type": "string"}
				},
				"required": ["supply_id", "delta", "kind", "performed_by"]
			}`),
			SideEffecting: true,
			Handler:       a.updateSupplyStock,
		},
		{
			Name:        "inventory.get_low_stock_supplies",
			OwningAgent: "inventory",
			Description: "List supplies whose quantity on hand is at or below their reorder threshold.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"category_id": {"type": "string"}}
			}`),
			Handler: a.getLowStockSupplies,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type createSupplyArgs struct {
	ItemCode         string `json:"item_code"`
	CategoryID       string `json:"category_id"`
	QuantityOnHand   int    `json:"quantity_on_hand"`
	ReorderThreshold int    `json:"reorder_threshold"`
}

func (a *InventoryAgent) createSupply(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createSupplyArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	s, err := a.supplies.Create(ctx, inventory.Supply{
		ID:               uuid.NewString(),
		ItemCode:         args.ItemCode,
		CategoryID:       args.CategoryID,
		QuantityOnHand:   args.QuantityOnHand,
		ReorderThreshold: args.ReorderThreshold,
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return s, nil
}

type listSuppliesArgs struct {
	CategoryID string `json:"category_id"`
}

func (a *InventoryAgent) listSupplies(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listSuppliesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	results, err := a.supplies.List(ctx, args.CategoryID, domain.Page{Limit: 500})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return results, nil
}

type updateSupplyStockArgs struct {
	SupplyID    string                    `json:"supply_id"`
	Delta       int                       `json:"delta"`
	Kind        inventory.TransactionKind `json:"kind"`
	PerformedBy string                    `json:"performed_by"`
}

func (a *InventoryAgent) updateSupplyStock(ctx context.Context, raw json.RawMessage) (any, error) {
	var args updateSupplyStockArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	s, err := a.supplies.ApplyTransaction(ctx, args.SupplyID, inventory.InventoryTransaction{
		ID:        uuid.NewString(),
		SupplyID:  args.SupplyID,
		Delta:     args.Delta,
		Kind:      args.Kind,
		ActorID:   args.PerformedBy,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, toolerrors.NewWithCause(toolerrors.KindStockInsufficient, "stock insufficient for this movement", err)
		}
		return nil, translateRepoErr(err)
	}
	return s, nil
}

func (a *InventoryAgent) getLowStockSupplies(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listSuppliesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	all, err := a.supplies.List(ctx, args.CategoryID, domain.Page{Limit: 2000})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	low := make([]inventory.Supply, 0, len(all))
	for _, s := range all {
		if s.QuantityOnHand <= s.ReorderThreshold {
			low = append(low, s)
		}
	}
	return low, nil
}
