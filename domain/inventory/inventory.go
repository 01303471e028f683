// Package inventory defines Supply, InventoryTransaction and
// PatientSupplyUsage (spec.md §3) — the three entities the inventory agent
// owns together, since a consume transaction and a supply-usage row are
// always written in the same operation (spec.md §3 "drives a corresponding
// consume InventoryTransaction").
package inventory

import (
	"context"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
)

// TransactionKind classifies an InventoryTransaction's effect on stock.
type TransactionKind string

const (
	TransactionRestock TransactionKind = "restock"
	TransactionConsume TransactionKind = "consume"
	TransactionAdjust  TransactionKind = "adjust"
)

// Supply is a stocked consumable item. QuantityOnHand must never go
// negative; it is derived from the sum of its InventoryTransaction deltas.
type Supply struct {
	ID               string
	ItemCode         string
	CategoryID       string
	QuantityOnHand   int
	ReorderThreshold int
}

// InventoryTransaction is an append-only stock movement. Delta is signed:
// positive for restock, negative for consume, either sign for adjust.
type InventoryTransaction struct {
	ID        string
	SupplyID  string
	Delta     int
	Kind      TransactionKind
	ActorID   string
	Timestamp time.Time
}

// PatientSupplyUsage records a supply administered to a patient. Recording
// one always drives a corresponding consume InventoryTransaction for the
// same quantity (spec.md §3).
type PatientSupplyUsage struct {
	ID             string
	PatientID      string
	SupplyID       string
	Quantity       int
	AdministeredBy string
	AdministeredAt time.Time
}

// SupplyRepository persists Supply rows. ItemCode is globally unique.
type SupplyRepository interface {
	Create(ctx context.Context, s Supply) (Supply, error)
	Get(ctx context.Context, id string) (Supply, error)
	FindByCode(ctx context.Context, itemCode string) (Supply, error)
	// ApplyTransaction atomically adjusts QuantityOnHand by delta and
	// appends the given transaction in the same operation, returning the
	// updated Supply. Implementations must reject a delta that would drive
	// QuantityOnHand negative with domain.ErrConflict (error_kind
	// "stock_insufficient" at the agent boundary).
	ApplyTransaction(ctx context.Context, supplyID string, txn InventoryTransaction) (Supply, error)
	List(ctx context.Context, categoryID string, page domain.Page) ([]Supply, error)
}

// TransactionRepository is the read side of the InventoryTransaction ledger;
// writes only ever happen via SupplyRepository.ApplyTransaction.
type TransactionRepository interface {
	ListBySupply(ctx context.Context, supplyID string, page domain.Page) ([]InventoryTransaction, error)
}

// UsageRepository persists PatientSupplyUsage rows.
type UsageRepository interface {
	Create(ctx context.Context, u PatientSupplyUsage) (PatientSupplyUsage, error)
	ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]PatientSupplyUsage, error)
}
