package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/inventory"
)

var (
	tableSupplies             = goqu.T("supplies")
	tableInventoryTransactions = goqu.T("inventory_transactions")
	tablePatientSupplyUsages  = goqu.T("patient_supply_usages")
)

// InventoryRepository is a pgx/goqu-backed inventory.SupplyRepository and
// inventory.TransactionRepository, sharing one *DB so ApplyTransaction can
// run the stock adjustment and ledger append inside one SQL transaction.
type InventoryRepository struct {
	db *DB
}

var _ inventory.SupplyRepository = (*InventoryRepository)(nil)
var _ inventory.TransactionRepository = (*InventoryRepository)(nil)

func NewInventoryRepository(db *DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Create(ctx context.Context, s inventory.Supply) (inventory.Supply, error) {
	query, _, err := r.db.goqu.Insert(tableSupplies).Rows(goqu.Record{
		"id":                s.ID,
		"item_code":         s.ItemCode,
		"category_id":       s.CategoryID,
		"quantity_on_hand":  s.QuantityOnHand,
		"reorder_threshold": s.ReorderThreshold,
	}).ToSQL()
	if err != nil {
		return inventory.Supply{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		if isUniqueViolation(err) {
			return inventory.Supply{}, domain.ErrConflict
		}
		return inventory.Supply{}, fmt.Errorf("create supply: %w", err)
	}
	return s, nil
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (inventory.Supply, error) {
	return r.scanOne(ctx, r.db.sql, goqu.I("id").Eq(id))
}

func (r *InventoryRepository) FindByCode(ctx context.Context, itemCode string) (inventory.Supply, error) {
	return r.scanOne(ctx, r.db.sql, goqu.I("item_code").Eq(itemCode))
}

// queryer is satisfied by both *sql.DB and *sql.Tx, so scanOne can run
// either outside or inside the ApplyTransaction transaction.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *InventoryRepository) scanOne(ctx context.Context, q queryer, where goqu.Expression) (inventory.Supply, error) {
	query, _, err := r.db.goqu.From(tableSupplies).
		Select("id", "item_code", "category_id", "quantity_on_hand", "reorder_threshold").
		Where(where).
		ToSQL()
	if err != nil {
		return inventory.Supply{}, fmt.Errorf("build select: %w", err)
	}

	var s inventory.Supply
	row := q.QueryRowContext(ctx, query)
	if err := row.Scan(&s.ID, &s.ItemCode, &s.CategoryID, &s.QuantityOnHand, &s.ReorderThreshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.Supply{}, domain.ErrNotFound
		}
		return inventory.Supply{}, fmt.Errorf("scan supply: %w", err)
	}
	return s, nil
}

// ApplyTransaction adjusts quantity_on_hand and appends the ledger row
// within one SQL transaction, using SELECT ... FOR UPDATE to serialize
// concurrent adjustments to the same supply.
func (r *InventoryRepository) ApplyTransaction(ctx context.Context, supplyID string, txn inventory.InventoryTransaction) (inventory.Supply, error) {
	tx, err := r.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return inventory.Supply{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	lockQuery, _, err := r.db.goqu.From(tableSupplies).
		Select("id", "item_code", "category_id", "quantity_on_hand", "reorder_threshold").
		Where(goqu.I("id").Eq(supplyID)).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return inventory.Supply{}, fmt.Errorf("build lock select: %w", err)
	}

	var s inventory.Supply
	row := tx.QueryRowContext(ctx, lockQuery)
	if err := row.Scan(&s.ID, &s.ItemCode, &s.CategoryID, &s.QuantityOnHand, &s.ReorderThreshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.Supply{}, domain.ErrNotFound
		}
		return inventory.Supply{}, fmt.Errorf("lock supply: %w", err)
	}

	if s.QuantityOnHand+txn.Delta < 0 {
		return inventory.Supply{}, domain.ErrConflict
	}
	s.QuantityOnHand += txn.Delta

	updateQuery, _, err := r.db.goqu.Update(tableSupplies).
		Set(goqu.Record{"quantity_on_hand": s.QuantityOnHand}).
		Where(goqu.I("id").Eq(supplyID)).
		ToSQL()
	if err != nil {
		return inventory.Supply{}, fmt.Errorf("build update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, updateQuery); err != nil {
		return inventory.Supply{}, fmt.Errorf("update supply stock: %w", err)
	}

	insertQuery, _, err := r.db.goqu.Insert(tableInventoryTransactions).Rows(goqu.Record{
		"id":         txn.ID,
		"supply_id":  supplyID,
		"delta":      txn.Delta,
		"kind":       string(txn.Kind),
		"actor_id":   txn.ActorID,
		"created_at": txn.Timestamp,
	}).ToSQL()
	if err != nil {
		return inventory.Supply{}, fmt.Errorf("build ledger insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertQuery); err != nil {
		return inventory.Supply{}, fmt.Errorf("append ledger row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return inventory.Supply{}, fmt.Errorf("commit transaction: %w", err)
	}
	return s, nil
}

func (r *InventoryRepository) List(ctx context.Context, categoryID string, page domain.Page) ([]inventory.Supply, error) {
	sel := r.db.goqu.From(tableSupplies).
		Select("id", "item_code", "category_id", "quantity_on_hand", "reorder_threshold").
		Order(goqu.I("id").Asc())
	if categoryID != "" {
		sel = sel.Where(goqu.I("category_id").Eq(categoryID))
	}
	sel = applyPage(sel, page)

	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list supplies: %w", err)
	}
	defer rows.Close()

	var out []inventory.Supply
	for rows.Next() {
		var s inventory.Supply
		if err := rows.Scan(&s.ID, &s.ItemCode, &s.CategoryID, &s.QuantityOnHand, &s.ReorderThreshold); err != nil {
			return nil, fmt.Errorf("scan supply: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *InventoryRepository) ListBySupply(ctx context.Context, supplyID string, page domain.Page) ([]inventory.InventoryTransaction, error) {
	sel := r.db.goqu.From(tableInventoryTransactions).
		Select("id", "supply_id", "delta", "kind", "actor_id", "created_at").
		Where(goqu.I("supply_id").Eq(supplyID)).
		Order(goqu.I("created_at").Asc())
	sel = applyPage(sel, page)

	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []inventory.InventoryTransaction
	for rows.Next() {
		var t inventory.InventoryTransaction
		var kind string
		if err := rows.Scan(&t.ID, &t.SupplyID, &t.Delta, &kind, &t.ActorID, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = inventory.TransactionKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

// UsageRepository is a pgx/goqu-backed inventory.UsageRepository.
type UsageRepository struct {
	db *DB
}

var _ inventory.UsageRepository = (*UsageRepository)(nil)

func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Create(ctx context.Context, u inventory.PatientSupplyUsage) (inventory.PatientSupplyUsage, error) {
	query, _, err := r.db.goqu.Insert(tablePatientSupplyUsages).Rows(goqu.Record{
		"id":              u.ID,
		"patient_id":      u.PatientID,
		"supply_id":       u.SupplyID,
		"quantity":        u.Quantity,
		"administered_by": u.AdministeredBy,
		"administered_at": u.AdministeredAt,
	}).ToSQL()
	if err != nil {
		return inventory.PatientSupplyUsage{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		return inventory.PatientSupplyUsage{}, fmt.Errorf("create usage: %w", err)
	}
	return u, nil
}

func (r *UsageRepository) ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]inventory.PatientSupplyUsage, error) {
	sel := r.db.goqu.From(tablePatientSupplyUsages).
		Select("id", "patient_id", "supply_id", "quantity", "administered_by", "administered_at").
		Where(goqu.I("patient_id").Eq(patientID)).
		Order(goqu.I("administered_at").Asc())
	sel = applyWindow(sel, "administered_at", window)

	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list usages: %w", err)
	}
	defer rows.Close()

	var out []inventory.PatientSupplyUsage
	for rows.Next() {
		var u inventory.PatientSupplyUsage
		if err := rows.Scan(&u.ID, &u.PatientID, &u.SupplyID, &u.Quantity, &u.AdministeredBy, &u.AdministeredAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
