package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/equipment"
)

var tableEquipment = goqu.T("equipment")

// EquipmentRepository is a pgx/goqu-backed equipment.Repository.
type EquipmentRepository struct {
	db *DB
}

var _ equipment.Repository = (*EquipmentRepository)(nil)

func NewEquipmentRepository(db *DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func (r *EquipmentRepository) Create(ctx context.Context, e equipment.Equipment) (equipment.Equipment, error) {
	query, _, err := r.db.goqu.Insert(tableEquipment).Rows(goqu.Record{
		"id":             e.ID,
		"equipment_code": e.EquipmentCode,
		"category_id":    e.CategoryID,
		"status":         string(e.Status),
		"location":       e.Location,
	}).ToSQL()
	if err != nil {
		return equipment.Equipment{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		if isUniqueViolation(err) {
			return equipment.Equipment{}, domain.ErrConflict
		}
		return equipment.Equipment{}, fmt.Errorf("create equipment: %w", err)
	}
	return e, nil
}

func (r *EquipmentRepository) Get(ctx context.Context, id string) (equipment.Equipment, error) {
	return r.scanOne(ctx, goqu.I("id").Eq(id))
}

func (r *EquipmentRepository) FindByCode(ctx context.Context, equipmentCode string) (equipment.Equipment, error) {
	return r.scanOne(ctx, goqu.I("equipment_code").Eq(equipmentCode))
}

func (r *EquipmentRepository) scanOne(ctx context.Context, where goqu.Expression) (equipment.Equipment, error) {
	query, _, err := r.db.goqu.From(tableEquipment).
		Select("id", "equipment_code", "category_id", "status", "location").
		Where(where).
		ToSQL()
	if err != nil {
		return equipment.Equipment{}, fmt.Errorf("build select: %w", err)
	}

	var e equipment.Equipment
	var status string
	row := r.db.sql.QueryRowContext(ctx, query)
	if err := row.Scan(&e.ID, &e.EquipmentCode, &e.CategoryID, &status, &e.Location); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return equipment.Equipment{}, domain.ErrNotFound
		}
		return equipment.Equipment{}, fmt.Errorf("scan equipment: %w", err)
	}
	e.Status = equipment.Status(status)
	return e, nil
}

func (r *EquipmentRepository) Update(ctx context.Context, e equipment.Equipment) (equipment.Equipment, error) {
	query, _, err := r.db.goqu.Update(tableEquipment).Set(goqu.Record{
		"status":   string(e.Status),
		"location": e.Location,
	}).Where(goqu.I("id").Eq(e.ID)).ToSQL()
	if err != nil {
		return equipment.Equipment{}, fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.sql.ExecContext(ctx, query)
	if err != nil {
		return equipment.Equipment{}, fmt.Errorf("update equipment: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return equipment.Equipment{}, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return equipment.Equipment{}, domain.ErrNotFound
	}
	return e, nil
}

func (r *EquipmentRepository) List(ctx context.Context, status equipment.Status, page domain.Page) ([]equipment.Equipment, error) {
	sel := r.db.goqu.From(tableEquipment).
		Select("id", "equipment_code", "category_id", "status", "location").
		Order(goqu.I("id").Asc())
	if status != "" {
		sel = sel.Where(goqu.I("status").Eq(string(status)))
	}
	sel = applyPage(sel, page)

	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var out []equipment.Equipment
	for rows.Next() {
		var e equipment.Equipment
		var status string
		if err := rows.Scan(&e.ID, &e.EquipmentCode, &e.CategoryID, &status, &e.Location); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		e.Status = equipment.Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
