package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
)

var tableEquipmentUsages = goqu.T("equipment_usages")

// EquipmentUsageRepository is a pgx/goqu-backed equipmentusage.Repository.
type EquipmentUsageRepository struct {
	db *DB
}

var _ equipmentusage.Repository = (*EquipmentUsageRepository)(nil)

func NewEquipmentUsageRepository(db *DB) *EquipmentUsageRepository {
	return &EquipmentUsageRepository{db: db}
}

func (r *EquipmentUsageRepository) Create(ctx context.Context, u equipmentusage.EquipmentUsage) (equipmentusage.EquipmentUsage, error) {
	query, _, err := r.db.goqu.Insert(tableEquipmentUsages).Rows(goqu.Record{
		"id":           u.ID,
		"patient_id":   u.PatientID,
		"equipment_id": u.EquipmentID,
		"operator_id":  u.OperatorID,
		"started_at":   u.StartedAt,
		"ended_at":     u.EndedAt,
		"purpose":      u.Purpose,
	}).ToSQL()
	if err != nil {
		return equipmentusage.EquipmentUsage{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		return equipmentusage.EquipmentUsage{}, fmt.Errorf("create equipment usage: %w", err)
	}
	return u, nil
}

func (r *EquipmentUsageRepository) Close(ctx context.Context, id string, endedAt time.Time) (equipmentusage.EquipmentUsage, error) {
	query, _, err := r.db.goqu.Update(tableEquipmentUsages).
		Set(goqu.Record{"ended_at": endedAt}).
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return equipmentusage.EquipmentUsage{}, fmt.Errorf("build update: %w", err)
	}
	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		return equipmentusage.EquipmentUsage{}, fmt.Errorf("close equipment usage: %w", err)
	}

	selQuery, _, err := r.db.goqu.From(tableEquipmentUsages).
		Select("id", "patient_id", "equipment_id", "operator_id", "started_at", "ended_at", "purpose").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return equipmentusage.EquipmentUsage{}, fmt.Errorf("build select: %w", err)
	}

	var u equipmentusage.EquipmentUsage
	row := r.db.sql.QueryRowContext(ctx, selQuery)
	if err := row.Scan(&u.ID, &u.PatientID, &u.EquipmentID, &u.OperatorID, &u.StartedAt, &u.EndedAt, &u.Purpose); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return equipmentusage.EquipmentUsage{}, domain.ErrNotFound
		}
		return equipmentusage.EquipmentUsage{}, fmt.Errorf("scan equipment usage: %w", err)
	}
	return u, nil
}

func (r *EquipmentUsageRepository) ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]equipmentusage.EquipmentUsage, error) {
	sel := r.db.goqu.From(tableEquipmentUsages).
		Select("id", "patient_id", "equipment_id", "operator_id", "started_at", "ended_at", "purpose").
		Where(goqu.I("patient_id").Eq(patientID)).
		Order(goqu.I("started_at").Asc())
	sel = applyWindow(sel, "started_at", window)

	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list equipment usages: %w", err)
	}
	defer rows.Close()

	var out []equipmentusage.EquipmentUsage
	for rows.Next() {
		var u equipmentusage.EquipmentUsage
		if err := rows.Scan(&u.ID, &u.PatientID, &u.EquipmentID, &u.OperatorID, &u.StartedAt, &u.EndedAt, &u.Purpose); err != nil {
			return nil, fmt.Errorf("scan equipment usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
