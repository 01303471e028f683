package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/bed"
)

var tableBeds = goqu.T("beds")

// BedRepository is a pgx/goqu-backed bed.Repository.
type BedRepository struct {
	db *DB
}

var _ bed.Repository = (*BedRepository)(nil)

func NewBedRepository(db *DB) *BedRepository {
	return &BedRepository{db: db}
}

func (r *BedRepository) Create(ctx context.Context, b bed.Bed) (bed.Bed, error) {
	query, _, err := r.db.goqu.Insert(tableBeds).Rows(goqu.Record{
		"id":                        b.ID,
		"bed_number":                b.BedNumber,
		"room_id":                   b.RoomID,
		"status":                    string(b.Status),
		"current_patient_id":        b.CurrentPatientID,
		"cleaning_started_at":       b.CleaningStartedAt,
		"cleaning_duration_minutes": b.CleaningDurationMinutes,
	}).ToSQL()
	if err != nil {
		return bed.Bed{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		if isUniqueViolation(err) {
			return bed.Bed{}, domain.ErrConflict
		}
		return bed.Bed{}, fmt.Errorf("create bed: %w", err)
	}
	return b, nil
}

func (r *BedRepository) Get(ctx context.Context, id string) (bed.Bed, error) {
	return r.scanOne(ctx, goqu.I("id").Eq(id))
}

func (r *BedRepository) scanOne(ctx context.Context, where goqu.Expression) (bed.Bed, error) {
	query, _, err := r.db.goqu.From(tableBeds).
		Select("id", "bed_number", "room_id", "status", "current_patient_id", "cleaning_started_at", "cleaning_duration_minutes").
		Where(where).
		ToSQL()
	if err != nil {
		return bed.Bed{}, fmt.Errorf("build select: %w", err)
	}

	return scanBedRow(r.db.sql.QueryRowContext(ctx, query))
}

func scanBedRow(row *sql.Row) (bed.Bed, error) {
	var b bed.Bed
	var status string
	if err := row.Scan(&b.ID, &b.BedNumber, &b.RoomID, &status, &b.CurrentPatientID, &b.CleaningStartedAt, &b.CleaningDurationMinutes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bed.Bed{}, domain.ErrNotFound
		}
		return bed.Bed{}, fmt.Errorf("scan bed: %w", err)
	}
	b.Status = bed.Status(status)
	return b, nil
}

func (r *BedRepository) Update(ctx context.Context, b bed.Bed) (bed.Bed, error) {
	query, _, err := r.db.goqu.Update(tableBeds).Set(goqu.Record{
		"status":                    string(b.Status),
		"current_patient_id":        b.CurrentPatientID,
		"cleaning_started_at":       b.CleaningStartedAt,
		"cleaning_duration_minutes": b.CleaningDurationMinutes,
	}).Where(goqu.I("id").Eq(b.ID)).ToSQL()
	if err != nil {
		return bed.Bed{}, fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.sql.ExecContext(ctx, query)
	if err != nil {
		return bed.Bed{}, fmt.Errorf("update bed: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return bed.Bed{}, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return bed.Bed{}, domain.ErrNotFound
	}
	return b, nil
}

func (r *BedRepository) List(ctx context.Context, roomID string, page domain.Page) ([]bed.Bed, error) {
	sel := r.db.goqu.From(tableBeds).
		Select("id", "bed_number", "room_id", "status", "current_patient_id", "cleaning_started_at", "cleaning_duration_minutes").
		Order(goqu.I("id").Asc())
	if roomID != "" {
		sel = sel.Where(goqu.I("room_id").Eq(roomID))
	}
	sel = applyPage(sel, page)

	return r.queryBeds(ctx, sel)
}

func (r *BedRepository) ListByStatus(ctx context.Context, status bed.Status) ([]bed.Bed, error) {
	sel := r.db.goqu.From(tableBeds).
		Select("id", "bed_number", "room_id", "status", "current_patient_id", "cleaning_started_at", "cleaning_duration_minutes").
		Where(goqu.I("status").Eq(string(status))).
		Order(goqu.I("id").Asc())

	return r.queryBeds(ctx, sel)
}

func (r *BedRepository) queryBeds(ctx context.Context, sel *goqu.SelectDataset) ([]bed.Bed, error) {
	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query beds: %w", err)
	}
	defer rows.Close()

	var out []bed.Bed
	for rows.Next() {
		var b bed.Bed
		var status string
		if err := rows.Scan(&b.ID, &b.BedNumber, &b.RoomID, &status, &b.CurrentPatientID, &b.CleaningStartedAt, &b.CleaningDurationMinutes); err != nil {
			return nil, fmt.Errorf("scan bed: %w", err)
		}
		b.Status = bed.Status(status)
		out = append(out, b)
	}
	return out, rows.Err()
}
