package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
)

var tableStaffAssignments = goqu.T("staff_assignments")

// StaffAssignmentRepository is a pgx/goqu-backed staffassignment.Repository.
type StaffAssignmentRepository struct {
	db *DB
}

var _ staffassignment.Repository = (*StaffAssignmentRepository)(nil)

func NewStaffAssignmentRepository(db *DB) *StaffAssignmentRepository {
	return &StaffAssignmentRepository{db: db}
}

func (r *StaffAssignmentRepository) Create(ctx context.Context, a staffassignment.StaffAssignment) (staffassignment.StaffAssignment, error) {
	query, _, err := r.db.goqu.Insert(tableStaffAssignments).Rows(goqu.Record{
		"id":           a.ID,
		"patient_id":   a.PatientID,
		"staff_id":     a.StaffID,
		"role_on_case": a.RoleOnCase,
		"started_at":   a.StartedAt,
		"ended_at":     a.EndedAt,
	}).ToSQL()
	if err != nil {
		return staffassignment.StaffAssignment{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		return staffassignment.StaffAssignment{}, fmt.Errorf("create staff assignment: %w", err)
	}
	return a, nil
}

func (r *StaffAssignmentRepository) Close(ctx context.Context, id string, endedAt time.Time) (staffassignment.StaffAssignment, error) {
	query, _, err := r.db.goqu.Update(tableStaffAssignments).
		Set(goqu.Record{"ended_at": endedAt}).
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return staffassignment.StaffAssignment{}, fmt.Errorf("build update: %w", err)
	}
	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		return staffassignment.StaffAssignment{}, fmt.Errorf("close staff assignment: %w", err)
	}

	selQuery, _, err := r.db.goqu.From(tableStaffAssignments).
		Select("id", "patient_id", "staff_id", "role_on_case", "started_at", "ended_at").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return staffassignment.StaffAssignment{}, fmt.Errorf("build select: %w", err)
	}

	var a staffassignment.StaffAssignment
	row := r.db.sql.QueryRowContext(ctx, selQuery)
	if err := row.Scan(&a.ID, &a.PatientID, &a.StaffID, &a.RoleOnCase, &a.StartedAt, &a.EndedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return staffassignment.StaffAssignment{}, domain.ErrNotFound
		}
		return staffassignment.StaffAssignment{}, fmt.Errorf("scan staff assignment: %w", err)
	}
	return a, nil
}

func (r *StaffAssignmentRepository) ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]staffassignment.StaffAssignment, error) {
	sel := r.db.goqu.From(tableStaffAssignments).
		Select("id", "patient_id", "staff_id", "role_on_case", "started_at", "ended_at").
		Where(goqu.I("patient_id").Eq(patientID)).
		Order(goqu.I("started_at").Asc())
	sel = applyWindow(sel, "started_at", window)

	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list staff assignments: %w", err)
	}
	defer rows.Close()

	var out []staffassignment.StaffAssignment
	for rows.Next() {
		var a staffassignment.StaffAssignment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.StaffID, &a.RoleOnCase, &a.StartedAt, &a.EndedAt); err != nil {
			return nil, fmt.Errorf("scan staff assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
