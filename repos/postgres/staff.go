package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/staff"
)

var tableStaff = goqu.T("staff")

// StaffRepository is a pgx/goqu-backed staff.Repository.
type StaffRepository struct {
	db *DB
}

var _ staff.Repository = (*StaffRepository)(nil)

func NewStaffRepository(db *DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) Create(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	query, _, err := r.db.goqu.Insert(tableStaff).Rows(goqu.Record{
		"id":            s.ID,
		"employee_code": s.EmployeeCode,
		"role":          string(s.Role),
		"department_id": s.DepartmentID,
		"active":        s.Active,
	}).ToSQL()
	if err != nil {
		return staff.Staff{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		if isUniqueViolation(err) {
			return staff.Staff{}, domain.ErrConflict
		}
		return staff.Staff{}, fmt.Errorf("create staff: %w", err)
	}
	return s, nil
}

func (r *StaffRepository) Get(ctx context.Context, id string) (staff.Staff, error) {
	return r.scanOne(ctx, goqu.I("id").Eq(id))
}

func (r *StaffRepository) FindByCode(ctx context.Context, employeeCode string) (staff.Staff, error) {
	return r.scanOne(ctx, goqu.I("employee_code").Eq(employeeCode))
}

func (r *StaffRepository) scanOne(ctx context.Context, where goqu.Expression) (staff.Staff, error) {
	query, _, err := r.db.goqu.From(tableStaff).
		Select("id", "employee_code", "role", "department_id", "active").
		Where(where).
		ToSQL()
	if err != nil {
		return staff.Staff{}, fmt.Errorf("build select: %w", err)
	}

	var s staff.Staff
	var role string
	row := r.db.sql.QueryRowContext(ctx, query)
	if err := row.Scan(&s.ID, &s.EmployeeCode, &role, &s.DepartmentID, &s.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return staff.Staff{}, domain.ErrNotFound
		}
		return staff.Staff{}, fmt.Errorf("scan staff: %w", err)
	}
	s.Role = staff.Role(role)
	return s, nil
}

func (r *StaffRepository) Update(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	query, _, err := r.db.goqu.Update(tableStaff).Set(goqu.Record{
		"role":          string(s.Role),
		"department_id": s.DepartmentID,
		"active":        s.Active,
	}).Where(goqu.I("id").Eq(s.ID)).ToSQL()
	if err != nil {
		return staff.Staff{}, fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.sql.ExecContext(ctx, query)
	if err != nil {
		return staff.Staff{}, fmt.Errorf("update staff: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return staff.Staff{}, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return staff.Staff{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *StaffRepository) List(ctx context.Context, departmentID string, page domain.Page) ([]staff.Staff, error) {
	sel := r.db.goqu.From(tableStaff).
		Select("id", "employee_code", "role", "department_id", "active").
		Order(goqu.I("id").Asc())
	if departmentID != "" {
		sel = sel.Where(goqu.I("department_id").Eq(departmentID))
	}
	sel = applyPage(sel, page)

	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []staff.Staff
	for rows.Next() {
		var s staff.Staff
		var role string
		if err := rows.Scan(&s.ID, &s.EmployeeCode, &role, &s.DepartmentID, &s.Active); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		s.Role = staff.Role(role)
		out = append(out, s)
	}
	return out, rows.Err()
}
