package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/department"
)

var tableDepartments = goqu.T("departments")

// DepartmentRepository is a pgx/goqu-backed department.Repository.
type DepartmentRepository struct {
	db *DB
}

var _ department.Repository = (*DepartmentRepository)(nil)

func NewDepartmentRepository(db *DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(ctx context.Context, d department.Department) (department.Department, error) {
	query, _, err := r.db.goqu.Insert(tableDepartments).Rows(goqu.Record{
		"id":   d.ID,
		"name": d.Name,
		"code": d.Code,
	}).ToSQL()
	if err != nil {
		return department.Department{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		if isUniqueViolation(err) {
			return department.Department{}, domain.ErrConflict
		}
		return department.Department{}, fmt.Errorf("create department: %w", err)
	}
	return d, nil
}

func (r *DepartmentRepository) Get(ctx context.Context, id string) (department.Department, error) {
	query, _, err := r.db.goqu.From(tableDepartments).
		Select("id", "name", "code").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return department.Department{}, fmt.Errorf("build select: %w", err)
	}

	var d department.Department
	row := r.db.sql.QueryRowContext(ctx, query)
	if err := row.Scan(&d.ID, &d.Name, &d.Code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return department.Department{}, domain.ErrNotFound
		}
		return department.Department{}, fmt.Errorf("scan department: %w", err)
	}
	return d, nil
}

func (r *DepartmentRepository) List(ctx context.Context) ([]department.Department, error) {
	query, _, err := r.db.goqu.From(tableDepartments).
		Select("id", "name", "code").
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []department.Department
	for rows.Next() {
		var d department.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Code); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
