package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/patient"
)

var tablePatients = goqu.T("patients")

// PatientRepository is a pgx/goqu-backed patient.Repository.
type PatientRepository struct {
	db *DB
}

var _ patient.Repository = (*PatientRepository)(nil)

func NewPatientRepository(db *DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Create(ctx context.Context, p patient.Patient) (patient.Patient, error) {
	query, _, err := r.db.goqu.Insert(tablePatients).Rows(goqu.Record{
		"id":            p.ID,
		"patient_code":  p.PatientCode,
		"name":          p.Name,
		"date_of_birth": p.DateOfBirth,
		"status":        string(p.Status),
		"created_at":    p.CreatedAt,
	}).ToSQL()
	if err != nil {
		return patient.Patient{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		if isUniqueViolation(err) {
			return patient.Patient{}, domain.ErrConflict
		}
		return patient.Patient{}, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}

func (r *PatientRepository) Get(ctx context.Context, id string) (patient.Patient, error) {
	return r.scanOne(ctx, goqu.I("id").Eq(id))
}

func (r *PatientRepository) FindByCode(ctx context.Context, patientCode string) (patient.Patient, error) {
	return r.scanOne(ctx, goqu.I("patient_code").Eq(patientCode))
}

func (r *PatientRepository) scanOne(ctx context.Context, where goqu.Expression) (patient.Patient, error) {
	query, _, err := r.db.goqu.From(tablePatients).
		Select("id", "patient_code", "name", "date_of_birth", "status", "created_at").
		Where(where).
		ToSQL()
	if err != nil {
		return patient.Patient{}, fmt.Errorf("build select: %w", err)
	}

	var p patient.Patient
	var status string
	row := r.db.sql.QueryRowContext(ctx, query)
	if err := row.Scan(&p.ID, &p.PatientCode, &p.Name, &p.DateOfBirth, &status, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return patient.Patient{}, domain.ErrNotFound
		}
		return patient.Patient{}, fmt.Errorf("scan patient: %w", err)
	}
	p.Status = patient.Status(status)
	return p, nil
}

func (r *PatientRepository) Update(ctx context.Context, p patient.Patient) (patient.Patient, error) {
	query, _, err := r.db.goqu.Update(tablePatients).Set(goqu.Record{
		"name":          p.Name,
		"date_of_birth": p.DateOfBirth,
		"status":        string(p.Status),
	}).Where(goqu.I("id").Eq(p.ID)).ToSQL()
	if err != nil {
		return patient.Patient{}, fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.sql.ExecContext(ctx, query)
	if err != nil {
		return patient.Patient{}, fmt.Errorf("update patient: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return patient.Patient{}, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return patient.Patient{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *PatientRepository) List(ctx context.Context, status patient.Status, page domain.Page) ([]patient.Patient, error) {
	sel := r.db.goqu.From(tablePatients).
		Select("id", "patient_code", "name", "date_of_birth", "status", "created_at").
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
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []patient.Patient
	for rows.Next() {
		var p patient.Patient
		var st string
		if err := rows.Scan(&p.ID, &p.PatientCode, &p.Name, &p.DateOfBirth, &st, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		p.Status = patient.Status(st)
		out = append(out, p)
	}
	return out, rows.Err()
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), the signal a Create call translates into
// domain.ErrConflict.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
