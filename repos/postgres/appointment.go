package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/appointment"
)

var tableAppointments = goqu.T("appointments")

// AppointmentRepository is a pgx/goqu-backed appointment.Repository.
type AppointmentRepository struct {
	db *DB
}

var _ appointment.Repository = (*AppointmentRepository)(nil)

func NewAppointmentRepository(db *DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create rejects a scheduling conflict (an overlapping StatusScheduled
// appointment for the same DoctorID) with domain.ErrConflict, checked and
// inserted within one transaction to close the race between the check and
// the insert.
func (r *AppointmentRepository) Create(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	tx, err := r.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return appointment.Appointment{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	end := a.StartAt.Add(a.Duration)
	overlapQuery, _, err := r.db.goqu.From(tableAppointments).
		Select("id").
		Where(
			goqu.I("doctor_id").Eq(a.DoctorID),
			goqu.I("status").Eq(string(appointment.StatusScheduled)),
			goqu.I("start_at").Lt(end),
			goqu.L("start_at + (duration_seconds * interval '1 second')").Gt(a.StartAt),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return appointment.Appointment{}, fmt.Errorf("build overlap check: %w", err)
	}

	var existingID string
	err = tx.QueryRowContext(ctx, overlapQuery).Scan(&existingID)
	switch {
	case err == nil:
		return appointment.Appointment{}, domain.ErrConflict
	case errors.Is(err, sql.ErrNoRows):
		// no conflict
	default:
		return appointment.Appointment{}, fmt.Errorf("check doctor overlap: %w", err)
	}

	insertQuery, _, err := r.db.goqu.Insert(tableAppointments).Rows(goqu.Record{
		"id":               a.ID,
		"patient_id":       a.PatientID,
		"doctor_id":        a.DoctorID,
		"start_at":         a.StartAt,
		"duration_seconds": int64(a.Duration / time.Second),
		"status":           string(a.Status),
	}).ToSQL()
	if err != nil {
		return appointment.Appointment{}, fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertQuery); err != nil {
		return appointment.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return appointment.Appointment{}, fmt.Errorf("commit transaction: %w", err)
	}
	return a, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (appointment.Appointment, error) {
	query, _, err := r.db.goqu.From(tableAppointments).
		Select("id", "patient_id", "doctor_id", "start_at", "duration_seconds", "status").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return appointment.Appointment{}, fmt.Errorf("build select: %w", err)
	}

	return scanAppointmentRow(r.db.sql.QueryRowContext(ctx, query))
}

func scanAppointmentRow(row *sql.Row) (appointment.Appointment, error) {
	var a appointment.Appointment
	var status string
	var durationSeconds int64
	if err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartAt, &durationSeconds, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appointment.Appointment{}, domain.ErrNotFound
		}
		return appointment.Appointment{}, fmt.Errorf("scan appointment: %w", err)
	}
	a.Duration = time.Duration(durationSeconds) * time.Second
	a.Status = appointment.Status(status)
	return a, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	query, _, err := r.db.goqu.Update(tableAppointments).Set(goqu.Record{
		"start_at":         a.StartAt,
		"duration_seconds": int64(a.Duration / time.Second),
		"status":           string(a.Status),
	}).Where(goqu.I("id").Eq(a.ID)).ToSQL()
	if err != nil {
		return appointment.Appointment{}, fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.sql.ExecContext(ctx, query)
	if err != nil {
		return appointment.Appointment{}, fmt.Errorf("update appointment: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return appointment.Appointment{}, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return appointment.Appointment{}, domain.ErrNotFound
	}
	return a, nil
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]appointment.Appointment, error) {
	sel := r.db.goqu.From(tableAppointments).
		Select("id", "patient_id", "doctor_id", "start_at", "duration_seconds", "status").
		Where(goqu.I("patient_id").Eq(patientID)).
		Order(goqu.I("start_at").Asc())
	sel = applyWindow(sel, "start_at", window)
	return r.queryAppointments(ctx, sel)
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID string, window domain.TimeWindow) ([]appointment.Appointment, error) {
	sel := r.db.goqu.From(tableAppointments).
		Select("id", "patient_id", "doctor_id", "start_at", "duration_seconds", "status").
		Where(goqu.I("doctor_id").Eq(doctorID)).
		Order(goqu.I("start_at").Asc())
	sel = applyWindow(sel, "start_at", window)
	return r.queryAppointments(ctx, sel)
}

func (r *AppointmentRepository) queryAppointments(ctx context.Context, sel *goqu.SelectDataset) ([]appointment.Appointment, error) {
	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []appointment.Appointment
	for rows.Next() {
		var a appointment.Appointment
		var status string
		var durationSeconds int64
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartAt, &durationSeconds, &status); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		a.Duration = time.Duration(durationSeconds) * time.Second
		a.Status = appointment.Status(status)
		out = append(out, a)
	}
	return out, rows.Err()
}
