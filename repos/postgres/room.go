package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/room"
)

var tableRooms = goqu.T("rooms")

// RoomRepository is a pgx/goqu-backed room.Repository.
type RoomRepository struct {
	db *DB
}

var _ room.Repository = (*RoomRepository)(nil)

func NewRoomRepository(db *DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, rm room.Room) (room.Room, error) {
	query, _, err := r.db.goqu.Insert(tableRooms).Rows(goqu.Record{
		"id":            rm.ID,
		"room_number":   rm.RoomNumber,
		"department_id": rm.DepartmentID,
		"floor":         rm.Floor,
	}).ToSQL()
	if err != nil {
		return room.Room{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		if isUniqueViolation(err) {
			return room.Room{}, domain.ErrConflict
		}
		return room.Room{}, fmt.Errorf("create room: %w", err)
	}
	return rm, nil
}

func (r *RoomRepository) Get(ctx context.Context, id string) (room.Room, error) {
	query, _, err := r.db.goqu.From(tableRooms).
		Select("id", "room_number", "department_id", "floor").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return room.Room{}, fmt.Errorf("build select: %w", err)
	}

	var rm room.Room
	row := r.db.sql.QueryRowContext(ctx, query)
	if err := row.Scan(&rm.ID, &rm.RoomNumber, &rm.DepartmentID, &rm.Floor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return room.Room{}, domain.ErrNotFound
		}
		return room.Room{}, fmt.Errorf("scan room: %w", err)
	}
	return rm, nil
}

func (r *RoomRepository) ListByDepartment(ctx context.Context, departmentID string) ([]room.Room, error) {
	query, _, err := r.db.goqu.From(tableRooms).
		Select("id", "room_number", "department_id", "floor").
		Where(goqu.I("department_id").Eq(departmentID)).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []room.Room
	for rows.Next() {
		var rm room.Room
		if err := rows.Scan(&rm.ID, &rm.RoomNumber, &rm.DepartmentID, &rm.Floor); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}
