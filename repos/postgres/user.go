package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/user"
)

var tableUsers = goqu.T("users")

// UserRepository is a pgx/goqu-backed user.Repository.
type UserRepository struct {
	db *DB
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	query, _, err := r.db.goqu.Insert(tableUsers).Rows(goqu.Record{
		"id":           u.ID,
		"username":     u.Username,
		"display_name": u.DisplayName,
		"role":         u.Role,
		"active":       u.Active,
		"created_at":   u.CreatedAt,
	}).ToSQL()
	if err != nil {
		return user.User{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.sql.ExecContext(ctx, query); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, domain.ErrConflict
		}
		return user.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (user.User, error) {
	return r.scanOne(ctx, goqu.I("id").Eq(id))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (user.User, error) {
	return r.scanOne(ctx, goqu.I("username").Eq(username))
}

func (r *UserRepository) Update(ctx context.Context, u user.User) (user.User, error) {
	query, _, err := r.db.goqu.Update(tableUsers).Set(goqu.Record{
		"display_name": u.DisplayName,
		"role":         u.Role,
		"active":       u.Active,
	}).Where(goqu.I("id").Eq(u.ID)).ToSQL()
	if err != nil {
		return user.User{}, fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.sql.ExecContext(ctx, query)
	if err != nil {
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return user.User{}, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return user.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, page domain.Page) ([]user.User, error) {
	sel := applyPage(r.db.goqu.From(tableUsers).
		Select("id", "username", "display_name", "role", "active", "created_at").
		Order(goqu.I("id").Asc()), page)

	query, _, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) scanOne(ctx context.Context, where goqu.Expression) (user.User, error) {
	query, _, err := r.db.goqu.From(tableUsers).
		Select("id", "username", "display_name", "role", "active", "created_at").
		Where(where).
		ToSQL()
	if err != nil {
		return user.User{}, fmt.Errorf("build select: %w", err)
	}

	var u user.User
	row := r.db.sql.QueryRowContext(ctx, query)
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, domain.ErrNotFound
		}
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
