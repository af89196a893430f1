package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"demoapi/internal/model"
	"demoapi/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

// List returns all users ordered by id.
func (r *UserPostgres) List(ctx context.Context) ([]model.User, error) {
	const q = `SELECT id, name, email, role FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// FindByID fetches a single user by id.
func (r *UserPostgres) FindByID(ctx context.Context, id int) (*model.User, error) {
	const q = `SELECT id, name, email, role FROM users WHERE id = $1`
	var u model.User
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts u with id = row count + 1. The table lock serializes concurrent writers.
func (r *UserPostgres) Create(ctx context.Context, u model.User) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}

	const q = `
		INSERT INTO users (id, name, email, role)
		SELECT COUNT(*) + 1, $1, $2, $3 FROM users
		RETURNING id, name, email, role
	`
	var out model.User
	if err := tx.QueryRowContext(ctx, q, u.Name, u.Email, u.Role).Scan(&out.ID, &out.Name, &out.Email, &out.Role); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &out, nil
}
