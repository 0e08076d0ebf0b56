package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"seatlane/internal/model"
)

// UserRepo provides access to the users table. Emails are stored
// lowercase and unique.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user with an already-hashed password and returns
// its id. A duplicate email maps to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, role string) (uint64, error) {
	const q = `INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, strings.ToLower(strings.TrimSpace(email)), passwordHash, role)
	if err != nil {
		// 1062 is MySQL's duplicate-key error.
		if strings.Contains(err.Error(), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ByEmail looks a user up by email. Missing users come back as a nil
// pointer with a nil error so login can count the failure without
// branching on sql.ErrNoRows.
func (r *UserRepo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
