package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"expense-manager/internal/models"
)

// CreateUser creates a new user with the given username and password hash.
// A taken username yields ErrDuplicateUsername and inserts nothing.
func (s store) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	var id int64
	err := s.q.QueryRowContext(ctx,
		s.rebind("INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id"),
		username, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.q.QueryRowContext(ctx,
		s.rebind("SELECT id, username, password_hash, created_at FROM users WHERE id = ?"),
		id,
	)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username. The match is case-sensitive.
func (s store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.q.QueryRowContext(ctx,
		s.rebind("SELECT id, username, password_hash, created_at FROM users WHERE username = ?"),
		username,
	)
	return scanUser(row)
}

// UserCount returns the number of users in the database.
func (s store) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
