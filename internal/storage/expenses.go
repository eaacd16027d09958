package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"expense-manager/internal/models"
)

// CreateExpense inserts a new expense owned by ownerID and returns its ID.
func (s store) CreateExpense(ctx context.Context, ownerID int64, description string, amount float64, category string) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx,
		s.rebind("INSERT INTO expenses (user_id, description, amount, category) VALUES (?, ?, ?, ?) RETURNING id"),
		ownerID, description, amount, category,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	return id, nil
}

// ListExpensesByOwner retrieves every expense owned by ownerID in insertion order.
func (s store) ListExpensesByOwner(ctx context.Context, ownerID int64) ([]models.Expense, error) {
	rows, err := s.q.QueryContext(ctx,
		s.rebind("SELECT id, user_id, description, amount, category FROM expenses WHERE user_id = ? ORDER BY id"),
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Description, &e.Amount, &e.Category); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

// GetExpenseByIDAndOwner retrieves a single expense only if ownerID owns it.
// Expenses of other users are reported as ErrNotFound, never as forbidden.
func (s store) GetExpenseByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.Expense, error) {
	row := s.q.QueryRowContext(ctx,
		s.rebind("SELECT id, user_id, description, amount, category FROM expenses WHERE id = ? AND user_id = ?"),
		id, ownerID,
	)

	var e models.Expense
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Description, &e.Amount, &e.Category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// UpdateExpense overwrites description, amount and category of e.ID. Owner and
// ID never change; a row that does not exist for e.OwnerID is left untouched.
func (s store) UpdateExpense(ctx context.Context, e *models.Expense) error {
	_, err := s.q.ExecContext(ctx,
		s.rebind("UPDATE expenses SET description = ?, amount = ?, category = ? WHERE id = ? AND user_id = ?"),
		e.Description, e.Amount, e.Category, e.ID, e.OwnerID,
	)
	return err
}

// DeleteExpense removes expense id if ownerID owns it. Missing rows are a no-op.
func (s store) DeleteExpense(ctx context.Context, id, ownerID int64) error {
	_, err := s.q.ExecContext(ctx,
		s.rebind("DELETE FROM expenses WHERE id = ? AND user_id = ?"),
		id, ownerID,
	)
	return err
}
