// Package expenses implements the ownership-scoped expense operations. Every
// call names the acting user, and only rows owned by that user are read or
// changed.
package expenses

import (
	"context"
	"errors"
	"fmt"

	"expense-manager/internal/models"
	"expense-manager/internal/storage"
)

// ErrNotFoundOrForbidden is returned when an expense does not exist or is
// owned by someone else. The two cases are not distinguished.
var ErrNotFoundOrForbidden = errors.New("expense not found or not owned by user")

// Store is the persistence the service needs.
type Store interface {
	CreateExpense(ctx context.Context, ownerID int64, description string, amount float64, category string) (int64, error)
	ListExpensesByOwner(ctx context.Context, ownerID int64) ([]models.Expense, error)
	GetExpenseByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.Expense, error)
	InTx(ctx context.Context, fn func(tx *storage.Tx) error) error
}

// Service runs expense operations on behalf of an authenticated user.
type Service struct {
	store Store
}

// NewService creates a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// AddExpense records a new expense for ownerID and returns it.
func (s *Service) AddExpense(ctx context.Context, ownerID int64, in Input) (*models.Expense, error) {
	id, err := s.store.CreateExpense(ctx, ownerID, in.Description, in.Amount, in.Category)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return &models.Expense{
		ID:          id,
		OwnerID:     ownerID,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
	}, nil
}

// ListExpenses returns every expense of ownerID, oldest first.
func (s *Service) ListExpenses(ctx context.Context, ownerID int64) ([]models.Expense, error) {
	list, err := s.store.ListExpensesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

// GetExpense returns expense id if ownerID owns it.
func (s *Service) GetExpense(ctx context.Context, ownerID, id int64) (*models.Expense, error) {
	e, err := s.store.GetExpenseByIDAndOwner(ctx, id, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFoundOrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// EditExpense replaces description, amount and category of expense id.
// Nothing changes unless ownerID owns the expense.
func (s *Service) EditExpense(ctx context.Context, ownerID, id int64, in Input) (*models.Expense, error) {
	var updated *models.Expense
	err := s.store.InTx(ctx, func(tx *storage.Tx) error {
		e, err := tx.GetExpenseByIDAndOwner(ctx, id, ownerID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFoundOrForbidden
		}
		if err != nil {
			return err
		}

		e.Description = in.Description
		e.Amount = in.Amount
		e.Category = in.Category
		if err := tx.UpdateExpense(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFoundOrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("edit expense %d: %w", id, err)
	}
	return updated, nil
}

// DeleteExpense removes expense id. Nothing changes unless ownerID owns it.
func (s *Service) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	err := s.store.InTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.GetExpenseByIDAndOwner(ctx, id, ownerID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNotFoundOrForbidden
			}
			return err
		}
		return tx.DeleteExpense(ctx, id, ownerID)
	})
	if err != nil {
		if errors.Is(err, ErrNotFoundOrForbidden) {
			return err
		}
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

// Total sums the amounts of list.
func Total(list []models.Expense) float64 {
	var sum float64
	for _, e := range list {
		sum += e.Amount
	}
	return sum
}
