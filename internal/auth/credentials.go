package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expense-manager/internal/models"
	"expense-manager/internal/storage"
)

// ErrInvalidCredentials is returned for any failed login. It never says
// whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Credentials registers accounts and checks passwords against them.
type Credentials struct {
	users UserStore
}

// NewCredentials creates a Credentials backed by users.
func NewCredentials(users UserStore) *Credentials {
	return &Credentials{users: users}
}

// Register hashes password and creates the account. A taken username fails
// with storage.ErrDuplicateUsername.
func (c *Credentials) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.Invalid("username", "is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, models.Invalid("password", "is required")
	}
	if len(password) > MaxPasswordLength {
		return nil, models.Invalid("password", fmt.Sprintf("must be at most %d bytes", MaxPasswordLength))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := c.users.CreateUser(ctx, username, hash)
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", username, err)
	}
	return user, nil
}

// FindByUsername looks up an account; storage.ErrNotFound if absent.
func (c *Credentials) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.users.GetUserByUsername(ctx, username)
}

// Authenticate returns the user when password matches, ErrInvalidCredentials
// otherwise.
func (c *Credentials) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := c.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		burnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if len(password) > MaxPasswordLength {
		burnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
