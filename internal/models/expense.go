package models

import "time"

// Expense represents a financial expense record owned by a single user.
type Expense struct {
	ID          int64   `json:"id"`
	OwnerID     int64   `json:"owner_id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session represents a server-side login session. The ID travels inside the
// signed session token; the row is what makes a token revocable.
type Session struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Expired reports whether the session is no longer valid at t.
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
