package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"expense-manager/internal/models"
)

// CreateSession stores a new session row.
func (s store) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.q.ExecContext(ctx,
		s.rebind("INSERT INTO sessions (id, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)"),
		sess.ID, sess.UserID, sess.ExpiresAt.UTC(), sess.LastActivity.UTC(),
	)
	return err
}

// GetSession retrieves a session by ID. Expiry is not checked here.
func (s store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.q.QueryRowContext(ctx,
		s.rebind("SELECT id, user_id, expires_at, last_activity FROM sessions WHERE id = ?"),
		id,
	)

	var sess models.Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.LastActivity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (s store) RenewSession(ctx context.Context, id string, newExpiresAt time.Time) error {
	_, err := s.q.ExecContext(ctx,
		s.rebind("UPDATE sessions SET last_activity = ?, expires_at = ? WHERE id = ?"),
		time.Now().UTC(), newExpiresAt.UTC(), id,
	)
	return err
}

// DeleteSession removes a session by ID.
func (s store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE id = ?"), id)
	return err
}

// CleanExpiredSessions removes all sessions expired at now and returns how many.
func (s store) CleanExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE expires_at <= ?"), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
