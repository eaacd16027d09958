package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expense-manager/internal/models"
	"expense-manager/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnauthenticated means the request carries no valid session.
var ErrUnauthenticated = errors.New("unauthenticated")

// DefaultIssuer is the token issuer used when Config.Issuer is empty.
const DefaultIssuer = "expense-manager"

// Config is the immutable session configuration, built once at startup.
type Config struct {
	SigningKey      []byte
	SessionDuration time.Duration
	Issuer          string
}

// SessionStore persists login sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	RenewSession(ctx context.Context, id string, newExpiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	CleanExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// LoginResult is handed back on a successful login.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Identity is the authenticated caller of a request. When Renewed is set the
// session was extended and Token holds a replacement the client must store.
type Identity struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
	Renewed   bool
}

// Authenticator logs users in and out and resolves session tokens.
type Authenticator struct {
	creds    *Credentials
	sessions SessionStore
	signer   *Signer
	duration time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthenticator creates an Authenticator from cfg.
func NewAuthenticator(cfg Config, creds *Credentials, sessions SessionStore, logger *zap.Logger) (*Authenticator, error) {
	if cfg.SessionDuration <= 0 {
		return nil, fmt.Errorf("session duration must be positive, got %s", cfg.SessionDuration)
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	signer, err := NewSigner(cfg.SigningKey, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		creds:    creds,
		sessions: sessions,
		signer:   signer,
		duration: cfg.SessionDuration,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SessionDuration returns the configured session lifetime.
func (a *Authenticator) SessionDuration() time.Duration {
	return a.duration
}

// Login verifies the credentials and opens a new session.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := a.creds.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	now := a.now()
	if n, err := a.sessions.CleanExpiredSessions(ctx, now); err != nil {
		a.logger.Warn("Failed to clean expired sessions", zap.Error(err))
	} else if n > 0 {
		a.logger.Debug("Cleaned expired sessions", zap.Int64("count", n))
	}

	sess := &models.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		ExpiresAt:    now.Add(a.duration),
		LastActivity: now,
	}
	if err := a.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := a.signer.Issue(sess.ID, user.ID, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &LoginResult{User: user, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Logout revokes the session named by token. Unreadable tokens are ignored.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := a.signer.Parse(token)
	if err != nil {
		return nil
	}
	if err := a.sessions.DeleteSession(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Resolve maps a session token to its user. Any invalid, tampered, expired or
// revoked token yields ErrUnauthenticated.
//
// Sessions are rolling: once past half of their lifetime they are extended
// and a fresh token is returned.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := a.signer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	sess, err := a.sessions.GetSession(ctx, claims.SessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	now := a.now()
	if sess.UserID != claims.UserID || sess.Expired(now) {
		return nil, ErrUnauthenticated
	}

	user, err := a.creds.users.GetUserByID(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	id := &Identity{User: user, Token: token, ExpiresAt: sess.ExpiresAt}

	if sess.ExpiresAt.Sub(now) < a.duration/2 {
		if renewed, err := a.renew(ctx, sess, now); err != nil {
			// Keep serving on the current session.
			a.logger.Warn("Failed to renew session", zap.Int64("user_id", user.ID), zap.Error(err))
		} else {
			id.Token = renewed
			id.ExpiresAt = now.Add(a.duration)
			id.Renewed = true
		}
	}

	return id, nil
}

func (a *Authenticator) renew(ctx context.Context, sess *models.Session, now time.Time) (string, error) {
	newExpiresAt := now.Add(a.duration)
	token, err := a.signer.Issue(sess.ID, sess.UserID, newExpiresAt)
	if err != nil {
		return "", err
	}
	if err := a.sessions.RenewSession(ctx, sess.ID, newExpiresAt); err != nil {
		return "", err
	}
	return token, nil
}
