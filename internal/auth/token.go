package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the shortest accepted HMAC signing key, in bytes.
const MinKeyLength = 32

// Claims is the decoded content of a session token.
type Claims struct {
	SessionID string
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewSigner creates a Signer. The key is copied.
func NewSigner(key []byte, issuer string) (*Signer, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinKeyLength, len(key))
	}
	return &Signer{
		key:    append([]byte(nil), key...),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// Issue signs a token naming sessionID and userID, valid until expiresAt.
func (s *Signer) Issue(sessionID string, userID int64, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse verifies signature, algorithm, issuer and expiry of token.
func (s *Signer) Parse(token string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &rc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}

	if rc.ID == "" {
		return nil, errors.New("token has no session id")
	}
	userID, err := strconv.ParseInt(rc.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}

	c := &Claims{SessionID: rc.ID, UserID: userID, ExpiresAt: rc.ExpiresAt.Time}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	return c, nil
}
