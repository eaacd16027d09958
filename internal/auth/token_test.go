package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(testKey, "test")
	require.NoError(t, err)
	return s
}

func TestNewSignerRejectsShortKey(t *testing.T) {
	_, err := NewSigner([]byte("short"), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestIssueAndParse(t *testing.T) {
	s := newTestSigner(t)
	expiresAt := time.Now().Add(time.Hour)

	token, err := s.Issue("sess-1", 42, expiresAt)
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, int64(42), claims.UserID)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
	assert.False(t, claims.IssuedAt.IsZero())
}

func TestParseRejectsBadTokens(t *testing.T) {
	s := newTestSigner(t)
	valid, err := s.Issue("sess-1", 1, time.Now().Add(time.Hour))
	require.NoError(t, err)

	other, err := NewSigner([]byte("fedcba9876543210fedcba9876543210"), "test")
	require.NoError(t, err)
	foreign, err := other.Issue("sess-1", 1, time.Now().Add(time.Hour))
	require.NoError(t, err)

	otherIssuer, err := NewSigner(testKey, "someone-else")
	require.NoError(t, err)
	wrongIssuer, err := otherIssuer.Issue("sess-1", 1, time.Now().Add(time.Hour))
	require.NoError(t, err)

	expired, err := s.Issue("sess-1", 1, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		ID:        "sess-1",
		Subject:   "1",
		Issuer:    "test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		ID:        "sess-1",
		Subject:   "1",
		Issuer:    "test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testKey)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID: "sess-1", Subject: "1", Issuer: "test",
	}).SignedString(testKey)
	require.NoError(t, err)

	noSession, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "1", Issuer: "test", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testKey)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered payload", tampered},
		{"signed with another key", foreign},
		{"wrong issuer", wrongIssuer},
		{"expired", expired},
		{"alg none", none},
		{"other hmac algorithm", hs512},
		{"missing expiry", noExpiry},
		{"missing session id", noSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestParseExpiredUsesClock(t *testing.T) {
	s := newTestSigner(t)
	token, err := s.Issue("sess-1", 1, time.Now().Add(time.Hour))
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
