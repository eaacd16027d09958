// Package auth implements credential checks and signed, revocable login
// sessions.
//
// Passwords are stored as bcrypt digests. A successful login creates a
// session row and hands the client an HS256 token naming that row; the
// token proves integrity, the row makes logout effective.
package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the longest password bcrypt accepts, in bytes.
const MaxPasswordLength = 72

// HashPassword returns a salted bcrypt digest of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
// The comparison runs in constant time. Passwords longer than
// MaxPasswordLength never match, as bcrypt would ignore the excess bytes.
func CheckPassword(password, hash string) bool {
	if len(password) > MaxPasswordLength {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// dummyHash is compared against when the username does not exist, so a
// missing account costs as much time as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("expense-manager/dummy"), bcrypt.DefaultCost)
	if err != nil {
		panic(errors.Join(errors.New("auth: generate dummy hash"), err))
	}
	return h
})

// burnPasswordCheck spends one full bcrypt comparison. bcrypt rejects
// overlong input before hashing, so the password is cut to the limit.
func burnPasswordCheck(password string) {
	if len(password) > MaxPasswordLength {
		password = password[:MaxPasswordLength]
	}
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
}
