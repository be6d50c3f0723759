package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor the user table was seeded with.
const bcryptCost = 10

// ErrEmptyPassword is returned when a password to hash is empty or blank.
var ErrEmptyPassword = errors.New("password must not be empty")

// PasswordHasher hashes and verifies user passwords with bcrypt.
type PasswordHasher struct{}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{}
}

// Hash returns the bcrypt hash of plaintext. Whitespace-only input is
// rejected with ErrEmptyPassword.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if strings.TrimSpace(plaintext) == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. A mismatch is
// not an error, it is a false result.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
