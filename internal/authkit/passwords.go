package authkit

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultPasswordCost matches the cost used for stored account passwords.
	DefaultPasswordCost = 12
	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72
)

// ErrPasswordTooLong reports a password bcrypt would refuse to hash.
var ErrPasswordTooLong = errors.New("password.too_long")

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

// NewPasswordHasher builds a bcrypt hasher. A cost outside bcrypt's range falls back to DefaultPasswordCost.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("moviecatalog-timing-equalizer"), cost)
	if err != nil {
		return nil, fmt.Errorf("password.new: %w", err)
	}
	return &PasswordHasher{cost: cost, dummyHash: dummyHash}, nil
}

// Hash returns a salted bcrypt hash of password.
func (hasher *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("password.hash: %w", ErrPasswordTooLong)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("password.hash: %w", err)
	}
	return string(hashed), nil
}

// Matches reports whether password corresponds to hash.
func (hasher *PasswordHasher) Matches(hash string, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("password.compare: %w", err)
}

// SimulateMatch spends the same work as Matches for lookups that found no user.
func (hasher *PasswordHasher) SimulateMatch(password string) {
	_ = bcrypt.CompareHashAndPassword(hasher.dummyHash, []byte(password))
}
