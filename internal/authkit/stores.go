package authkit

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound indicates no user matched the lookup.
	ErrUserNotFound = errors.New("user_store.not_found")
	// ErrDuplicateEmail indicates a user with the same email already exists.
	ErrDuplicateEmail = errors.New("user_store.duplicate_email")
)

// User is a persisted account. RefreshTokenDigest is empty when no session is live.
type User struct {
	ID                 string
	Email              string
	Name               string
	PasswordHash       string
	RefreshTokenDigest string
	CreatedAt          time.Time
}

// UserStore persists users and the digest of their current refresh token.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, userID string) (User, error)
	Create(ctx context.Context, email string, name string, passwordHash string) (User, error)
	// SetRefreshToken overwrites the stored digest; an empty digest clears it.
	SetRefreshToken(ctx context.Context, userID string, digest string) error
	// RefreshTokenMatches reports whether candidateDigest equals the stored digest.
	// A user with no stored digest never matches.
	RefreshTokenMatches(ctx context.Context, userID string, candidateDigest string) (bool, error)
	// RotateRefreshToken replaces expectedDigest with nextDigest atomically and
	// reports false when the stored digest no longer equals expectedDigest.
	RotateRefreshToken(ctx context.Context, userID string, expectedDigest string, nextDigest string) (bool, error)
}
