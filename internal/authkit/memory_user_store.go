package authkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserStore is an in-memory store intended for tests and dev.
type MemoryUserStore struct {
	mutex   sync.Mutex
	byID    map[string]*User
	byEmail map[string]string
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

// FindByEmail returns the user registered with email.
func (store *MemoryUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	userID, ok := store.byEmail[email]
	if !ok {
		return User{}, fmt.Errorf("user_store.find_by_email.memory: %w", ErrUserNotFound)
	}
	return store.lookupLocked(userID)
}

// FindByID returns the user with userID.
func (store *MemoryUserStore) FindByID(ctx context.Context, userID string) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	return store.lookupLocked(userID)
}

// Create inserts a user, rejecting duplicate emails.
func (store *MemoryUserStore) Create(ctx context.Context, email string, name string, passwordHash string) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if _, exists := store.byEmail[email]; exists {
		return User{}, fmt.Errorf("user_store.create.memory: %w", ErrDuplicateEmail)
	}
	record := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	store.byID[record.ID] = record
	store.byEmail[email] = record.ID
	return *record, nil
}

// SetRefreshToken overwrites the stored refresh token digest.
func (store *MemoryUserStore) SetRefreshToken(ctx context.Context, userID string, digest string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record := store.byID[userID]
	if record == nil {
		return fmt.Errorf("user_store.set_refresh.memory: %w", ErrUserNotFound)
	}
	record.RefreshTokenDigest = digest
	return nil
}

// RefreshTokenMatches compares candidateDigest with the stored digest.
func (store *MemoryUserStore) RefreshTokenMatches(ctx context.Context, userID string, candidateDigest string) (bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record := store.byID[userID]
	if record == nil {
		return false, nil
	}
	return DigestsEqual(record.RefreshTokenDigest, candidateDigest), nil
}

// RotateRefreshToken swaps expectedDigest for nextDigest under the store lock.
func (store *MemoryUserStore) RotateRefreshToken(ctx context.Context, userID string, expectedDigest string, nextDigest string) (bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record := store.byID[userID]
	if record == nil {
		return false, nil
	}
	if !DigestsEqual(record.RefreshTokenDigest, expectedDigest) {
		return false, nil
	}
	record.RefreshTokenDigest = nextDigest
	return true, nil
}

func (store *MemoryUserStore) lookupLocked(userID string) (User, error) {
	record := store.byID[userID]
	if record == nil {
		return User{}, fmt.Errorf("user_store.find.memory: %w", ErrUserNotFound)
	}
	return *record, nil
}
