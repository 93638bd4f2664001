package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tyemirov/moviecatalog/internal/authkit"
	"gorm.io/gorm"
)

type userRecord struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Email              string    `gorm:"column:email;uniqueIndex;not null"`
	Name               string    `gorm:"column:name;not null"`
	PasswordHash       string    `gorm:"column:password_hash;not null"`
	RefreshTokenDigest string    `gorm:"column:refresh_token_digest;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;not null"`
}

func (userRecord) TableName() string {
	return "users"
}

func (record userRecord) toUser() authkit.User {
	return authkit.User{
		ID:                 record.ID,
		Email:              record.Email,
		Name:               record.Name,
		PasswordHash:       record.PasswordHash,
		RefreshTokenDigest: record.RefreshTokenDigest,
		CreatedAt:          record.CreatedAt,
	}
}

// UserStore implements authkit.UserStore on GORM.
type UserStore struct {
	db          *gorm.DB
	driverLabel string
}

// FindByEmail returns the user registered with email. The comparison is case-sensitive.
func (store *UserStore) FindByEmail(ctx context.Context, email string) (authkit.User, error) {
	var record userRecord
	err := store.db.WithContext(ctx).Where("email = ?", email).Take(&record).Error
	if err != nil {
		return authkit.User{}, store.lookupError("find_by_email", err)
	}
	return record.toUser(), nil
}

// FindByID returns the user with userID.
func (store *UserStore) FindByID(ctx context.Context, userID string) (authkit.User, error) {
	if _, parseErr := uuid.Parse(userID); parseErr != nil {
		return authkit.User{}, fmt.Errorf("user_store.find_by_id.%s: %w", store.driverLabel, authkit.ErrUserNotFound)
	}
	var record userRecord
	err := store.db.WithContext(ctx).Where("id = ?", userID).Take(&record).Error
	if err != nil {
		return authkit.User{}, store.lookupError("find_by_id", err)
	}
	return record.toUser(), nil
}

// Create inserts a user. Duplicate emails are rejected by the pre-check and by the unique index.
func (store *UserStore) Create(ctx context.Context, email string, name string, passwordHash string) (authkit.User, error) {
	var existing int64
	if countErr := store.db.WithContext(ctx).Model(&userRecord{}).Where("email = ?", email).Count(&existing).Error; countErr != nil {
		return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", store.driverLabel, countErr)
	}
	if existing > 0 {
		return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", store.driverLabel, authkit.ErrDuplicateEmail)
	}
	record := userRecord{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", store.driverLabel, authkit.ErrDuplicateEmail)
		}
		return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", store.driverLabel, err)
	}
	return record.toUser(), nil
}

// SetRefreshToken overwrites the stored refresh token digest.
func (store *UserStore) SetRefreshToken(ctx context.Context, userID string, digest string) error {
	result := store.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", userID).
		Update("refresh_token_digest", digest)
	if result.Error != nil {
		return fmt.Errorf("user_store.set_refresh.%s: %w", store.driverLabel, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user_store.set_refresh.%s: %w", store.driverLabel, authkit.ErrUserNotFound)
	}
	return nil
}

// RefreshTokenMatches compares candidateDigest with the stored digest.
func (store *UserStore) RefreshTokenMatches(ctx context.Context, userID string, candidateDigest string) (bool, error) {
	user, err := store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, authkit.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return authkit.DigestsEqual(user.RefreshTokenDigest, candidateDigest), nil
}

// RotateRefreshToken performs a conditional single-row update so only one concurrent
// refresh can consume a given token.
func (store *UserStore) RotateRefreshToken(ctx context.Context, userID string, expectedDigest string, nextDigest string) (bool, error) {
	if expectedDigest == "" {
		return false, nil
	}
	result := store.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ? AND refresh_token_digest = ?", userID, expectedDigest).
		Update("refresh_token_digest", nextDigest)
	if result.Error != nil {
		return false, fmt.Errorf("user_store.rotate_refresh.%s: %w", store.driverLabel, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (store *UserStore) lookupError(operation string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user_store.%s.%s: %w", operation, store.driverLabel, authkit.ErrUserNotFound)
	}
	return fmt.Errorf("user_store.%s.%s: %w", operation, store.driverLabel, err)
}
