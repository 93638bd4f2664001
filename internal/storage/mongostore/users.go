package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tyemirov/moviecatalog/internal/authkit"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserStore implements authkit.UserStore on the users collection.
type UserStore struct {
	collection *mongo.Collection
}

// FindByEmail returns the user registered with email.
func (store *UserStore) FindByEmail(ctx context.Context, email string) (authkit.User, error) {
	var document userDocument
	err := store.collection.FindOne(ctx, bson.M{"email": email}).Decode(&document)
	if err != nil {
		return authkit.User{}, lookupError("find_by_email", err)
	}
	return document.toUser(), nil
}

// FindByID returns the user with the hex object id userID.
func (store *UserStore) FindByID(ctx context.Context, userID string) (authkit.User, error) {
	objectID, parseErr := primitive.ObjectIDFromHex(userID)
	if parseErr != nil {
		return authkit.User{}, fmt.Errorf("user_store.find_by_id.%s: %w", driverLabel, authkit.ErrUserNotFound)
	}
	var document userDocument
	err := store.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&document)
	if err != nil {
		return authkit.User{}, lookupError("find_by_id", err)
	}
	return document.toUser(), nil
}

// Create inserts a user; the unique email index backs the duplicate check.
func (store *UserStore) Create(ctx context.Context, email string, name string, passwordHash string) (authkit.User, error) {
	count, countErr := store.collection.CountDocuments(ctx, bson.M{"email": email})
	if countErr != nil {
		return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", driverLabel, countErr)
	}
	if count > 0 {
		return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", driverLabel, authkit.ErrDuplicateEmail)
	}
	document := userDocument{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := store.collection.InsertOne(ctx, document); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", driverLabel, authkit.ErrDuplicateEmail)
		}
		return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", driverLabel, err)
	}
	return document.toUser(), nil
}

// SetRefreshToken overwrites the stored refresh token digest.
func (store *UserStore) SetRefreshToken(ctx context.Context, userID string, digest string) error {
	objectID, parseErr := primitive.ObjectIDFromHex(userID)
	if parseErr != nil {
		return fmt.Errorf("user_store.set_refresh.%s: %w", driverLabel, authkit.ErrUserNotFound)
	}
	result, err := store.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"refreshToken": digest}},
	)
	if err != nil {
		return fmt.Errorf("user_store.set_refresh.%s: %w", driverLabel, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user_store.set_refresh.%s: %w", driverLabel, authkit.ErrUserNotFound)
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

// RotateRefreshToken replaces expectedDigest with nextDigest in one conditional update.
func (store *UserStore) RotateRefreshToken(ctx context.Context, userID string, expectedDigest string, nextDigest string) (bool, error) {
	if expectedDigest == "" {
		return false, nil
	}
	objectID, parseErr := primitive.ObjectIDFromHex(userID)
	if parseErr != nil {
		return false, nil
	}
	result, err := store.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "refreshToken": expectedDigest},
		bson.M{"$set": bson.M{"refreshToken": nextDigest}},
	)
	if err != nil {
		return false, fmt.Errorf("user_store.rotate_refresh.%s: %w", driverLabel, err)
	}
	return result.MatchedCount == 1, nil
}

func lookupError(operation string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("user_store.%s.%s: %w", operation, driverLabel, authkit.ErrUserNotFound)
	}
	return fmt.Errorf("user_store.%s.%s: %w", operation, driverLabel, err)
}
