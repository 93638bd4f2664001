package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultDatabaseName is used when no database name is configured.
	DefaultDatabaseName = "sample_mflix"

	usersCollection    = "users"
	moviesCollection   = "movies"
	commentsCollection = "comments"
	driverLabel        = "mongodb"
	connectTimeout     = 10 * time.Second
)

var errEmptyURI = errors.New("mongo_store.empty_uri")

// Store owns the MongoDB client shared by the user, movie, and comment stores.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// Open connects to uri, verifies the connection, and ensures the unique email index.
func Open(ctx context.Context, uri string, databaseName string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongo_store.open: %w", errEmptyURI)
	}
	if strings.TrimSpace(databaseName) == "" {
		databaseName = DefaultDatabaseName
	}
	clientOptions := options.Client().ApplyURI(uri).SetConnectTimeout(connectTimeout)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo_store.connect: %w", err)
	}
	pingContext, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if pingErr := client.Ping(pingContext, nil); pingErr != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo_store.ping: %w", pingErr)
	}
	database := client.Database(databaseName)
	_, indexErr := database.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	if indexErr != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo_store.index.users: %w", indexErr)
	}
	_, indexErr = database.Collection(commentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "movie_id", Value: 1}, {Key: "date", Value: 1}},
	})
	if indexErr != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo_store.index.comments: %w", indexErr)
	}
	return &Store{client: client, database: database}, nil
}

// Driver reports the backend label.
func (store *Store) Driver() string {
	return driverLabel
}

// Users returns the credential store view.
func (store *Store) Users() *UserStore {
	return &UserStore{collection: store.database.Collection(usersCollection)}
}

// Movies returns the movie store view.
func (store *Store) Movies() *MovieStore {
	return &MovieStore{
		movies:   store.database.Collection(moviesCollection),
		comments: store.database.Collection(commentsCollection),
	}
}

// Comments returns the comment store view.
func (store *Store) Comments() *CommentStore {
	return &CommentStore{collection: store.database.Collection(commentsCollection)}
}

// Close disconnects the client.
func (store *Store) Close(ctx context.Context) error {
	if err := store.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo_store.close: %w", err)
	}
	return nil
}
