package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyemirov/moviecatalog/internal/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MovieStore implements catalog.MovieStore on the movies collection.
type MovieStore struct {
	movies   *mongo.Collection
	comments *mongo.Collection
}

// ListMovies returns up to limit movies in natural id order.
func (store *MovieStore) ListMovies(ctx context.Context, limit int) ([]catalog.Movie, error) {
	findOptions := options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := store.movies.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("movie_store.list.%s: %w", driverLabel, err)
	}
	var documents []movieDocument
	if decodeErr := cursor.All(ctx, &documents); decodeErr != nil {
		return nil, fmt.Errorf("movie_store.list.%s: %w", driverLabel, decodeErr)
	}
	movies := make([]catalog.Movie, 0, len(documents))
	for _, document := range documents {
		movies = append(movies, document.toMovie())
	}
	return movies, nil
}

// GetMovie returns the movie with movieID.
func (store *MovieStore) GetMovie(ctx context.Context, movieID string) (catalog.Movie, error) {
	identifiers, err := parseObjectIDs("movie_store.get", movieID)
	if err != nil {
		return catalog.Movie{}, err
	}
	var document movieDocument
	if findErr := store.movies.FindOne(ctx, bson.M{"_id": identifiers[0]}).Decode(&document); findErr != nil {
		return catalog.Movie{}, movieLookupError("get", findErr)
	}
	return document.toMovie(), nil
}

// CreateMovie inserts movie under a new object id.
func (store *MovieStore) CreateMovie(ctx context.Context, movie catalog.Movie) (catalog.Movie, error) {
	document := newMovieDocument(movie)
	document.ID = primitive.NewObjectID()
	if _, err := store.movies.InsertOne(ctx, document); err != nil {
		return catalog.Movie{}, fmt.Errorf("movie_store.create.%s: %w", driverLabel, err)
	}
	return document.toMovie(), nil
}

// UpdateMovie applies patch with $set and returns the updated document.
func (store *MovieStore) UpdateMovie(ctx context.Context, movieID string, patch catalog.MoviePatch) (catalog.Movie, error) {
	identifiers, err := parseObjectIDs("movie_store.update", movieID)
	if err != nil {
		return catalog.Movie{}, err
	}
	fields := moviePatchDocument(patch)
	if len(fields) == 0 {
		return store.GetMovie(ctx, movieID)
	}
	var document movieDocument
	updateErr := store.movies.FindOneAndUpdate(ctx,
		bson.M{"_id": identifiers[0]},
		bson.D{{Key: "$set", Value: fields}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&document)
	if updateErr != nil {
		return catalog.Movie{}, movieLookupError("update", updateErr)
	}
	return document.toMovie(), nil
}

// DeleteMovie removes the movie and then its comments.
func (store *MovieStore) DeleteMovie(ctx context.Context, movieID string) error {
	identifiers, err := parseObjectIDs("movie_store.delete", movieID)
	if err != nil {
		return err
	}
	result, deleteErr := store.movies.DeleteOne(ctx, bson.M{"_id": identifiers[0]})
	if deleteErr != nil {
		return fmt.Errorf("movie_store.delete.%s: %w", driverLabel, deleteErr)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("movie_store.delete.%s: %w", driverLabel, catalog.ErrMovieNotFound)
	}
	if _, cascadeErr := store.comments.DeleteMany(ctx, bson.M{"movie_id": identifiers[0]}); cascadeErr != nil {
		return fmt.Errorf("movie_store.delete.comments.%s: %w", driverLabel, cascadeErr)
	}
	return nil
}

// CommentStore implements catalog.CommentStore on the comments collection.
type CommentStore struct {
	collection *mongo.Collection
}

// ListComments returns the comments of movieID ordered by date.
func (store *CommentStore) ListComments(ctx context.Context, movieID string) ([]catalog.Comment, error) {
	identifiers, err := parseObjectIDs("comment_store.list", movieID)
	if err != nil {
		return nil, err
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, findErr := store.collection.Find(ctx, bson.M{"movie_id": identifiers[0]}, findOptions)
	if findErr != nil {
		return nil, fmt.Errorf("comment_store.list.%s: %w", driverLabel, findErr)
	}
	var documents []commentDocument
	if decodeErr := cursor.All(ctx, &documents); decodeErr != nil {
		return nil, fmt.Errorf("comment_store.list.%s: %w", driverLabel, decodeErr)
	}
	comments := make([]catalog.Comment, 0, len(documents))
	for _, document := range documents {
		comments = append(comments, document.toComment())
	}
	return comments, nil
}

// GetComment returns commentID if it belongs to movieID.
func (store *CommentStore) GetComment(ctx context.Context, movieID string, commentID string) (catalog.Comment, error) {
	identifiers, err := parseObjectIDs("comment_store.get", movieID, commentID)
	if err != nil {
		return catalog.Comment{}, err
	}
	var document commentDocument
	findErr := store.collection.FindOne(ctx, bson.M{"_id": identifiers[1], "movie_id": identifiers[0]}).Decode(&document)
	if findErr != nil {
		return catalog.Comment{}, commentLookupError("get", findErr)
	}
	return document.toComment(), nil
}

// CreateComment inserts comment under a new object id.
func (store *CommentStore) CreateComment(ctx context.Context, comment catalog.Comment) (catalog.Comment, error) {
	identifiers, err := parseObjectIDs("comment_store.create", comment.MovieID)
	if err != nil {
		return catalog.Comment{}, err
	}
	document := commentDocument{
		ID:      primitive.NewObjectID(),
		MovieID: identifiers[0],
		Name:    comment.Name,
		Email:   comment.Email,
		Text:    comment.Text,
		Date:    comment.Date.UTC(),
	}
	if _, insertErr := store.collection.InsertOne(ctx, document); insertErr != nil {
		return catalog.Comment{}, fmt.Errorf("comment_store.create.%s: %w", driverLabel, insertErr)
	}
	return document.toComment(), nil
}

// UpdateComment applies patch with $set and returns the updated document.
func (store *CommentStore) UpdateComment(ctx context.Context, movieID string, commentID string, patch catalog.CommentPatch) (catalog.Comment, error) {
	identifiers, err := parseObjectIDs("comment_store.update", movieID, commentID)
	if err != nil {
		return catalog.Comment{}, err
	}
	fields := commentPatchDocument(patch)
	if len(fields) == 0 {
		return store.GetComment(ctx, movieID, commentID)
	}
	var document commentDocument
	updateErr := store.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": identifiers[1], "movie_id": identifiers[0]},
		bson.D{{Key: "$set", Value: fields}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&document)
	if updateErr != nil {
		return catalog.Comment{}, commentLookupError("update", updateErr)
	}
	return document.toComment(), nil
}

// DeleteComment removes commentID from movieID.
func (store *CommentStore) DeleteComment(ctx context.Context, movieID string, commentID string) error {
	identifiers, err := parseObjectIDs("comment_store.delete", movieID, commentID)
	if err != nil {
		return err
	}
	result, deleteErr := store.collection.DeleteOne(ctx, bson.M{"_id": identifiers[1], "movie_id": identifiers[0]})
	if deleteErr != nil {
		return fmt.Errorf("comment_store.delete.%s: %w", driverLabel, deleteErr)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("comment_store.delete.%s: %w", driverLabel, catalog.ErrCommentNotFound)
	}
	return nil
}

func movieLookupError(operation string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("movie_store.%s.%s: %w", operation, driverLabel, catalog.ErrMovieNotFound)
	}
	return fmt.Errorf("movie_store.%s.%s: %w", operation, driverLabel, err)
}

func commentLookupError(operation string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("comment_store.%s.%s: %w", operation, driverLabel, catalog.ErrCommentNotFound)
	}
	return fmt.Errorf("comment_store.%s.%s: %w", operation, driverLabel, err)
}
