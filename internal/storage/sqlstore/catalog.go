package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tyemirov/moviecatalog/internal/catalog"
	"gorm.io/gorm"
)

type movieRecord struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Title     string    `gorm:"column:title;not null"`
	Year      int       `gorm:"column:year"`
	Genres    []string  `gorm:"column:genres;serializer:json"`
	Runtime   int       `gorm:"column:runtime"`
	Cast      []string  `gorm:"column:cast_members;serializer:json"`
	Plot      string    `gorm:"column:plot"`
	Poster    string    `gorm:"column:poster"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (movieRecord) TableName() string {
	return "movies"
}

func newMovieRecord(movie catalog.Movie) movieRecord {
	return movieRecord{
		ID:      movie.ID,
		Title:   movie.Title,
		Year:    movie.Year,
		Genres:  movie.Genres,
		Runtime: movie.Runtime,
		Cast:    movie.Cast,
		Plot:    movie.Plot,
		Poster:  movie.Poster,
	}
}

func (record movieRecord) toMovie() catalog.Movie {
	genres := record.Genres
	if genres == nil {
		genres = []string{}
	}
	cast := record.Cast
	if cast == nil {
		cast = []string{}
	}
	return catalog.Movie{
		ID:      record.ID,
		Title:   record.Title,
		Year:    record.Year,
		Genres:  genres,
		Runtime: record.Runtime,
		Cast:    cast,
		Plot:    record.Plot,
		Poster:  record.Poster,
	}
}

type commentRecord struct {
	ID      string    `gorm:"column:id;primaryKey"`
	MovieID string    `gorm:"column:movie_id;index;not null"`
	Name    string    `gorm:"column:name;not null"`
	Email   string    `gorm:"column:email;not null"`
	Text    string    `gorm:"column:text;not null"`
	Date    time.Time `gorm:"column:date;index"`
}

func (commentRecord) TableName() string {
	return "comments"
}

func (record commentRecord) toComment() catalog.Comment {
	return catalog.Comment{
		ID:      record.ID,
		MovieID: record.MovieID,
		Name:    record.Name,
		Email:   record.Email,
		Text:    record.Text,
		Date:    record.Date,
	}
}

// MovieStore implements catalog.MovieStore on GORM.
type MovieStore struct {
	db          *gorm.DB
	driverLabel string
}

// ListMovies returns up to limit movies in insertion order.
func (store *MovieStore) ListMovies(ctx context.Context, limit int) ([]catalog.Movie, error) {
	var records []movieRecord
	err := store.db.WithContext(ctx).Order("created_at asc").Order("id asc").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("movie_store.list.%s: %w", store.driverLabel, err)
	}
	movies := make([]catalog.Movie, 0, len(records))
	for _, record := range records {
		movies = append(movies, record.toMovie())
	}
	return movies, nil
}

// GetMovie returns the movie with movieID.
func (store *MovieStore) GetMovie(ctx context.Context, movieID string) (catalog.Movie, error) {
	record, err := store.take(store.db.WithContext(ctx), "get", movieID)
	if err != nil {
		return catalog.Movie{}, err
	}
	return record.toMovie(), nil
}

// CreateMovie inserts movie under a new identifier.
func (store *MovieStore) CreateMovie(ctx context.Context, movie catalog.Movie) (catalog.Movie, error) {
	record := newMovieRecord(movie)
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now().UTC()
	if err := store.db.WithContext(ctx).Create(&record).Error; err != nil {
		return catalog.Movie{}, fmt.Errorf("movie_store.create.%s: %w", store.driverLabel, err)
	}
	return record.toMovie(), nil
}

// UpdateMovie applies patch to the stored movie.
func (store *MovieStore) UpdateMovie(ctx context.Context, movieID string, patch catalog.MoviePatch) (catalog.Movie, error) {
	var updated catalog.Movie
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		record, takeErr := store.take(transaction, "update", movieID)
		if takeErr != nil {
			return takeErr
		}
		patched := newMovieRecord(patch.Apply(record.toMovie()))
		patched.CreatedAt = record.CreatedAt
		if saveErr := transaction.Save(&patched).Error; saveErr != nil {
			return fmt.Errorf("movie_store.update.%s: %w", store.driverLabel, saveErr)
		}
		updated = patched.toMovie()
		return nil
	})
	if err != nil {
		return catalog.Movie{}, err
	}
	return updated, nil
}

// DeleteMovie removes the movie together with its comments.
func (store *MovieStore) DeleteMovie(ctx context.Context, movieID string) error {
	if _, parseErr := uuid.Parse(movieID); parseErr != nil {
		return fmt.Errorf("movie_store.delete.%s: %w", store.driverLabel, catalog.ErrInvalidID)
	}
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Where("movie_id = ?", movieID).Delete(&commentRecord{}).Error; err != nil {
			return fmt.Errorf("movie_store.delete.%s: %w", store.driverLabel, err)
		}
		result := transaction.Where("id = ?", movieID).Delete(&movieRecord{})
		if result.Error != nil {
			return fmt.Errorf("movie_store.delete.%s: %w", store.driverLabel, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("movie_store.delete.%s: %w", store.driverLabel, catalog.ErrMovieNotFound)
		}
		return nil
	})
}

func (store *MovieStore) take(db *gorm.DB, operation string, movieID string) (movieRecord, error) {
	if _, parseErr := uuid.Parse(movieID); parseErr != nil {
		return movieRecord{}, fmt.Errorf("movie_store.%s.%s: %w", operation, store.driverLabel, catalog.ErrInvalidID)
	}
	var record movieRecord
	err := db.Where("id = ?", movieID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return movieRecord{}, fmt.Errorf("movie_store.%s.%s: %w", operation, store.driverLabel, catalog.ErrMovieNotFound)
		}
		return movieRecord{}, fmt.Errorf("movie_store.%s.%s: %w", operation, store.driverLabel, err)
	}
	return record, nil
}

// CommentStore implements catalog.CommentStore on GORM.
type CommentStore struct {
	db          *gorm.DB
	driverLabel string
}

// ListComments returns the comments of movieID ordered by date.
func (store *CommentStore) ListComments(ctx context.Context, movieID string) ([]catalog.Comment, error) {
	if _, parseErr := uuid.Parse(movieID); parseErr != nil {
		return nil, fmt.Errorf("comment_store.list.%s: %w", store.driverLabel, catalog.ErrInvalidID)
	}
	var records []commentRecord
	err := store.db.WithContext(ctx).Where("movie_id = ?", movieID).Order("date asc").Order("id asc").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("comment_store.list.%s: %w", store.driverLabel, err)
	}
	comments := make([]catalog.Comment, 0, len(records))
	for _, record := range records {
		comments = append(comments, record.toComment())
	}
	return comments, nil
}

// GetComment returns commentID if it belongs to movieID.
func (store *CommentStore) GetComment(ctx context.Context, movieID string, commentID string) (catalog.Comment, error) {
	record, err := store.take(store.db.WithContext(ctx), "get", movieID, commentID)
	if err != nil {
		return catalog.Comment{}, err
	}
	return record.toComment(), nil
}

// CreateComment inserts comment under a new identifier.
func (store *CommentStore) CreateComment(ctx context.Context, comment catalog.Comment) (catalog.Comment, error) {
	if _, parseErr := uuid.Parse(comment.MovieID); parseErr != nil {
		return catalog.Comment{}, fmt.Errorf("comment_store.create.%s: %w", store.driverLabel, catalog.ErrInvalidID)
	}
	record := commentRecord{
		ID:      uuid.NewString(),
		MovieID: comment.MovieID,
		Name:    comment.Name,
		Email:   comment.Email,
		Text:    comment.Text,
		Date:    comment.Date.UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&record).Error; err != nil {
		return catalog.Comment{}, fmt.Errorf("comment_store.create.%s: %w", store.driverLabel, err)
	}
	return record.toComment(), nil
}

// UpdateComment applies patch to the stored comment.
func (store *CommentStore) UpdateComment(ctx context.Context, movieID string, commentID string, patch catalog.CommentPatch) (catalog.Comment, error) {
	var updated catalog.Comment
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		record, takeErr := store.take(transaction, "update", movieID, commentID)
		if takeErr != nil {
			return takeErr
		}
		patched := patch.Apply(record.toComment())
		record.Name = patched.Name
		record.Email = patched.Email
		record.Text = patched.Text
		if saveErr := transaction.Save(&record).Error; saveErr != nil {
			return fmt.Errorf("comment_store.update.%s: %w", store.driverLabel, saveErr)
		}
		updated = record.toComment()
		return nil
	})
	if err != nil {
		return catalog.Comment{}, err
	}
	return updated, nil
}

// DeleteComment removes commentID from movieID.
func (store *CommentStore) DeleteComment(ctx context.Context, movieID string, commentID string) error {
	if !validIDs(movieID, commentID) {
		return fmt.Errorf("comment_store.delete.%s: %w", store.driverLabel, catalog.ErrInvalidID)
	}
	result := store.db.WithContext(ctx).Where("id = ? AND movie_id = ?", commentID, movieID).Delete(&commentRecord{})
	if result.Error != nil {
		return fmt.Errorf("comment_store.delete.%s: %w", store.driverLabel, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("comment_store.delete.%s: %w", store.driverLabel, catalog.ErrCommentNotFound)
	}
	return nil
}

func (store *CommentStore) take(db *gorm.DB, operation string, movieID string, commentID string) (commentRecord, error) {
	if !validIDs(movieID, commentID) {
		return commentRecord{}, fmt.Errorf("comment_store.%s.%s: %w", operation, store.driverLabel, catalog.ErrInvalidID)
	}
	var record commentRecord
	err := db.Where("id = ? AND movie_id = ?", commentID, movieID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return commentRecord{}, fmt.Errorf("comment_store.%s.%s: %w", operation, store.driverLabel, catalog.ErrCommentNotFound)
		}
		return commentRecord{}, fmt.Errorf("comment_store.%s.%s: %w", operation, store.driverLabel, err)
	}
	return record, nil
}

func validIDs(identifiers ...string) bool {
	for _, identifier := range identifiers {
		if _, err := uuid.Parse(identifier); err != nil {
			return false
		}
	}
	return true
}
