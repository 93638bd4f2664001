package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidID indicates an identifier that the backing store cannot parse.
	ErrInvalidID = errors.New("catalog.invalid_id")
	// ErrMovieNotFound indicates no movie matched the identifier.
	ErrMovieNotFound = errors.New("catalog.movie_not_found")
	// ErrCommentNotFound indicates no comment matched the identifiers.
	ErrCommentNotFound = errors.New("catalog.comment_not_found")
)

// Movie is a catalog entry.
type Movie struct {
	ID      string   `json:"_id"`
	Title   string   `json:"title"`
	Year    int      `json:"year"`
	Genres  []string `json:"genres"`
	Runtime int      `json:"runtime"`
	Cast    []string `json:"cast"`
	Plot    string   `json:"plot"`
	Poster  string   `json:"poster"`
}

// MoviePatch holds the fields of a partial movie update; nil fields are left unchanged.
type MoviePatch struct {
	Title   *string   `json:"title"`
	Year    *int      `json:"year"`
	Genres  *[]string `json:"genres"`
	Runtime *int      `json:"runtime"`
	Cast    *[]string `json:"cast"`
	Plot    *string   `json:"plot"`
	Poster  *string   `json:"poster"`
}

// IsEmpty reports whether the patch changes nothing.
func (patch MoviePatch) IsEmpty() bool {
	return patch.Title == nil && patch.Year == nil && patch.Genres == nil && patch.Runtime == nil &&
		patch.Cast == nil && patch.Plot == nil && patch.Poster == nil
}

// Apply returns movie with the patch fields applied.
func (patch MoviePatch) Apply(movie Movie) Movie {
	if patch.Title != nil {
		movie.Title = *patch.Title
	}
	if patch.Year != nil {
		movie.Year = *patch.Year
	}
	if patch.Genres != nil {
		movie.Genres = *patch.Genres
	}
	if patch.Runtime != nil {
		movie.Runtime = *patch.Runtime
	}
	if patch.Cast != nil {
		movie.Cast = *patch.Cast
	}
	if patch.Plot != nil {
		movie.Plot = *patch.Plot
	}
	if patch.Poster != nil {
		movie.Poster = *patch.Poster
	}
	return movie
}

// Comment is a user remark attached to a movie.
type Comment struct {
	ID      string    `json:"_id"`
	MovieID string    `json:"movie_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Text    string    `json:"text"`
	Date    time.Time `json:"date"`
}

// CommentPatch holds the fields of a partial comment update.
type CommentPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Text  *string `json:"text"`
}

// IsEmpty reports whether the patch changes nothing.
func (patch CommentPatch) IsEmpty() bool {
	return patch.Name == nil && patch.Email == nil && patch.Text == nil
}

// Apply returns comment with the patch fields applied.
func (patch CommentPatch) Apply(comment Comment) Comment {
	if patch.Name != nil {
		comment.Name = *patch.Name
	}
	if patch.Email != nil {
		comment.Email = *patch.Email
	}
	if patch.Text != nil {
		comment.Text = *patch.Text
	}
	return comment
}

// MovieStore persists movies.
type MovieStore interface {
	ListMovies(ctx context.Context, limit int) ([]Movie, error)
	GetMovie(ctx context.Context, movieID string) (Movie, error)
	CreateMovie(ctx context.Context, movie Movie) (Movie, error)
	UpdateMovie(ctx context.Context, movieID string, patch MoviePatch) (Movie, error)
	// DeleteMovie removes the movie and its comments.
	DeleteMovie(ctx context.Context, movieID string) error
}

// CommentStore persists comments scoped to a movie.
type CommentStore interface {
	ListComments(ctx context.Context, movieID string) ([]Comment, error)
	GetComment(ctx context.Context, movieID string, commentID string) (Comment, error)
	CreateComment(ctx context.Context, comment Comment) (Comment, error)
	UpdateComment(ctx context.Context, movieID string, commentID string, patch CommentPatch) (Comment, error)
	DeleteComment(ctx context.Context, movieID string, commentID string) error
}
