package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/moviecatalog/internal/apierror"
	"go.uber.org/zap"
)

const (
	// DefaultMovieLimit is used when the limit query parameter is absent or unusable.
	DefaultMovieLimit = 10
	// MaxMovieLimit bounds a single listing.
	MaxMovieLimit = 100
)

// Dependencies are the collaborators of the catalog endpoints.
type Dependencies struct {
	Movies   MovieStore
	Comments CommentStore
	Logger   *zap.Logger
	Now      func() time.Time
}

type movieInput struct {
	Title   string   `json:"title"`
	Year    int      `json:"year"`
	Genres  []string `json:"genres"`
	Runtime int      `json:"runtime"`
	Cast    []string `json:"cast"`
	Plot    string   `json:"plot"`
	Poster  string   `json:"poster"`
}

type commentInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Text  string `json:"text"`
}

// MountCatalogRoutes registers the movie and comment endpoints. Every movie route and
// every write requires requireBearer; comment reads are public.
func MountCatalogRoutes(router gin.IRouter, dependencies Dependencies, requireBearer gin.HandlerFunc) {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Now == nil {
		dependencies.Now = func() time.Time { return time.Now().UTC() }
	}

	router.GET("/movies", requireBearer, handleListMovies(dependencies))
	router.POST("/movies", requireBearer, handleCreateMovie(dependencies))
	router.GET("/movies/:id", requireBearer, handleGetMovie(dependencies))
	router.PUT("/movies/:id", requireBearer, handleUpdateMovie(dependencies))
	router.DELETE("/movies/:id", requireBearer, handleDeleteMovie(dependencies))

	router.GET("/movies/:id/comments", handleListComments(dependencies))
	router.POST("/movies/:id/comments", requireBearer, handleCreateComment(dependencies))
	router.GET("/movies/:id/comments/:commentId", handleGetComment(dependencies))
	router.PUT("/movies/:id/comments/:commentId", requireBearer, handleUpdateComment(dependencies))
	router.DELETE("/movies/:id/comments/:commentId", requireBearer, handleDeleteComment(dependencies))
}

// ParseLimit interprets the limit query parameter.
func ParseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return DefaultMovieLimit
	}
	if limit > MaxMovieLimit {
		return MaxMovieLimit
	}
	return limit
}

func handleListMovies(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		movies, err := dependencies.Movies.ListMovies(contextGin.Request.Context(), ParseLimit(contextGin.Query("limit")))
		if err != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("Failed to fetch movies", err))
			return
		}
		apierror.WriteData(contextGin, http.StatusOK, movies)
	}
}

func handleCreateMovie(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound movieInput
		if err := contextGin.ShouldBindJSON(&inbound); err != nil || strings.TrimSpace(inbound.Title) == "" {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Movie title is required"))
			return
		}
		if inbound.Year < 0 || inbound.Runtime < 0 {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Year and runtime must not be negative"))
			return
		}
		created, err := dependencies.Movies.CreateMovie(contextGin.Request.Context(), Movie{
			Title:   inbound.Title,
			Year:    inbound.Year,
			Genres:  nonNilStrings(inbound.Genres),
			Runtime: inbound.Runtime,
			Cast:    nonNilStrings(inbound.Cast),
			Plot:    inbound.Plot,
			Poster:  inbound.Poster,
		})
		if err != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("Failed to create movie", err))
			return
		}
		apierror.WriteData(contextGin, http.StatusCreated, created)
	}
}

func handleGetMovie(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		movie, err := dependencies.Movies.GetMovie(contextGin.Request.Context(), contextGin.Param("id"))
		if err != nil {
			apierror.Abort(contextGin, dependencies.Logger, movieFailure(err, "Failed to fetch movie"))
			return
		}
		apierror.WriteData(contextGin, http.StatusOK, movie)
	}
}

func handleUpdateMovie(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var patch MoviePatch
		if err := contextGin.ShouldBindJSON(&patch); err != nil || patch.IsEmpty() {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Movie data is required"))
			return
		}
		if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Movie title is required"))
			return
		}
		if (patch.Year != nil && *patch.Year < 0) || (patch.Runtime != nil && *patch.Runtime < 0) {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Year and runtime must not be negative"))
			return
		}
		updated, err := dependencies.Movies.UpdateMovie(contextGin.Request.Context(), contextGin.Param("id"), patch)
		if err != nil {
			apierror.Abort(contextGin, dependencies.Logger, movieFailure(err, "Failed to update movie"))
			return
		}
		apierror.WriteData(contextGin, http.StatusOK, updated)
	}
}

func handleDeleteMovie(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		movieID := contextGin.Param("id")
		if err := dependencies.Movies.DeleteMovie(contextGin.Request.Context(), movieID); err != nil {
			apierror.Abort(contextGin, dependencies.Logger, movieFailure(err, "Failed to delete movie"))
			return
		}
		apierror.WriteData(contextGin, http.StatusOK, gin.H{"_id": movieID})
	}
}

func handleListComments(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		movieID := contextGin.Param("id")
		if _, err := dependencies.Movies.GetMovie(contextGin.Request.Context(), movieID); err != nil {
			apierror.Abort(contextGin, dependencies.Logger, movieFailure(err, "Failed to retrieve comments"))
			return
		}
		comments, err := dependencies.Comments.ListComments(contextGin.Request.Context(), movieID)
		if err != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("Failed to retrieve comments", err))
			return
		}
		apierror.WriteData(contextGin, http.StatusOK, comments)
	}
}

func handleCreateComment(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		movieID := contextGin.Param("id")
		var inbound commentInput
		if err := contextGin.ShouldBindJSON(&inbound); err != nil ||
			strings.TrimSpace(inbound.Name) == "" || strings.TrimSpace(inbound.Email) == "" || strings.TrimSpace(inbound.Text) == "" {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Name, email, and text are required"))
			return
		}
		if _, err := dependencies.Movies.GetMovie(contextGin.Request.Context(), movieID); err != nil {
			apierror.Abort(contextGin, dependencies.Logger, movieFailure(err, "Failed to create comment"))
			return
		}
		created, err := dependencies.Comments.CreateComment(contextGin.Request.Context(), Comment{
			MovieID: movieID,
			Name:    inbound.Name,
			Email:   inbound.Email,
			Text:    inbound.Text,
			Date:    dependencies.Now(),
		})
		if err != nil {
			apierror.Abort(contextGin, dependencies.Logger, commentFailure(err, "Failed to create comment"))
			return
		}
		apierror.WriteData(contextGin, http.StatusCreated, created)
	}
}

func handleGetComment(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		comment, err := dependencies.Comments.GetComment(contextGin.Request.Context(), contextGin.Param("id"), contextGin.Param("commentId"))
		if err != nil {
			apierror.Abort(contextGin, dependencies.Logger, commentFailure(err, "Failed to retrieve comment"))
			return
		}
		apierror.WriteData(contextGin, http.StatusOK, comment)
	}
}

func handleUpdateComment(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var patch CommentPatch
		if err := contextGin.ShouldBindJSON(&patch); err != nil || patch.IsEmpty() {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Comment data is required"))
			return
		}
		if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Comment text must not be empty"))
			return
		}
		updated, err := dependencies.Comments.UpdateComment(contextGin.Request.Context(), contextGin.Param("id"), contextGin.Param("commentId"), patch)
		if err != nil {
			apierror.Abort(contextGin, dependencies.Logger, commentFailure(err, "Failed to update comment"))
			return
		}
		apierror.WriteData(contextGin, http.StatusOK, updated)
	}
}

func handleDeleteComment(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		commentID := contextGin.Param("commentId")
		if err := dependencies.Comments.DeleteComment(contextGin.Request.Context(), contextGin.Param("id"), commentID); err != nil {
			apierror.Abort(contextGin, dependencies.Logger, commentFailure(err, "Failed to delete comment"))
			return
		}
		apierror.WriteData(contextGin, http.StatusOK, gin.H{"_id": commentID})
	}
}

func movieFailure(err error, internalMessage string) error {
	switch {
	case errors.Is(err, ErrInvalidID):
		return apierror.Validation("Invalid movie ID")
	case errors.Is(err, ErrMovieNotFound):
		return apierror.NotFound("Movie not found")
	default:
		return apierror.Internal(internalMessage, err)
	}
}

func commentFailure(err error, internalMessage string) error {
	switch {
	case errors.Is(err, ErrInvalidID):
		return apierror.Validation("Invalid movie or comment ID")
	case errors.Is(err, ErrCommentNotFound), errors.Is(err, ErrMovieNotFound):
		return apierror.NotFound("Comment not found")
	default:
		return apierror.Internal(internalMessage, err)
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
