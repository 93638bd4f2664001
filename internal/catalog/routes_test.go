package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyemirov/moviecatalog/internal/apierror"
	"github.com/tyemirov/moviecatalog/internal/catalog"
	"github.com/tyemirov/moviecatalog/internal/storage/sqlstore"
	"go.uber.org/zap/zaptest"
)

const testBearer = "let-me-in"

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// requireTestBearer accepts a single static token so the catalog can be exercised without JWTs.
func requireTestBearer(contextGin *gin.Context) {
	if contextGin.GetHeader("Authorization") != "Bearer "+testBearer {
		contextGin.AbortWithStatusJSON(http.StatusUnauthorized, apierror.Envelope{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized: Token missing",
		})
		return
	}
	contextGin.Next()
}

func newCatalogRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlstore.Open(context.Background(), "sqlite:///"+filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(apierror.MethodNotAllowed)
	catalog.MountCatalogRoutes(router, catalog.Dependencies{
		Movies:   store.Movies(),
		Comments: store.Comments(),
		Logger:   zaptest.NewLogger(t),
		Now:      func() time.Time { return fixedNow },
	}, requireTestBearer)
	return router
}

type response struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, router http.Handler, method string, path string, authorized bool, payload any) (int, response) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	request := httptest.NewRequest(method, path, &body)
	request.Header.Set("Content-Type", "application/json")
	if authorized {
		request.Header.Set("Authorization", "Bearer "+testBearer)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	var decoded response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded), recorder.Body.String())
	return recorder.Code, decoded
}

func createMovie(t *testing.T, router http.Handler, title string) catalog.Movie {
	t.Helper()
	status, body := call(t, router, http.MethodPost, "/movies", true, map[string]any{
		"title": title, "year": 2001, "runtime": 120, "cast": []string{"Someone"},
	})
	require.Equal(t, http.StatusCreated, status, body.Message)
	var movie catalog.Movie
	require.NoError(t, json.Unmarshal(body.Data, &movie))
	return movie
}

func TestMovieEndpointsRequireBearer(t *testing.T) {
	router := newCatalogRouter(t)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		status, body := call(t, router, method, "/movies", false, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Unauthorized: Token missing", body.Message)
	}
	status, _ := call(t, router, http.MethodGet, "/movies/"+uuid.NewString(), false, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMovieLifecycle(t *testing.T) {
	router := newCatalogRouter(t)
	movie := createMovie(t, router, "Spirited Away")
	assert.Equal(t, []string{}, movie.Genres)
	assert.Equal(t, []string{"Someone"}, movie.Cast)

	status, body := call(t, router, http.MethodGet, "/movies/"+movie.ID, true, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, http.StatusOK, body.Status)

	status, body = call(t, router, http.MethodPut, "/movies/"+movie.ID, true, map[string]any{"plot": "A girl in a spirit world"})
	require.Equal(t, http.StatusOK, status)
	var updated catalog.Movie
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	assert.Equal(t, "A girl in a spirit world", updated.Plot)
	assert.Equal(t, "Spirited Away", updated.Title)

	status, body = call(t, router, http.MethodDelete, "/movies/"+movie.ID, true, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, fmt.Sprintf(`{"_id":%q}`, movie.ID), string(body.Data))

	status, body = call(t, router, http.MethodGet, "/movies/"+movie.ID, true, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Movie not found", body.Message)
}

func TestListMoviesAppliesLimit(t *testing.T) {
	router := newCatalogRouter(t)
	for index := 0; index < 3; index++ {
		createMovie(t, router, fmt.Sprintf("Movie %d", index))
	}

	status, body := call(t, router, http.MethodGet, "/movies?limit=2", true, nil)
	require.Equal(t, http.StatusOK, status)
	var movies []catalog.Movie
	require.NoError(t, json.Unmarshal(body.Data, &movies))
	assert.Len(t, movies, 2)

	status, body = call(t, router, http.MethodGet, "/movies?limit=zero", true, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &movies))
	assert.Len(t, movies, 3)
}

func TestMovieValidationAndIdentifierErrors(t *testing.T) {
	router := newCatalogRouter(t)
	movie := createMovie(t, router, "Valid")

	testCases := []struct {
		name    string
		method  string
		path    string
		payload any
		status  int
		message string
	}{
		{name: "missing title", method: http.MethodPost, path: "/movies", payload: map[string]any{"year": 1990}, status: http.StatusBadRequest, message: "Movie title is required"},
		{name: "negative year", method: http.MethodPost, path: "/movies", payload: map[string]any{"title": "X", "year": -1}, status: http.StatusBadRequest, message: "Year and runtime must not be negative"},
		{name: "empty update", method: http.MethodPut, path: "/movies/" + movie.ID, payload: map[string]any{}, status: http.StatusBadRequest, message: "Movie data is required"},
		{name: "blank title update", method: http.MethodPut, path: "/movies/" + movie.ID, payload: map[string]any{"title": " "}, status: http.StatusBadRequest, message: "Movie title is required"},
		{name: "malformed id", method: http.MethodGet, path: "/movies/not-an-id", status: http.StatusBadRequest, message: "Invalid movie ID"},
		{name: "unknown id", method: http.MethodDelete, path: "/movies/" + uuid.NewString(), status: http.StatusNotFound, message: "Movie not found"},
		{name: "unknown id update", method: http.MethodPut, path: "/movies/" + uuid.NewString(), payload: map[string]any{"year": 2000}, status: http.StatusNotFound, message: "Movie not found"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			status, body := call(t, router, testCase.method, testCase.path, true, testCase.payload)
			assert.Equal(t, testCase.status, status)
			assert.Equal(t, testCase.message, body.Message)
			assert.Equal(t, testCase.status, body.Status)
		})
	}
}

func TestUnsupportedMethodReturns405(t *testing.T) {
	router := newCatalogRouter(t)
	status, body := call(t, router, http.MethodPatch, "/movies", true, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "Method Not Allowed", body.Message)
}

func TestCommentLifecycle(t *testing.T) {
	router := newCatalogRouter(t)
	movie := createMovie(t, router, "Commented")
	commentsPath := "/movies/" + movie.ID + "/comments"

	status, _ := call(t, router, http.MethodPost, commentsPath, false, map[string]string{"name": "A", "email": "a@b.c", "text": "hi"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := call(t, router, http.MethodPost, commentsPath, true, map[string]string{"name": "A", "email": "a@b.c", "text": "hi"})
	require.Equal(t, http.StatusCreated, status, body.Message)
	var comment catalog.Comment
	require.NoError(t, json.Unmarshal(body.Data, &comment))
	assert.Equal(t, movie.ID, comment.MovieID)
	assert.True(t, fixedNow.Equal(comment.Date))

	status, body = call(t, router, http.MethodGet, commentsPath, false, nil)
	require.Equal(t, http.StatusOK, status)
	var comments []catalog.Comment
	require.NoError(t, json.Unmarshal(body.Data, &comments))
	require.Len(t, comments, 1)

	commentPath := commentsPath + "/" + comment.ID
	status, _ = call(t, router, http.MethodGet, commentPath, false, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = call(t, router, http.MethodPut, commentPath, true, map[string]string{"text": "edited"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &comment))
	assert.Equal(t, "edited", comment.Text)
	assert.Equal(t, "A", comment.Name)

	status, body = call(t, router, http.MethodDelete, commentPath, true, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, fmt.Sprintf(`{"_id":%q}`, comment.ID), string(body.Data))

	status, body = call(t, router, http.MethodGet, commentPath, false, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Comment not found", body.Message)
}

func TestCommentValidationAndIdentifierErrors(t *testing.T) {
	router := newCatalogRouter(t)
	movie := createMovie(t, router, "Target")
	commentsPath := "/movies/" + movie.ID + "/comments"

	testCases := []struct {
		name       string
		method     string
		path       string
		authorized bool
		payload    any
		status     int
		message    string
	}{
		{name: "missing text", method: http.MethodPost, path: commentsPath, authorized: true, payload: map[string]string{"name": "A", "email": "a@b.c"}, status: http.StatusBadRequest, message: "Name, email, and text are required"},
		{name: "unknown movie", method: http.MethodPost, path: "/movies/" + uuid.NewString() + "/comments", authorized: true, payload: map[string]string{"name": "A", "email": "a@b.c", "text": "t"}, status: http.StatusNotFound, message: "Movie not found"},
		{name: "list for unknown movie", method: http.MethodGet, path: "/movies/" + uuid.NewString() + "/comments", status: http.StatusNotFound, message: "Movie not found"},
		{name: "malformed movie id", method: http.MethodGet, path: "/movies/xyz/comments", status: http.StatusBadRequest, message: "Invalid movie ID"},
		{name: "malformed comment id", method: http.MethodGet, path: commentsPath + "/xyz", status: http.StatusBadRequest, message: "Invalid movie or comment ID"},
		{name: "unknown comment", method: http.MethodDelete, path: commentsPath + "/" + uuid.NewString(), authorized: true, status: http.StatusNotFound, message: "Comment not found"},
		{name: "empty comment update", method: http.MethodPut, path: commentsPath + "/" + uuid.NewString(), authorized: true, payload: map[string]string{}, status: http.StatusBadRequest, message: "Comment data is required"},
		{name: "blank comment text", method: http.MethodPut, path: commentsPath + "/" + uuid.NewString(), authorized: true, payload: map[string]string{"text": "  "}, status: http.StatusBadRequest, message: "Comment text must not be empty"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			status, body := call(t, router, testCase.method, testCase.path, testCase.authorized, testCase.payload)
			assert.Equal(t, testCase.status, status)
			assert.Equal(t, testCase.message, body.Message)
		})
	}
}
