package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestConfigureCORS(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	middleware, err := ConfigureCORS(zaptest.NewLogger(t), []string{"http://localhost"})
	if err != nil {
		t.Fatalf("unexpected error configuring CORS: %v", err)
	}
	router.Use(middleware)
	router.GET("/resource", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodOptions, "/resource", nil)
	request.Header.Set("Origin", "http://localhost")
	request.Header.Set("Access-Control-Request-Method", http.MethodGet)
	request.Header.Set("Access-Control-Request-Headers", "Authorization")
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from preflight, got %d", recorder.Code)
	}
	if origin := recorder.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost" {
		t.Fatalf("unexpected allowed origin header: %q", origin)
	}
	if allowed := recorder.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(strings.ToLower(allowed), "authorization") {
		t.Fatalf("expected Authorization among allowed headers, got %q", allowed)
	}
}

func TestConfigureCORSRejectsBadOrigins(t *testing.T) {
	testCases := []struct {
		name    string
		origins []string
	}{
		{name: "nil list", origins: nil},
		{name: "whitespace", origins: []string{"  "}},
		{name: "wildcard", origins: []string{"*"}},
		{name: "missing scheme", origins: []string{"localhost:3000"}},
		{name: "path segment", origins: []string{"https://example.com/app"}},
		{name: "query", origins: []string{"https://example.com?x=1"}},
		{name: "unsupported scheme", origins: []string{"ftp://example.com"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := ConfigureCORS(zap.NewNop(), testCase.origins); !errors.Is(err, ErrInvalidOrigin) {
				t.Fatalf("expected ErrInvalidOrigin for %v, got %v", testCase.origins, err)
			}
		})
	}
}

func TestNormalizeOriginsKeepsOrderAndDeduplicates(t *testing.T) {
	normalized, err := NormalizeOrigins([]string{"https://Example.com/", " ", "HTTP://localhost:3000", "https://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"https://example.com", "http://localhost:3000"}
	if strings.Join(normalized, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected %v, got %v", expected, normalized)
	}
}

func TestPlaintextRemoteOrigin(t *testing.T) {
	expectations := map[string]bool{
		"http://localhost:3000":  false,
		"http://127.0.0.1:8080":  false,
		"http://[::1]:8080":      false,
		"https://movies.example": false,
		"http://movies.example":  true,
		"http://10.0.0.5":        true,
	}
	for origin, expected := range expectations {
		if plaintextRemoteOrigin(origin) != expected {
			t.Fatalf("%s: expected %v", origin, expected)
		}
	}
}

func TestSecureHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SecureHeaders(SecureOptions(false), zaptest.NewLogger(t)))
	router.GET("/ping", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	if value := recorder.Header().Get("X-Frame-Options"); value != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", value)
	}
	if value := recorder.Header().Get("X-Content-Type-Options"); value != "nosniff" {
		t.Fatalf("expected nosniff, got %q", value)
	}
}

func TestNewRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	disabled, err := NewRateLimiter("", nil)
	if err != nil || disabled != nil {
		t.Fatalf("expected empty rate to disable limiting, got %v %v", disabled, err)
	}
	if _, err := NewRateLimiter("many-per-minute", nil); err == nil {
		t.Fatalf("expected error for malformed rate")
	}

	limiterMiddleware, err := NewRateLimiter("1-M", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	router := gin.New()
	router.POST("/auth/login", limiterMiddleware, func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("expected rate limit header, got %q", first.Header().Get("X-RateLimit-Limit"))
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), "Too many requests") {
		t.Fatalf("unexpected throttled body %q", second.Body.String())
	}
}

func TestPrometheusMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	metrics := NewPrometheusMetrics("test")
	metrics.Increment("auth.login.success")
	metrics.Increment("auth.login.success")

	router := gin.New()
	router.Use(metrics.Middleware())
	router.GET("/movies/:id", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusOK)
	})
	router.GET("/metrics", metrics.Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/movies/abc", nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", recorder.Code)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, `test_auth_events_total{event="auth.login.success"} 2`) {
		t.Fatalf("expected auth counter in output")
	}
	if !strings.Contains(body, `test_http_request_duration_seconds_count{method="GET",route="/movies/:id",status="200"} 1`) {
		t.Fatalf("expected request histogram keyed by route template")
	}
	if metrics.Registry() == nil {
		t.Fatalf("expected registry")
	}
}
