// Package web holds the HTTP middleware shared by the auth and catalog endpoints.
package web

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrInvalidOrigin reports a CORS origin that is not a bare http or https scheme and host.
var ErrInvalidOrigin = errors.New("cors.invalid_origin")

// NormalizeOrigins reduces every configured origin to lower-case scheme://host, in the
// order given, skipping blanks and repeats. Credentialed requests are always allowed, so a
// wildcard or an empty list is rejected.
func NormalizeOrigins(origins []string) ([]string, error) {
	normalized := make([]string, 0, len(origins))
	for _, origin := range origins {
		candidate := strings.TrimSpace(origin)
		if candidate == "" {
			continue
		}
		value, err := normalizeOrigin(candidate)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(normalized, value) {
			normalized = append(normalized, value)
		}
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: at least one origin is required", ErrInvalidOrigin)
	}
	return normalized, nil
}

func normalizeOrigin(origin string) (string, error) {
	if origin == "*" {
		return "", fmt.Errorf("%w: wildcard cannot be used with credentialed requests", ErrInvalidOrigin)
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q is not scheme://host", ErrInvalidOrigin, origin)
	}
	if strings.Trim(parsed.Path, "/") != "" || parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", fmt.Errorf("%w: %q carries more than scheme and host", ErrInvalidOrigin, origin)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %q must use http or https", ErrInvalidOrigin, origin)
	}
	return scheme + "://" + strings.ToLower(parsed.Host), nil
}

// ConfigureCORS allows the catalog's browser clients on allowedOrigins to send the access
// token in the Authorization header and read the rate-limit headers.
func ConfigureCORS(logger *zap.Logger, allowedOrigins []string) (gin.HandlerFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins, err := NormalizeOrigins(allowedOrigins)
	if err != nil {
		return nil, err
	}
	for _, origin := range origins {
		if plaintextRemoteOrigin(origin) {
			logger.Warn("cors origin without tls",
				zap.String("code", "cors.origin.plaintext"),
				zap.String("origin", origin))
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Type", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}), nil
}

// plaintextRemoteOrigin reports an http origin that is not on the local machine.
func plaintextRemoteOrigin(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme != "http" {
		return false
	}
	host := parsed.Hostname()
	if host == "localhost" {
		return false
	}
	return !net.ParseIP(host).IsLoopback()
}
