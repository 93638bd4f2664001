package authkit

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/moviecatalog/internal/apierror"
	"go.uber.org/zap"
)

// UserIDContextKey holds the authenticated user id on the gin context.
const UserIDContextKey = "auth_user_id"

const bearerPrefix = "bearer "

// AccessTokenVerifier validates access tokens presented to protected routes.
type AccessTokenVerifier interface {
	VerifyKind(tokenString string, kind TokenKind) (*Claims, error)
}

// RequireBearer rejects requests without a valid access token in the Authorization header.
func RequireBearer(verifier AccessTokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		token := bearerToken(contextGin.GetHeader("Authorization"))
		if token == "" {
			apierror.Abort(contextGin, logger, apierror.Unauthorized("Unauthorized: Token missing"))
			return
		}
		claims, verifyErr := verifier.VerifyKind(token, TokenKindAccess)
		switch {
		case verifyErr == nil:
		case errors.Is(verifyErr, ErrTokenExpired):
			apierror.Abort(contextGin, logger, apierror.Unauthorized("Unauthorized: Token expired"))
			return
		case errors.Is(verifyErr, ErrInvalidToken), errors.Is(verifyErr, ErrMissingToken):
			apierror.Abort(contextGin, logger, apierror.Unauthorized("Unauthorized: Invalid token"))
			return
		default:
			apierror.Abort(contextGin, logger, apierror.Internal("Internal server error", verifyErr))
			return
		}
		contextGin.Set(UserIDContextKey, claims.UserID)
		contextGin.Next()
	}
}

// AuthenticatedUserID returns the user id stored by RequireBearer.
func AuthenticatedUserID(contextGin *gin.Context) (string, bool) {
	userID := contextGin.GetString(UserIDContextKey)
	return userID, userID != ""
}

func bearerToken(header string) string {
	trimmed := strings.TrimSpace(header)
	if strings.EqualFold(trimmed, strings.TrimSpace(bearerPrefix)) {
		return ""
	}
	if len(trimmed) >= len(bearerPrefix) && strings.EqualFold(trimmed[:len(bearerPrefix)], bearerPrefix) {
		trimmed = trimmed[len(bearerPrefix):]
	}
	return strings.TrimSpace(trimmed)
}
