package authkit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/moviecatalog/internal/apierror"
	"go.uber.org/zap"
)

const (
	metricAuthRegisterSuccess = "auth.register.success"
	metricAuthRegisterFailure = "auth.register.failure"
	metricAuthLoginSuccess    = "auth.login.success"
	metricAuthLoginFailure    = "auth.login.failure"
	metricAuthRefreshSuccess  = "auth.refresh.success"
	metricAuthRefreshFailure  = "auth.refresh.failure"
	metricAuthLogoutSuccess   = "auth.logout.success"

	passwordTooLongMessage = "Password must be at most 72 bytes"
)

// Dependencies are the collaborators of the session endpoints.
type Dependencies struct {
	Users     UserStore
	Tokens    *TokenIssuer
	Passwords *PasswordHasher
	Metrics   MetricsRecorder
	Logger    *zap.Logger
	// Throttle guards the credential endpoints; nil disables throttling.
	Throttle gin.HandlerFunc
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// MountAuthRoutes registers /auth/register, /auth/login, /auth/refresh-token, /auth/logout, and /auth/me.
func MountAuthRoutes(router gin.IRouter, configuration ServerConfig, dependencies Dependencies) {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Metrics == nil {
		dependencies.Metrics = NewCounterMetrics()
	}
	requireBearer := RequireBearer(dependencies.Tokens, dependencies.Logger)

	credentialHandlers := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if dependencies.Throttle == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{dependencies.Throttle, handler}
	}

	authGroup := router.Group("/auth")
	authGroup.POST("/register", credentialHandlers(handleRegister(dependencies))...)
	authGroup.POST("/login", credentialHandlers(handleLogin(dependencies))...)
	authGroup.POST("/refresh-token", handleRefresh(dependencies))
	authGroup.POST("/logout", requireBearer, handleLogout(configuration, dependencies))
	authGroup.GET("/me", requireBearer, handleMe(dependencies))
}

func handleRegister(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound struct {
			Email    string `json:"email"`
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		bindErr := contextGin.ShouldBindJSON(&inbound)
		if bindErr != nil || strings.TrimSpace(inbound.Email) == "" || strings.TrimSpace(inbound.Name) == "" || inbound.Password == "" {
			dependencies.Metrics.Increment(metricAuthRegisterFailure)
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Email, name, and password are required"))
			return
		}
		if len(inbound.Password) > MaxPasswordBytes {
			dependencies.Metrics.Increment(metricAuthRegisterFailure)
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation(passwordTooLongMessage))
			return
		}

		_, lookupErr := dependencies.Users.FindByEmail(contextGin.Request.Context(), inbound.Email)
		switch {
		case lookupErr == nil:
			dependencies.Metrics.Increment(metricAuthRegisterFailure)
			apierror.Abort(contextGin, dependencies.Logger, apierror.Conflict("User already exists"))
			return
		case !errors.Is(lookupErr, ErrUserNotFound):
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while creating the user", lookupErr))
			return
		}

		passwordHash, hashErr := dependencies.Passwords.Hash(inbound.Password)
		if errors.Is(hashErr, ErrPasswordTooLong) {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation(passwordTooLongMessage))
			return
		}
		if hashErr != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while creating the user", hashErr))
			return
		}
		created, createErr := dependencies.Users.Create(contextGin.Request.Context(), inbound.Email, inbound.Name, passwordHash)
		if createErr != nil {
			if errors.Is(createErr, ErrDuplicateEmail) {
				dependencies.Metrics.Increment(metricAuthRegisterFailure)
				apierror.Abort(contextGin, dependencies.Logger, apierror.Conflict("User already exists"))
				return
			}
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while creating the user", createErr))
			return
		}

		dependencies.Metrics.Increment(metricAuthRegisterSuccess)
		dependencies.Logger.Info("user registered",
			zap.String("code", "auth.register.success"),
			zap.String("user_id", created.ID))
		contextGin.JSON(http.StatusCreated, messageResponse{Message: "User created successfully"})
	}
}

func handleLogin(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := contextGin.ShouldBindJSON(&inbound); err != nil || strings.TrimSpace(inbound.Email) == "" || inbound.Password == "" {
			dependencies.Metrics.Increment(metricAuthLoginFailure)
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Email and password are required"))
			return
		}

		user, lookupErr := dependencies.Users.FindByEmail(contextGin.Request.Context(), inbound.Email)
		if lookupErr != nil {
			if errors.Is(lookupErr, ErrUserNotFound) {
				dependencies.Passwords.SimulateMatch(inbound.Password)
				dependencies.Metrics.Increment(metricAuthLoginFailure)
				apierror.Abort(contextGin, dependencies.Logger, apierror.Unauthorized("Invalid email or password"))
				return
			}
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while logging in", lookupErr))
			return
		}

		matches, compareErr := dependencies.Passwords.Matches(user.PasswordHash, inbound.Password)
		if compareErr != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while logging in", compareErr))
			return
		}
		if !matches {
			dependencies.Metrics.Increment(metricAuthLoginFailure)
			apierror.Abort(contextGin, dependencies.Logger, apierror.Unauthorized("Invalid email or password"))
			return
		}

		pair, issueErr := dependencies.Tokens.IssuePair(user.ID)
		if issueErr != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while logging in", issueErr))
			return
		}
		if storeErr := dependencies.Users.SetRefreshToken(contextGin.Request.Context(), user.ID, RefreshTokenDigest(pair.RefreshToken)); storeErr != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while logging in", storeErr))
			return
		}

		dependencies.Metrics.Increment(metricAuthLoginSuccess)
		contextGin.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	}
}

func handleRefresh(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := contextGin.ShouldBindJSON(&inbound); err != nil || strings.TrimSpace(inbound.RefreshToken) == "" {
			dependencies.Metrics.Increment(metricAuthRefreshFailure)
			apierror.Abort(contextGin, dependencies.Logger, apierror.Validation("Refresh token is required"))
			return
		}

		claims, verifyErr := dependencies.Tokens.VerifyKind(inbound.RefreshToken, TokenKindRefresh)
		if verifyErr != nil {
			dependencies.Metrics.Increment(metricAuthRefreshFailure)
			message := "Unauthorized: Invalid token"
			if errors.Is(verifyErr, ErrTokenExpired) {
				message = "Unauthorized: Token expired"
			}
			apierror.Abort(contextGin, dependencies.Logger, apierror.Unauthorized(message))
			return
		}

		presentedDigest := RefreshTokenDigest(inbound.RefreshToken)
		matches, matchErr := dependencies.Users.RefreshTokenMatches(contextGin.Request.Context(), claims.UserID, presentedDigest)
		if matchErr != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while refreshing token", matchErr))
			return
		}
		if !matches {
			dependencies.Metrics.Increment(metricAuthRefreshFailure)
			dependencies.Logger.Warn("refresh token does not match stored value",
				zap.String("code", "auth.refresh.mismatch"),
				zap.String("user_id", claims.UserID))
			apierror.Abort(contextGin, dependencies.Logger, apierror.Unauthorized("Unauthorized: Invalid refresh token"))
			return
		}

		pair, issueErr := dependencies.Tokens.IssuePair(claims.UserID)
		if issueErr != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while refreshing token", issueErr))
			return
		}
		rotated, rotateErr := dependencies.Users.RotateRefreshToken(contextGin.Request.Context(), claims.UserID, presentedDigest, RefreshTokenDigest(pair.RefreshToken))
		if rotateErr != nil {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("An error occurred while refreshing token", rotateErr))
			return
		}
		if !rotated {
			dependencies.Metrics.Increment(metricAuthRefreshFailure)
			apierror.Abort(contextGin, dependencies.Logger, apierror.Unauthorized("Unauthorized: Invalid refresh token"))
			return
		}

		dependencies.Metrics.Increment(metricAuthRefreshSuccess)
		contextGin.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	}
}

func handleLogout(configuration ServerConfig, dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		userID, ok := AuthenticatedUserID(contextGin)
		if !ok {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Unauthorized("Unauthorized: Invalid token"))
			return
		}
		clearErr := dependencies.Users.SetRefreshToken(contextGin.Request.Context(), userID, "")
		if clearErr != nil && !errors.Is(clearErr, ErrUserNotFound) {
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("Internal server error", clearErr))
			return
		}
		if configuration.SessionCookieName != "" {
			clearCookie(contextGin, configuration.SessionCookieName, configuration.CookieDomain, configuration.SameSiteMode)
		}
		dependencies.Metrics.Increment(metricAuthLogoutSuccess)
		contextGin.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
	}
}

func handleMe(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		userID, ok := AuthenticatedUserID(contextGin)
		if !ok {
			dependencies.Logger.Warn("missing auth user on context",
				zap.String("code", "api.me.missing_user"))
			apierror.Abort(contextGin, dependencies.Logger, apierror.Unauthorized("Unauthorized: Invalid token"))
			return
		}
		user, lookupErr := dependencies.Users.FindByID(contextGin.Request.Context(), userID)
		if lookupErr != nil {
			if errors.Is(lookupErr, ErrUserNotFound) {
				dependencies.Logger.Warn("user profile missing",
					zap.String("code", "api.me.profile_missing"),
					zap.String("user_id", userID))
				apierror.Abort(contextGin, dependencies.Logger, apierror.Unauthorized("Unauthorized: Invalid token"))
				return
			}
			apierror.Abort(contextGin, dependencies.Logger, apierror.Internal("Internal server error", lookupErr))
			return
		}
		apierror.WriteData(contextGin, http.StatusOK, gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		})
	}
}

func clearCookie(contextGin *gin.Context, name string, domain string, sameSite http.SameSite) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: sameSite,
	})
}
