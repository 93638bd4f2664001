package authkit

import (
	"net/http"
	"time"
)

// ServerConfig configures token issuance, password hashing, and the logout cookie.
type ServerConfig struct {
	AppJWTSigningKey  []byte
	AppJWTIssuer      string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	PasswordCost      int
	SessionCookieName string
	CookieDomain      string
	SameSiteMode      http.SameSite
}
