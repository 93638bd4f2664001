package authkit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Sentinel errors returned by the token issuer.
var (
	ErrMissingSigningKey = errors.New("token.missing_signing_key")
	ErrMissingIssuer     = errors.New("token.missing_issuer")
	ErrMissingToken      = errors.New("token.missing")
	ErrInvalidToken      = errors.New("token.invalid")
	ErrTokenExpired      = errors.New("token.expired")
)

// Claims are embedded in both access and refresh tokens.
type Claims struct {
	UserID string    `json:"userId"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair is the credential set returned by login and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenIssuer mints and verifies HS256 tokens with a single signing key.
type TokenIssuer struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      Clock
}

// NewTokenIssuer constructs an issuer from the server configuration.
func NewTokenIssuer(configuration ServerConfig, clock Clock) (*TokenIssuer, error) {
	if len(configuration.AppJWTSigningKey) == 0 {
		return nil, fmt.Errorf("token.new: %w", ErrMissingSigningKey)
	}
	if strings.TrimSpace(configuration.AppJWTIssuer) == "" {
		return nil, fmt.Errorf("token.new: %w", ErrMissingIssuer)
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &TokenIssuer{
		signingKey: configuration.AppJWTSigningKey,
		issuer:     configuration.AppJWTIssuer,
		accessTTL:  configuration.AccessTTL,
		refreshTTL: configuration.RefreshTTL,
		clock:      clock,
	}, nil
}

// Issue signs a token of the given kind for userID that expires after ttl.
func (issuer *TokenIssuer) Issue(userID string, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("token.issue: subject must be non-empty")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("token.issue: ttl must be positive")
	}
	issuedAt := issuer.clock.Now().UTC()
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token.issue: %w", err)
	}
	// exp is encoded in whole seconds; report the instant Verify will enforce.
	return signed, claims.ExpiresAt.Time, nil
}

// IssuePair mints a fresh access token and refresh token for userID.
func (issuer *TokenIssuer) IssuePair(userID string) (TokenPair, error) {
	accessToken, accessExpiresAt, accessErr := issuer.Issue(userID, TokenKindAccess, issuer.accessTTL)
	if accessErr != nil {
		return TokenPair{}, accessErr
	}
	refreshToken, refreshExpiresAt, refreshErr := issuer.Issue(userID, TokenKindRefresh, issuer.refreshTTL)
	if refreshErr != nil {
		return TokenPair{}, refreshErr
	}
	return TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Verify checks the signature, issuer, and validity window of tokenString.
// Expired tokens fail with ErrTokenExpired; every other defect fails with ErrInvalidToken.
func (issuer *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token.verify: %w", ErrMissingToken)
	}
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &Claims{}, func(parsed *jwt.Token) (interface{}, error) {
		return issuer.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time {
			return issuer.clock.Now()
		}))
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token.verify: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("token.verify: %w", ErrInvalidToken)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return nil, fmt.Errorf("token.verify: %w", ErrInvalidToken)
	}
	claims, ok := parsedToken.Claims.(*Claims)
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		return nil, fmt.Errorf("token.verify: %w", ErrInvalidToken)
	}
	if claims.Issuer != issuer.issuer {
		return nil, fmt.Errorf("token.verify: issuer mismatch: %w", ErrInvalidToken)
	}
	if !issuer.clock.Now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("token.verify: %w", ErrTokenExpired)
	}
	return claims, nil
}

// VerifyKind verifies tokenString and additionally requires the given kind.
func (issuer *TokenIssuer) VerifyKind(tokenString string, kind TokenKind) (*Claims, error) {
	claims, err := issuer.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("token.verify: expected %s token: %w", kind, ErrInvalidToken)
	}
	return claims, nil
}
