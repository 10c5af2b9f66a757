package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

const (
	defaultAccessTTL  = 60 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenKind separates access and refresh tokens inside the typ claim.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	errUnexpectedSigningMethod = errors.New("unexpected signing method")
	errInvalidClaims           = errors.New("invalid token claims")
)

// Claims describes JWT payload.
type Claims struct {
	Role domain.Role `json:"role,omitempty"`
	Kind TokenKind   `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager handles issuing and validating JWT tokens.
// Access and refresh tokens are signed with different secrets.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces the wall clock used for issuing and validating.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	tm := &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// RefreshTTL is the horizon used for refresh tokens and their store records.
func (tm *TokenManager) RefreshTTL() time.Duration {
	return tm.refreshTTL
}

// CreateAccessToken signs a short-lived token carrying subject and role.
func (tm *TokenManager) CreateAccessToken(subject string, role domain.Role) (string, time.Time, error) {
	return tm.sign(TokenKindAccess, subject, role, tm.accessSecret, tm.accessTTL)
}

// CreateRefreshToken signs a long-lived token carrying only the subject.
func (tm *TokenManager) CreateRefreshToken(subject string) (string, time.Time, error) {
	return tm.sign(TokenKindRefresh, subject, "", tm.refreshSecret, tm.refreshTTL)
}

// ValidateAccessToken reports whether token is a well-signed, unexpired access token.
func (tm *TokenManager) ValidateAccessToken(token string) bool {
	_, err := tm.ParseAccessToken(token)
	return err == nil
}

// ValidateRefreshToken reports whether token is a well-signed, unexpired refresh token.
func (tm *TokenManager) ValidateRefreshToken(token string) bool {
	_, err := tm.parse(token, TokenKindRefresh, tm.refreshSecret)
	return err == nil
}

// ParseAccessToken validates an access token and returns its claims.
func (tm *TokenManager) ParseAccessToken(token string) (*Claims, error) {
	return tm.parse(token, TokenKindAccess, tm.accessSecret)
}

// ExtractSubject returns the username of a valid access token, or "".
func (tm *TokenManager) ExtractSubject(token string) string {
	claims, err := tm.ParseAccessToken(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// ExtractRole returns the role of a valid access token, or "".
func (tm *TokenManager) ExtractRole(token string) domain.Role {
	claims, err := tm.ParseAccessToken(token)
	if err != nil {
		return ""
	}
	return claims.Role
}

func (tm *TokenManager) sign(kind TokenKind, subject string, role domain.Role, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (tm *TokenManager) parse(tokenStr string, kind TokenKind, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errUnexpectedSigningMethod
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Kind != kind || claims.Subject == "" {
		return nil, errInvalidClaims
	}
	return claims, nil
}
