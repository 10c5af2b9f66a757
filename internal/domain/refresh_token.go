package domain

import "time"

// RefreshToken is the single live refresh token record of a user.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRefreshToken creates a record for userID.
func NewRefreshToken(userID, token string, expiresAt time.Time) *RefreshToken {
	return &RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
}

// IsExpired reports whether the record is past its expiry at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Rotate overwrites the token value and expiry in place.
func (t *RefreshToken) Rotate(token string, expiresAt time.Time) {
	t.Token = token
	t.ExpiresAt = expiresAt
}

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// NewTokenPair builds a Bearer pair.
func NewTokenPair(access, refresh string) *TokenPair {
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer}
}
