package domain

import "errors"

// Auth failures surfaced to callers.
var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrTokenNotFound      = errors.New("refresh token not found")
	ErrTokenExpired       = errors.New("refresh token expired")
	ErrUserNotFound       = errors.New("user not found")
)

// ErrNotFound is returned by stores when no row matches.
var ErrNotFound = errors.New("not found")
