package handlers

import (
	"errors"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// mapAuthError translates service errors into HTTP-facing DomainErrors.
// Unknown errors pass through and surface as 500.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		return errorutil.NewConflict("DUPLICATE_USERNAME", err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		return errorutil.NewConflict("DUPLICATE_EMAIL", err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return errorutil.NewUnauthorizedCode("INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		return errorutil.NewUnauthorizedCode("INVALID_TOKEN", err.Error())
	case errors.Is(err, domain.ErrTokenNotFound):
		return errorutil.NewUnauthorizedCode("TOKEN_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrTokenExpired):
		return errorutil.NewUnauthorizedCode("TOKEN_EXPIRED", err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		return errorutil.NewNotFound("USER_NOT_FOUND", err.Error())
	default:
		return err
	}
}
