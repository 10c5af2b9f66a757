package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// Allow is the authorization policy: a caller may act when it holds exactly
// the required role.
func Allow(callerRole, required domain.Role) bool {
	return callerRole != "" && callerRole == required
}

// RequireAuthenticated rejects anonymous callers with 401.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return errorutil.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole rejects anonymous callers with 401 and callers without the role with 403.
func RequireRole(required domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return errorutil.NewUnauthorized("authentication required")
		}
		if !Allow(principal.Role, required) {
			return errorutil.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
