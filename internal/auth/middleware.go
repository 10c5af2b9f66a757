package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Username string
	Role     domain.Role
}

// AccessFilter resolves bearer tokens into principals. It never rejects a
// request: a missing or invalid token just leaves the request anonymous and
// the route guards decide.
type AccessFilter struct {
	tokens *TokenManager
}

// NewAccessFilter constructs the filter.
func NewAccessFilter(tokens *TokenManager) *AccessFilter {
	return &AccessFilter{tokens: tokens}
}

// Handle attaches a Principal when the request carries a valid access token.
func (f *AccessFilter) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Next()
	}

	claims, err := f.tokens.ParseAccessToken(token)
	if err != nil {
		return c.Next()
	}

	c.Locals(principalKey, &Principal{Username: claims.Subject, Role: claims.Role})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
