package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// AdminConfirmation is the body of GET /api/user/admin.
const AdminConfirmation = "admin-only endpoint reached"

// UsersHandler serves endpoints for authenticated callers.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Me handles GET /api/user/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}

	user, err := h.auth.CurrentUser(c.UserContext(), principal.Username)
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Admin handles GET /api/user/admin.
func (h *UsersHandler) Admin(c *fiber.Ctx) error {
	return c.SendString(AdminConfirmation)
}
