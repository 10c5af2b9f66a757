package handlers

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// RefreshTokenHeader carries the refresh token on POST /api/auth/refresh.
const RefreshTokenHeader = "Refresh-Token"

// AuthHandler exposes the token lifecycle endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	if _, err := h.auth.Signup(c.UserContext(), req.Username, req.Password, req.Email); err != nil {
		return mapAuthError(err)
	}
	return c.JSON(dto.MessageResponse{Message: "signup completed"})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	pair, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(dto.NewTokenResponse(pair))
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Get(RefreshTokenHeader))
	if token == "" {
		return errorutil.NewValidationError("Refresh-Token header required", nil)
	}

	pair, err := h.auth.RefreshAccessToken(c.UserContext(), token)
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(dto.NewTokenResponse(pair))
}

// Logout handles POST /api/auth/logout?username=.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		return errorutil.NewValidationError("username query parameter required", nil)
	}

	if err := h.auth.Logout(c.UserContext(), username); err != nil {
		return mapAuthError(err)
	}
	return c.JSON(dto.MessageResponse{Message: "logged out"})
}

// validationError renders ozzo field errors as details keyed by JSON field name.
func validationError(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		details[field] = fieldErr.Error()
	}
	return errorutil.NewValidationError("validation failed", details)
}
