package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/northwind-service/internal/api/dto"
	"github.com/spec-kit/northwind-service/internal/auth"
	"github.com/spec-kit/northwind-service/internal/service"
	apperrors "github.com/spec-kit/northwind-service/pkg/util/errorutil"
)

// AuthHandler exposes login and token refresh.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	token, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrAccountDisabled) {
			return apperrors.NewUnauthorized("Unauthorized")
		}
		return err
	}

	return c.JSON(dto.TokenResponse{AccessToken: token, TokenType: dto.TokenTypeBearer})
}

// Refresh handles POST /api/auth/refresh. The route is public, so the bearer token
// attached by the gate is checked here.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}

	token, err := h.auth.Refresh(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenResponse{AccessToken: token, TokenType: dto.TokenTypeBearer})
}
