package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/northwind-service/internal/domain"
)

const identityKey = "auth_identity"

// Verifier is the token check the gate depends on.
type Verifier interface {
	Verify(token string) (*domain.Identity, error)
}

// Gate attaches the bearer identity to the request. It never rejects: a missing,
// malformed or invalid token leaves the request anonymous and the Policy decides.
type Gate struct {
	tokens Verifier
	logger *zap.Logger
}

// NewGate constructs the gate middleware.
func NewGate(tokens Verifier, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, logger: logger}
}

// Handle resolves the identity for the current request.
func (g *Gate) Handle(c *fiber.Ctx) error {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Next()
	}

	identity, err := g.tokens.Verify(token)
	if err != nil {
		g.logger.Debug("bearer token rejected; continuing anonymously",
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Next()
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// IdentityFromContext retrieves the identity attached by the gate, if any.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*domain.Identity)
	return identity, ok && identity != nil
}
