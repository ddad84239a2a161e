package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storerate/internal/apperrors"
	"storerate/internal/services"
)

// ClaimsKey is the fiber Locals key holding the caller's *services.Claims.
const ClaimsKey = "claims"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	VerifyToken(token string) (*services.Claims, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// Failures are returned as *apperrors.AppError for the app's error handler.
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperrors.NewAuthentication("Access token required", nil)
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return apperrors.NewAuthentication("Authorization header format must be 'Bearer <token>'", nil)
		}

		claims, err := verifier.VerifyToken(strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// CurrentClaims returns the claims stored by AuthRequired, or nil.
func CurrentClaims(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(ClaimsKey).(*services.Claims)
	return claims
}
