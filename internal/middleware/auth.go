package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/fleetledger/internal/apperr"
)

const userContextKey = "currentUserID"

// Authenticator resolves a bearer token to a user ID.
type Authenticator interface {
	Authenticate(token string) (uuid.UUID, error)
}

// AuthMiddleware validates bearer tokens and loads the authenticated user ID into context.
func AuthMiddleware(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)

		var token string
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return fmt.Errorf("%w: invalid authorization header", apperr.ErrUnauthenticated)
			}
			token = strings.TrimSpace(parts[1])
		}

		userID, err := auth.Authenticate(token)
		if err != nil {
			return err
		}

		c.Locals(userContextKey, userID)
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(userContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// CurrentUserID is GetCurrentUserID for handlers mounted behind AuthMiddleware.
func CurrentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, apperr.ErrUnauthenticated
	}
	return id, nil
}
