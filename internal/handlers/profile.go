package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/fleetledger/internal/middleware"
	"github.com/example/fleetledger/internal/signup"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	issuer *signup.Issuer
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(issuer *signup.Issuer) *ProfileHandler {
	return &ProfileHandler{issuer: issuer}
}

// GetProfile returns authenticated user profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}

	user, err := h.issuer.CurrentUser(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": user})
}
