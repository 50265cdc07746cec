package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/fleetledger/internal/apperr"
	"github.com/example/fleetledger/internal/middleware"
	"github.com/example/fleetledger/internal/services"
)

// NotifyHandler lets an operator send a text to a phone number.
type NotifyHandler struct {
	notifier services.Notifier
}

func NewNotifyHandler(notifier services.Notifier) *NotifyHandler {
	return &NotifyHandler{notifier: notifier}
}

type notifyRequest struct {
	Mobile  string `json:"mobile"`
	Message string `json:"message"`
}

func (h *NotifyHandler) Send(c *fiber.Ctx) error {
	if _, err := middleware.CurrentUserID(c); err != nil {
		return err
	}

	var req notifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Message = strings.TrimSpace(req.Message)
	if req.Mobile == "" || req.Message == "" {
		return apperr.Validation("mobile and message are required")
	}

	if err := h.notifier.Send(c.UserContext(), services.Message{To: req.Mobile, Text: req.Message}); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "Notification sent"})
}
