package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/fleetledger/internal/apperr"
)

// ErrorHandler renders every failed request as {"success": false, "message": ...}.
// Domain errors keep their message; anything unrecognised is logged and
// reported as a generic server error.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
		}

		status := apperr.Status(err)
		message := err.Error()
		switch status {
		case fiber.StatusInternalServerError:
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			message = "server error"
		case fiber.StatusUnauthorized:
			// token parse details stay server-side
			if errors.Is(err, apperr.ErrUnauthenticated) {
				message = apperr.ErrUnauthenticated.Error()
			}
		}

		return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
	}
}
