package handlers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/fleetledger/internal/apperr"
	"github.com/example/fleetledger/internal/models"
)

// Request bodies arrive as JSON or multipart forms. Numbers use json.Number so
// both `12.5` and `"12.5"` are accepted; conversion happens in the parse helpers.

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func parseAmount(field string, raw json.Number) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, apperr.Validation("%s must be a number", field)
	}
	return decimal.NewNullDecimal(d), nil
}

func parseInt(field string, raw json.Number) (int, error) {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Validation("%s must be a whole number", field)
	}
	return n, nil
}

func parseDate(field, raw string) (models.Date, error) {
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, apperr.Validation("%s: %v", field, err)
	}
	return d, nil
}

// parseRecordDate reads a record date; empty means "now" and is left zero.
func parseRecordDate(raw string, loc *time.Location) (time.Time, error) {
	d, err := parseDate("date", raw)
	if err != nil || d.IsZero() {
		return time.Time{}, err
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc), nil
}
