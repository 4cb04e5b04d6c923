package handler

import (
	"errors"
	"time"

	"go-stock-resi/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		stockErr      *service.InsufficientStockError
		persistErr    *service.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "field": validationErr.Field})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     err.Error(),
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case errors.As(err, &persistErr):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error(), "partial": persistErr.Partial})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
}

// Helper untuk parse UUID dari path param
func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return &d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, &service.ValidationError{Field: "expiration_date", Reason: "must be a date like 2006-01-02"}
	}
	return &d, nil
}
