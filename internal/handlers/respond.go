package handlers

import (
	"errors"
	"fmt"
	"log"

	"partstore/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto the uniform error envelope
// { "success": false, "error": "<msg>" }. Business-rule violations are 400,
// unknown ids are 404, anything unexpected degrades to a generic 500 without
// leaking internals.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
		message = err.Error()
	case errors.Is(err, services.ErrOutOfStock),
		errors.Is(err, services.ErrQuantityInvalid),
		errors.Is(err, services.ErrMaxQuantityExceeded),
		errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrPromoExpired),
		errors.Is(err, services.ErrMinOrderNotMet),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidOrderStatus):
		status = fiber.StatusBadRequest
		message = err.Error()
	default:
		log.Printf("Unexpected error handling %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// respondBadRequest reports a malformed or invalid request body.
func respondBadRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// respondValidationError flattens validator failures into the envelope.
func respondValidationError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		message := "validation failed:"
		for _, e := range validationErrors {
			message += fmt.Sprintf(" field '%s' failed on the '%s' tag;", e.Field(), e.Tag())
		}
		return respondBadRequest(c, message)
	}
	return respondBadRequest(c, "validation failed")
}

// respondAck acknowledges a successful mutation.
func respondAck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true})
}
