package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/velora/internal/repository"
	"github.com/example/velora/internal/services"
)

// mapServiceError translates service and repository errors into HTTP errors.
// Anything unrecognized bubbles up to the global error handler as a 500.
func mapServiceError(err error) error {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		return fiber.NewError(fiber.StatusBadRequest, validation.Message)
	case errors.Is(err, repository.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrConcurrencyConflict):
		return fiber.NewError(fiber.StatusConflict, "request was modified concurrently, reload and retry")
	default:
		return err
	}
}
