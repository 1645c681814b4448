package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mehulsinha/postpilot/internal/service"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// serviceError maps service sentinel errors onto HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrExternalService):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
