package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mehulsinha/postpilot/internal/service"
)

type PlatformHandler struct {
	s service.PlatformService
}

func NewPlatformHandler(s service.PlatformService) *PlatformHandler {
	return &PlatformHandler{s: s}
}

func (h *PlatformHandler) GetStatus(c *fiber.Ctx) error {
	userID := GetUserID(c)

	status, err := h.s.Status(c.Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *PlatformHandler) InitAuth(c *fiber.Ctx) error {
	platform := c.Params("platform")

	authURL, err := h.s.GetAuthURL(c.Context(), platform, GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"authUrl": authURL,
	})
}

func (h *PlatformHandler) AuthCallback(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Params("platform")

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	connection, err := h.s.HandleCallback(c.Context(), userID, platform, req.Code)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"connected": true,
		"platform":  connection.Platform,
	})
}

func (h *PlatformHandler) DisconnectPlatform(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Params("platform")

	if err := h.s.Disconnect(c.Context(), userID, platform); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"platform":  platform,
		"connected": false,
	})
}
