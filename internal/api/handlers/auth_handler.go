package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/mehulsinha/postpilot/configs"
	"github.com/mehulsinha/postpilot/internal/service"
	"github.com/mehulsinha/postpilot/pkg/utils"
)

type AuthHandler struct {
	cfg config.Config
	s   service.AuthService
}

func NewAuthHandler(cfg config.Config, s service.AuthService) *AuthHandler {
	return &AuthHandler{cfg: cfg, s: s}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	return c.Redirect(h.s.LoginURL("login"), fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")

	userID, err := h.s.LoginCallback(c.Context(), code)
	if err != nil {
		return serviceError(c, err)
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, userID, 7*24*time.Hour)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to create session",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HTTPOnly: true,
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}
