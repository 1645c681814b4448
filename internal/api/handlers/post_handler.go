package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mehulsinha/postpilot/internal/models"
	"github.com/mehulsinha/postpilot/internal/service"
	"github.com/mehulsinha/postpilot/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(s service.PostService) *PostHandler {
	return &PostHandler{s: s}
}

func (h *PostHandler) EnhancePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.EnhanceRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, err := h.s.EnhancePost(c.Context(), userID, req.Content, req.Platforms)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"postId":           post.ID,
		"originalContent":  post.OriginalContent,
		"enhanced_content": post.EnhancedContent,
		"platforms":        post.Platforms,
		"status":           post.Status,
		"metadata":         post.Metadata,
	})
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	outcome, err := h.s.PublishPost(c.Context(), userID, req.PostID, req.Content, req.Platforms)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": outcome.Message,
		"success": outcome.Success,
		"results": outcome.Results,
		"postId":  req.PostID,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	limit := c.QueryInt("limit", 20)
	status := models.PostStatus(c.Query("status"))

	if status != "" && !status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status filter",
		})
	}

	var createdBefore *time.Time
	if before := c.Query("before"); before != "" {
		parsed, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "before must be an RFC 3339 timestamp",
			})
		}
		createdBefore = &parsed
	}

	posts, err := h.s.GetPostHistory(c.Context(), userID, limit, createdBefore, status)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.Params("id")

	post, err := h.s.GetPost(c.Context(), userID, postID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.Params("id")

	if err := h.s.DeletePost(c.Context(), userID, postID); err != nil {
		return serviceError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) GetStats(c *fiber.Ctx) error {
	userID := GetUserID(c)

	stats, err := h.s.GetStats(c.Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}
