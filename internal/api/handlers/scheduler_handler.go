package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mehulsinha/postpilot/internal/service"
	"github.com/mehulsinha/postpilot/internal/transfer"
)

type SchedulerHandler struct {
	s service.SchedulerService
}

func NewSchedulerHandler(s service.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{s: s}
}

func (h *SchedulerHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduled_at must be an RFC 3339 timestamp",
		})
	}

	post, err := h.s.SchedulePost(c.Context(), userID, req.PostID, scheduledAt)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"post":    post,
	})
}

func (h *SchedulerHandler) GetScheduledPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	posts, err := h.s.GetScheduledPosts(c.Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *SchedulerHandler) CancelScheduledPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.Params("id")

	if err := h.s.CancelScheduledPost(c.Context(), userID, postID); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Schedule cancelled",
	})
}

func (h *SchedulerHandler) ReschedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.Params("id")

	var req transfer.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduled_at must be an RFC 3339 timestamp",
		})
	}

	post, err := h.s.ReschedulePost(c.Context(), userID, postID, scheduledAt)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post rescheduled",
		"post":    post,
	})
}

// ProcessScheduledPosts is the endpoint the automation workflow (or an
// operator) hits to trigger the due-post dispatch loop.
func (h *SchedulerHandler) ProcessScheduledPosts(c *fiber.Ctx) error {
	outcomes, err := h.s.ProcessScheduledPosts(c.Context())
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"processed": len(outcomes),
		"results":   outcomes,
	})
}
