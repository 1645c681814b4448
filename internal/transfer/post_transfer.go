package transfer

import "github.com/mehulsinha/postpilot/internal/models"

type EnhanceRequest struct {
	Content   string   `json:"content"`
	Platforms []string `json:"platforms"`
}

type PublishRequest struct {
	PostID    string   `json:"post_id"`
	Content   string   `json:"content"`
	Platforms []string `json:"platforms"`
}

type ScheduleRequest struct {
	PostID      string `json:"post_id"`
	ScheduledAt string `json:"scheduled_at"` // RFC 3339
}

type RescheduleRequest struct {
	ScheduledAt string `json:"scheduled_at"` // RFC 3339
}

// PublishOutcome is what the lifecycle service returns from an immediate
// publish: the per-platform results plus an overall verdict.
type PublishOutcome struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Results models.PublishResults `json:"results"`
}

// DispatchOutcome is one entry of the per-post outcome list returned by the
// due-post dispatch loop.
type DispatchOutcome struct {
	PostID  string                 `json:"postId"`
	Success bool                   `json:"success"`
	Result  *PublishDispatchResult `json:"result,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
