package transfer

import "github.com/mehulsinha/postpilot/internal/models"

// PlatformCredential is the token bundle forwarded to the automation workflow
// so it can publish on the user's behalf.
type PlatformCredential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ProfileID    string `json:"profileId,omitempty"`
	ProfileName  string `json:"profileName,omitempty"`
}

// ScheduleNotification announces a newly scheduled post to the automation
// webhook. Delivery is best effort; the workflow also polls for due posts.
type ScheduleNotification struct {
	PostID      string   `json:"post_id"`
	UserID      string   `json:"user_id"`
	ScheduledAt string   `json:"scheduled_at"`
	Platforms   []string `json:"platforms"`
}

// PublishDispatch asks the automation webhook to publish a post now.
type PublishDispatch struct {
	PostID      string                        `json:"post_id"`
	UserID      string                        `json:"user_id"`
	Content     string                        `json:"content"`
	Platforms   []string                      `json:"platforms"`
	Credentials map[string]PlatformCredential `json:"credentials"`
}

// PublishDispatchResult is the automation webhook's synchronous response to a
// publish dispatch.
type PublishDispatchResult struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Results models.PublishResults `json:"results"`
}

// Enhancement is the AI enhancer's response contract.
type Enhancement struct {
	EnhancedContent   string `json:"enhanced_content"`
	Model             string `json:"model"`
	EnhancementTimeMs int64  `json:"enhancement_time_ms"`
}

// TokenBundle is what a platform OAuth code exchange yields.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds, zero when the platform does not report expiry
}

// PlatformProfile identifies the remote account a connection belongs to.
type PlatformProfile struct {
	ID        string
	Name      string
	Username  string
	AvatarURL string
}
