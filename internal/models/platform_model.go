package models

import "time"

const (
	PlatformLinkedin = "linkedin"
	PlatformTwitter  = "twitter"
)

// KnownPlatform reports whether the given (already lower-cased) platform name
// is one the system can publish to.
func KnownPlatform(name string) bool {
	return name == PlatformLinkedin || name == PlatformTwitter
}

// PlatformConnection is a user's OAuth connection to one social platform.
// Exactly one row exists per (user, platform); disconnecting clears the
// credential columns but keeps the row with connected=false.
type PlatformConnection struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	Platform       string     `db:"platform" json:"platform"`
	Connected      bool       `db:"connected" json:"connected"`
	AccessToken    string     `db:"access_token" json:"-"`
	RefreshToken   string     `db:"refresh_token" json:"-"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at,omitempty"`
	ProfileID      string     `db:"profile_id" json:"profile_id"`
	ProfileName    string     `db:"profile_name" json:"profile_name"`
	Username       string     `db:"username" json:"username"`
	AvatarURL      string     `db:"avatar_url" json:"avatar_url"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
