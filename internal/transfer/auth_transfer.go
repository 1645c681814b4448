package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// PlatformStatus is the per-platform connection summary exposed to clients.
type PlatformStatus struct {
	Connected bool            `json:"connected"`
	Profile   *ProfileSummary `json:"profile,omitempty"`
}

type ProfileSummary struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}
