package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	config "github.com/mehulsinha/postpilot/configs"
	"github.com/mehulsinha/postpilot/internal/models"
	"github.com/mehulsinha/postpilot/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const (
	linkedinUserinfoURL = "https://api.linkedin.com/v2/userinfo"
	linkedinUGCPostsURL = "https://api.linkedin.com/v2/ugcPosts"
)

type LinkedinService struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

func NewLinkedinService(cfg config.Config) *LinkedinService {
	return &LinkedinService{
		oauth: &oauth2.Config{
			ClientID:     cfg.LinkedinClientID,
			ClientSecret: cfg.LinkedinClientSecret,
			RedirectURL:  cfg.LinkedinRedirectURI,
			Scopes:       []string{"openid", "profile", "w_member_social", "email"},
			Endpoint:     linkedin.Endpoint,
		},
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *LinkedinService) Name() string {
	return models.PlatformLinkedin
}

func (s *LinkedinService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

func (s *LinkedinService) ExchangeCode(ctx context.Context, code string) (*transfer.TokenBundle, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: linkedin token exchange: %v", ErrExternalService, err)
	}

	bundle := &transfer.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		bundle.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	return bundle, nil
}

func (s *LinkedinService) FetchProfile(ctx context.Context, accessToken string) (*transfer.PlatformProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, linkedinUserinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: linkedin userinfo: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: linkedin userinfo status %d", ErrExternalService, resp.StatusCode)
	}

	var raw struct {
		Sub        string `json:"sub"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Email      string `json:"email"`
		Picture    string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	name := raw.Name
	if name == "" {
		name = raw.GivenName + " " + raw.FamilyName
	}

	return &transfer.PlatformProfile{
		ID:        raw.Sub,
		Name:      name,
		Username:  raw.Email,
		AvatarURL: raw.Picture,
	}, nil
}

// Publish creates a public text share authored by the connected member and
// returns the remote share id.
func (s *LinkedinService) Publish(ctx context.Context, cred transfer.PlatformCredential, content string) (string, error) {
	body := map[string]interface{}{
		"author":         "urn:li:person:" + cred.ProfileID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary":    map[string]string{"text": content},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinUGCPostsURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("%w: linkedin share: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: linkedin share status %d: %s", ErrExternalService, resp.StatusCode, detail)
	}

	// LinkedIn returns the share id both in the body and the x-restli-id header.
	var raw struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil || raw.ID == "" {
		if headerID := resp.Header.Get("x-restli-id"); headerID != "" {
			return headerID, nil
		}
		return "", fmt.Errorf("%w: linkedin share returned no id", ErrExternalService)
	}
	return raw.ID, nil
}

func (s *LinkedinService) PostURL(remoteID string) string {
	return "https://www.linkedin.com/feed/update/" + remoteID
}
