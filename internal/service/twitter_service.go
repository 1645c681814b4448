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
)

const (
	twitterAuthURL   = "https://twitter.com/i/oauth2/authorize"
	twitterTokenURL  = "https://api.twitter.com/2/oauth2/token"
	twitterMeURL     = "https://api.twitter.com/2/users/me?user.fields=profile_image_url"
	twitterTweetsURL = "https://api.twitter.com/2/tweets"
)

type TwitterService struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	verifier   string
}

func NewTwitterService(cfg config.Config) *TwitterService {
	return &TwitterService{
		oauth: &oauth2.Config{
			ClientID:     cfg.TwitterClientID,
			ClientSecret: cfg.TwitterClientSecret,
			RedirectURL:  cfg.TwitterRedirectURI,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  twitterAuthURL,
				TokenURL: twitterTokenURL,
			},
		},
		httpClient: &http.Client{Timeout: 15 * time.Second},
		verifier:   oauth2.GenerateVerifier(),
	}
}

func (s *TwitterService) Name() string {
	return models.PlatformTwitter
}

func (s *TwitterService) AuthURL(state string) string {
	// X's OAuth 2.0 flow requires PKCE on the authorize request.
	return s.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(s.verifier))
}

func (s *TwitterService) ExchangeCode(ctx context.Context, code string) (*transfer.TokenBundle, error) {
	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(s.verifier))
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: twitter token exchange: %v", ErrExternalService, err)
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

func (s *TwitterService) FetchProfile(ctx context.Context, accessToken string) (*transfer.PlatformProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, twitterMeURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: twitter users/me: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: twitter users/me status %d", ErrExternalService, resp.StatusCode)
	}

	var raw struct {
		Data struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	return &transfer.PlatformProfile{
		ID:        raw.Data.ID,
		Name:      raw.Data.Name,
		Username:  raw.Data.Username,
		AvatarURL: raw.Data.ProfileImageURL,
	}, nil
}

// Publish creates a tweet and returns its id.
func (s *TwitterService) Publish(ctx context.Context, cred transfer.PlatformCredential, content string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterTweetsURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("%w: twitter create tweet: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: twitter create tweet status %d: %s", ErrExternalService, resp.StatusCode, detail)
	}

	var raw struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", err
	}
	if raw.Data.ID == "" {
		return "", fmt.Errorf("%w: twitter create tweet returned no id", ErrExternalService)
	}
	return raw.Data.ID, nil
}

func (s *TwitterService) PostURL(remoteID string) string {
	return "https://twitter.com/user/status/" + remoteID
}
