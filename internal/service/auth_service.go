package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	config "github.com/mehulsinha/postpilot/configs"
	"github.com/mehulsinha/postpilot/internal/models"
	"github.com/mehulsinha/postpilot/internal/repository"
	"github.com/mehulsinha/postpilot/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// AuthService completes the identity provider's OAuth flow and maps the
// external identity onto a local user row, creating it on first login.
type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (string, error)
}

type authService struct {
	oauth *oauth2.Config
	u     repository.UserRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		u: u,
	}
}

func (s *authService) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

func (s *authService) LoginCallback(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: authorization code is empty", ErrValidation)
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" || s.oauth.RedirectURL == "" {
		return "", errors.New("oauth2 configuration is incomplete")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("%w: google token exchange: %v", ErrExternalService, err)
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return "", err
	}

	user, exists, err := s.u.GetByGoogleID(ctx, userInfo.ID)
	if err != nil {
		return "", err
	}
	if exists {
		return user.ID, nil
	}

	displayName := userInfo.Name
	if displayName == "" {
		displayName = strings.SplitN(userInfo.Email, "@", 2)[0]
	}

	userID, err := s.u.Create(ctx, &models.User{
		GoogleID:    userInfo.ID,
		Email:       userInfo.Email,
		DisplayName: displayName,
		PhotoURL:    userInfo.Picture,
	})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	slog.Info("new user created", "email", userInfo.Email)
	return userID, nil
}

func (s *authService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*transfer.GoogleUserInfo, error) {
	svc, err := googleoauth.NewService(ctx, option.WithHTTPClient(s.oauth.Client(ctx, token)))
	if err != nil {
		return nil, err
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: google userinfo: %v", ErrExternalService, err)
	}

	return &transfer.GoogleUserInfo{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
