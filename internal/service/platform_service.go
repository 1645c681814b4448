package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/mehulsinha/postpilot/configs"
	"github.com/mehulsinha/postpilot/internal/models"
	"github.com/mehulsinha/postpilot/internal/repository"
	"github.com/mehulsinha/postpilot/internal/transfer"
	"github.com/mehulsinha/postpilot/pkg/utils"
)

// PlatformService manages a user's platform connections: the OAuth handshake,
// the status projection and disconnects.
type PlatformService interface {
	GetAuthURL(ctx context.Context, platform, state string) (string, error)
	HandleCallback(ctx context.Context, userID, platform, code string) (*models.PlatformConnection, error)
	Status(ctx context.Context, userID string) (map[string]transfer.PlatformStatus, error)
	Disconnect(ctx context.Context, userID, platform string) error
}

type platformService struct {
	clients       PlatformRegistry
	pc            repository.PlatformConnectionRepository
	ur            repository.UserRepository
	encryptionKey []byte
}

func NewPlatformService(cfg config.Config, clients PlatformRegistry, pc repository.PlatformConnectionRepository, ur repository.UserRepository) PlatformService {
	return &platformService{
		clients:       clients,
		pc:            pc,
		ur:            ur,
		encryptionKey: []byte(cfg.EncryptionKey),
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platform, state string) (string, error) {
	client, ok := s.clients[strings.ToLower(platform)]
	if !ok {
		return "", fmt.Errorf("%w: unknown platform %q", ErrValidation, platform)
	}
	return client.AuthURL(state), nil
}

// HandleCallback finishes the OAuth flow: exchanges the code, fetches the
// remote profile and upserts the connection with tokens encrypted at rest.
// The denormalized user flag is updated afterwards; the connection row is the
// source of truth.
func (s *platformService) HandleCallback(ctx context.Context, userID, platform, code string) (*models.PlatformConnection, error) {
	platform = strings.ToLower(platform)
	client, ok := s.clients[platform]
	if !ok {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrValidation, platform)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is empty", ErrValidation)
	}

	bundle, err := client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := client.FetchProfile(ctx, bundle.AccessToken)
	if err != nil {
		return nil, err
	}

	accessToken, err := utils.Encrypt([]byte(bundle.AccessToken), s.encryptionKey)
	if err != nil {
		return nil, err
	}
	refreshToken := ""
	if bundle.RefreshToken != "" {
		if refreshToken, err = utils.Encrypt([]byte(bundle.RefreshToken), s.encryptionKey); err != nil {
			return nil, err
		}
	}

	connection := &models.PlatformConnection{
		UserID:       userID,
		Platform:     platform,
		Connected:    true,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ProfileID:    profile.ID,
		ProfileName:  profile.Name,
		Username:     profile.Username,
		AvatarURL:    profile.AvatarURL,
	}
	if bundle.ExpiresIn > 0 {
		expiresAt := time.Now().Add(time.Duration(bundle.ExpiresIn) * time.Second)
		connection.TokenExpiresAt = &expiresAt
	}

	if err := s.pc.Upsert(ctx, connection); err != nil {
		return nil, err
	}

	if err := s.ur.SetPlatformConnected(ctx, userID, platform, true); err != nil {
		slog.Info("could not update denormalized platform flag", "user_id", userID, "error", err.Error())
	}

	return s.pc.GetByUserAndPlatform(ctx, userID, platform)
}

func (s *platformService) Status(ctx context.Context, userID string) (map[string]transfer.PlatformStatus, error) {
	status := map[string]transfer.PlatformStatus{
		models.PlatformLinkedin: {Connected: false},
		models.PlatformTwitter:  {Connected: false},
	}

	connections, err := s.pc.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, conn := range connections {
		entry := transfer.PlatformStatus{Connected: conn.Connected}
		if conn.Connected {
			entry.Profile = &transfer.ProfileSummary{
				Name:      conn.ProfileName,
				Username:  conn.Username,
				AvatarURL: conn.AvatarURL,
			}
		}
		status[strings.ToLower(conn.Platform)] = entry
	}
	return status, nil
}

// Disconnect clears credentials but keeps the connection row, then lowers the
// denormalized flag on the user.
func (s *platformService) Disconnect(ctx context.Context, userID, platform string) error {
	platform = strings.ToLower(platform)
	if !models.KnownPlatform(platform) {
		return fmt.Errorf("%w: unknown platform %q", ErrValidation, platform)
	}

	if err := s.pc.Disconnect(ctx, userID, platform); err != nil {
		return err
	}

	if err := s.ur.SetPlatformConnected(ctx, userID, platform, false); err != nil {
		slog.Info("could not update denormalized platform flag", "user_id", userID, "error", err.Error())
	}

	slog.Info("platform disconnected", "user_id", userID, "platform", platform)
	return nil
}
