package service

import (
	"context"
	"errors"
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

// PostService is the post lifecycle front door: AI enhancement, immediate
// publishing and the read-side projections.
type PostService interface {
	EnhancePost(ctx context.Context, userID, content string, platforms []string) (*models.Post, error)
	PublishPost(ctx context.Context, userID, postID, content string, platforms []string) (*transfer.PublishOutcome, error)
	GetPost(ctx context.Context, userID, postID string) (*models.Post, error)
	GetPostHistory(ctx context.Context, userID string, limit int, createdBefore *time.Time, status models.PostStatus) ([]*models.Post, error)
	DeletePost(ctx context.Context, userID, postID string) error
	GetStats(ctx context.Context, userID string) (*models.PostStats, error)
}

type postService struct {
	pr            repository.PostRepository
	pc            repository.PlatformConnectionRepository
	ai            AIService
	clients       PlatformRegistry
	automation    AutomationClient
	encryptionKey []byte
}

func NewPostService(
	cfg config.Config,
	pr repository.PostRepository,
	pc repository.PlatformConnectionRepository,
	ai AIService,
	clients PlatformRegistry,
	automation AutomationClient) PostService {
	return &postService{
		pr:            pr,
		pc:            pc,
		ai:            ai,
		clients:       clients,
		automation:    automation,
		encryptionKey: []byte(cfg.EncryptionKey),
	}
}

// EnhancePost creates the draft, runs the AI step and stores the result. When
// enhancement fails the draft is marked failed with its original content
// untouched, and the failure propagates to the caller.
func (s *postService) EnhancePost(ctx context.Context, userID, content string, platforms []string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrValidation)
	}
	platforms = normalizePlatforms(platforms)
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: at least one platform is required", ErrValidation)
	}
	for _, p := range platforms {
		if !models.KnownPlatform(p) {
			return nil, fmt.Errorf("%w: unknown platform %q", ErrValidation, p)
		}
	}

	postID, err := s.pr.Create(ctx, &models.Post{
		UserID:          userID,
		OriginalContent: content,
		Platforms:       platforms,
	})
	if err != nil {
		return nil, err
	}

	enhancement, err := s.ai.EnhanceContent(ctx, content, platforms, userID)
	if err != nil {
		if statusErr := s.pr.UpdateStatus(ctx, postID, models.PostStatusFailed); statusErr != nil {
			slog.Error("failed to mark post failed after enhancement error", "post_id", postID, "error", statusErr.Error())
		}
		return nil, err
	}

	meta := models.PostMetadata{
		CharacterCount:    len(content),
		EnhancementTimeMs: enhancement.EnhancementTimeMs,
		Model:             enhancement.Model,
	}
	if err := s.pr.UpdateEnhanced(ctx, postID, enhancement.EnhancedContent, meta); err != nil {
		return nil, err
	}

	return s.pr.GetByID(ctx, postID)
}

// PublishPost publishes immediately through the direct platform clients. A
// platform the user never connected gets a "Not connected" entry without
// aborting the others. When not a single platform succeeded, the automation
// webhook is tried once as a salvage before the failure is recorded.
func (s *postService) PublishPost(ctx context.Context, userID, postID, content string, platforms []string) (*transfer.PublishOutcome, error) {
	var post *models.Post
	if postID != "" {
		var err error
		post, err = s.pr.GetByID(ctx, postID)
		if err != nil {
			return nil, err
		}
		if post == nil || post.UserID != userID {
			return nil, fmt.Errorf("%w: post", ErrNotFound)
		}
		if content == "" {
			content = post.Content()
		}
		if len(platforms) == 0 {
			platforms = post.Platforms
		}
	}

	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: no content provided for publishing", ErrValidation)
	}
	platforms = normalizePlatforms(platforms)
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: at least one platform is required", ErrValidation)
	}

	connections, err := s.connectionsByPlatform(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := models.PublishResults{}
	for _, platform := range platforms {
		client, hasClient := s.clients[platform]
		conn, hasConn := connections[platform]
		if !hasClient || !hasConn {
			results[platform] = models.PublishResult{Success: false, Error: "Not connected"}
			continue
		}

		cred := transfer.PlatformCredential{
			AccessToken:  s.decryptToken(conn.AccessToken),
			RefreshToken: s.decryptToken(conn.RefreshToken),
			ProfileID:    conn.ProfileID,
			ProfileName:  conn.ProfileName,
		}

		remoteID, err := client.Publish(ctx, cred, content)
		if err != nil {
			slog.Error("failed to publish", "platform", platform, "error", err.Error())
			results[platform] = models.PublishResult{Success: false, Error: errMessage(err)}
			continue
		}
		results[platform] = models.PublishResult{
			Success: true,
			PostID:  remoteID,
			URL:     client.PostURL(remoteID),
		}
	}

	anySuccess := false
	for _, r := range results {
		if r.Success {
			anySuccess = true
			break
		}
	}

	if !anySuccess && s.automation.Configured() {
		slog.Info("direct publishing failed, trying automation fallback", "post_id", postID)
		if outcome, err := s.publishViaWebhook(ctx, userID, postID, content, platforms); err == nil {
			return outcome, nil
		} else {
			slog.Info("automation fallback failed", "error", err.Error())
		}
	}

	if postID != "" {
		if _, err := s.pr.UpdatePublished(ctx, postID, results); err != nil {
			return nil, err
		}
	}

	message := "Published successfully"
	if !anySuccess {
		message = "Publishing failed"
	}
	return &transfer.PublishOutcome{Success: anySuccess, Message: message, Results: results}, nil
}

func (s *postService) publishViaWebhook(ctx context.Context, userID, postID, content string, platforms []string) (*transfer.PublishOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := s.automation.TriggerPublish(ctx, &transfer.PublishDispatch{
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		Platforms: platforms,
	})
	if err != nil {
		return nil, err
	}

	results := filterResults(result.Results, platforms)
	if postID != "" {
		if len(results) == 0 && !result.Success {
			results = failedResults(platforms, "automation workflow reported failure")
		}
		if _, err := s.pr.UpdatePublished(ctx, postID, results); err != nil {
			return nil, err
		}
	}

	message := result.Message
	if message == "" {
		message = "Published via automation workflow"
	}
	return &transfer.PublishOutcome{Success: result.Success, Message: message, Results: results}, nil
}

func (s *postService) GetPost(ctx context.Context, userID, postID string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, fmt.Errorf("%w: post", ErrNotFound)
	}
	return post, nil
}

func (s *postService) GetPostHistory(ctx context.Context, userID string, limit int, createdBefore *time.Time, status models.PostStatus) ([]*models.Post, error) {
	posts, err := s.pr.ListByUserID(ctx, userID, limit, createdBefore)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return posts, nil
	}

	filtered := posts[:0]
	for _, post := range posts {
		if post.Status == status {
			filtered = append(filtered, post)
		}
	}
	return filtered, nil
}

func (s *postService) DeletePost(ctx context.Context, userID, postID string) error {
	if _, err := s.GetPost(ctx, userID, postID); err != nil {
		return err
	}
	return s.pr.Remove(ctx, postID)
}

func (s *postService) GetStats(ctx context.Context, userID string) (*models.PostStats, error) {
	return s.pr.StatsByUserID(ctx, userID)
}

func (s *postService) connectionsByPlatform(ctx context.Context, userID string) (map[string]*models.PlatformConnection, error) {
	connections, err := s.pc.ListConnectedByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	byPlatform := make(map[string]*models.PlatformConnection, len(connections))
	for _, conn := range connections {
		byPlatform[strings.ToLower(conn.Platform)] = conn
	}
	return byPlatform, nil
}

func (s *postService) decryptToken(encrypted string) string {
	if encrypted == "" {
		return ""
	}
	token, err := utils.Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		slog.Info("could not decrypt stored token", "error", err.Error())
		return ""
	}
	return token
}

// errMessage strips the sentinel prefix so stored platform errors read like
// the underlying collaborator's message.
func errMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, ErrExternalService) {
		msg = strings.TrimPrefix(msg, ErrExternalService.Error()+": ")
	}
	return msg
}
