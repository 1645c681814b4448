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

// TaskEnqueuer hands background work to the task queue: the best-effort
// schedule announcement and the timed publish dispatch. Implemented by the
// queue package; failures to enqueue are logged and never surfaced to the
// user, because the periodic sweep picks up anything the queue misses.
type TaskEnqueuer interface {
	EnqueueScheduleNotify(n *transfer.ScheduleNotification) error
	EnqueuePublishDue(postID string, at time.Time) error
}

// SchedulerService owns the scheduled half of the post lifecycle: entering
// the scheduled state, leaving it via cancel, and the due-post dispatch loop.
type SchedulerService interface {
	SchedulePost(ctx context.Context, userID, postID string, scheduledAt time.Time) (*models.Post, error)
	ReschedulePost(ctx context.Context, userID, postID string, newScheduledAt time.Time) (*models.Post, error)
	CancelScheduledPost(ctx context.Context, userID, postID string) error
	GetScheduledPosts(ctx context.Context, userID string) ([]*models.Post, error)
	ProcessScheduledPosts(ctx context.Context) ([]transfer.DispatchOutcome, error)
	PublishDuePost(ctx context.Context, postID string) error
}

type schedulerService struct {
	pr            repository.PostRepository
	pc            repository.PlatformConnectionRepository
	automation    AutomationClient
	tasks         TaskEnqueuer
	encryptionKey []byte
}

func NewSchedulerService(
	cfg config.Config,
	pr repository.PostRepository,
	pc repository.PlatformConnectionRepository,
	automation AutomationClient,
	tasks TaskEnqueuer) SchedulerService {
	return &schedulerService{
		pr:            pr,
		pc:            pc,
		automation:    automation,
		tasks:         tasks,
		encryptionKey: []byte(cfg.EncryptionKey),
	}
}

// SchedulePost stores the schedule durably, then announces it to the
// automation workflow and queues the timed dispatch. Both side effects are
// best effort: the durable write already happened and the periodic sweep is
// the backstop, so their failure is logged and never rolled back.
func (s *schedulerService) SchedulePost(ctx context.Context, userID, postID string, scheduledAt time.Time) (*models.Post, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if !scheduledAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", ErrValidation)
	}
	if !post.Status.CanTransition(models.PostStatusScheduled) {
		return nil, fmt.Errorf("%w: cannot schedule a %s post", ErrInvalidState, post.Status)
	}

	if err := s.pr.UpdateScheduled(ctx, postID, scheduledAt); err != nil {
		return nil, err
	}

	if err := s.tasks.EnqueueScheduleNotify(&transfer.ScheduleNotification{
		PostID:      postID,
		UserID:      userID,
		ScheduledAt: scheduledAt.UTC().Format(time.RFC3339),
		Platforms:   post.Platforms,
	}); err != nil {
		slog.Info("could not enqueue schedule notification", "post_id", postID, "error", err.Error())
	}
	if err := s.tasks.EnqueuePublishDue(postID, scheduledAt); err != nil {
		slog.Info("could not enqueue publish task, sweep will pick the post up", "post_id", postID, "error", err.Error())
	}

	return s.pr.GetByID(ctx, postID)
}

// ReschedulePost re-runs SchedulePost with the post's existing platform list.
func (s *schedulerService) ReschedulePost(ctx context.Context, userID, postID string, newScheduledAt time.Time) (*models.Post, error) {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.SchedulePost(ctx, userID, postID, newScheduledAt)
}

func (s *schedulerService) CancelScheduledPost(ctx context.Context, userID, postID string) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusScheduled {
		return fmt.Errorf("%w: post is not scheduled", ErrInvalidState)
	}

	return s.pr.ResetToDraft(ctx, postID)
}

func (s *schedulerService) GetScheduledPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.pr.ListScheduledByUserID(ctx, userID)
}

// ProcessScheduledPosts dispatches every due post. Posts are handled
// independently: one post's failure is recorded on that post and in its
// outcome entry, never propagated. Only an unreachable repository makes the
// whole call fail. Posts that fail here are not retried automatically; a
// human reschedules them.
func (s *schedulerService) ProcessScheduledPosts(ctx context.Context) ([]transfer.DispatchOutcome, error) {
	posts, err := s.pr.FindDue(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	slog.Info("processing scheduled posts", "due", len(posts))

	outcomes := make([]transfer.DispatchOutcome, 0, len(posts))
	for _, post := range posts {
		outcome, ok := s.dispatchDuePost(ctx, post)
		if ok {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes, nil
}

// PublishDuePost is the single-post dispatch path used by the timed queue
// task. A post that was cancelled, already published or pushed to a later
// time since the task was enqueued is skipped silently.
func (s *schedulerService) PublishDuePost(ctx context.Context, postID string) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		return nil
	}
	if post.ScheduledAt != nil && post.ScheduledAt.After(time.Now()) {
		return nil
	}

	s.dispatchDuePost(ctx, post)
	return nil
}

// dispatchDuePost claims one due post and pushes it through the automation
// webhook. The claim (a conditional scheduled→publishing write) makes
// overlapping scheduler runs safe: exactly one of them dispatches the post.
// Returns ok=false when the post was claimed by someone else.
func (s *schedulerService) dispatchDuePost(ctx context.Context, post *models.Post) (transfer.DispatchOutcome, bool) {
	claimed, err := s.pr.ClaimForPublish(ctx, post.ID)
	if err != nil {
		return transfer.DispatchOutcome{PostID: post.ID, Success: false, Error: err.Error()}, true
	}
	if !claimed {
		return transfer.DispatchOutcome{}, false
	}

	targets, credentials, err := s.resolveTargets(ctx, post)
	if err != nil {
		slog.Error("failed to resolve platforms for scheduled post", "post_id", post.ID, "error", err.Error())
		s.recordFailure(ctx, post, normalizePlatforms(post.Platforms), err.Error())
		return transfer.DispatchOutcome{PostID: post.ID, Success: false, Error: err.Error()}, true
	}

	if len(targets) == 0 {
		slog.Warn("no connected platforms for scheduled post", "post_id", post.ID)
		s.recordFailure(ctx, post, normalizePlatforms(post.Platforms), "No connected platforms")
		return transfer.DispatchOutcome{PostID: post.ID, Success: false, Error: "No connected platforms"}, true
	}

	result, err := s.automation.TriggerPublish(ctx, &transfer.PublishDispatch{
		PostID:      post.ID,
		UserID:      post.UserID,
		Content:     post.Content(),
		Platforms:   targets,
		Credentials: credentials,
	})
	if err != nil {
		slog.Error("failed to dispatch scheduled post", "post_id", post.ID, "error", err.Error())
		s.recordFailure(ctx, post, targets, err.Error())
		return transfer.DispatchOutcome{PostID: post.ID, Success: false, Error: err.Error()}, true
	}

	results := filterResults(result.Results, targets)
	if len(results) == 0 {
		msg := result.Message
		if msg == "" {
			msg = "automation workflow returned no results"
		}
		results = failedResults(targets, msg)
	}
	if !result.Success {
		// The workflow reported failure; make sure the recorded results agree.
		for platform, r := range results {
			if r.Success {
				continue
			}
			if r.Error == "" {
				r.Error = "automation workflow reported failure"
				results[platform] = r
			}
		}
	}

	status, err := s.pr.UpdatePublished(ctx, post.ID, results)
	if err != nil {
		return transfer.DispatchOutcome{PostID: post.ID, Success: false, Error: err.Error()}, true
	}

	if status != models.PostStatusPublished {
		return transfer.DispatchOutcome{PostID: post.ID, Success: false, Result: result, Error: result.Message}, true
	}
	return transfer.DispatchOutcome{PostID: post.ID, Success: true, Result: result}, true
}

// resolveTargets intersects the post's requested platforms with the ones the
// user currently has connected, preserving the post's ordering, and builds
// the credential bundle for the intersection.
func (s *schedulerService) resolveTargets(ctx context.Context, post *models.Post) ([]string, map[string]transfer.PlatformCredential, error) {
	connections, err := s.pc.ListConnectedByUserID(ctx, post.UserID)
	if err != nil {
		return nil, nil, err
	}

	connected := make(map[string]*models.PlatformConnection, len(connections))
	for _, conn := range connections {
		connected[strings.ToLower(conn.Platform)] = conn
	}

	var targets []string
	credentials := make(map[string]transfer.PlatformCredential)
	for _, platform := range normalizePlatforms(post.Platforms) {
		conn, ok := connected[platform]
		if !ok {
			continue
		}
		targets = append(targets, platform)
		credentials[platform] = transfer.PlatformCredential{
			AccessToken:  s.decryptToken(conn.AccessToken),
			RefreshToken: s.decryptToken(conn.RefreshToken),
			ProfileID:    conn.ProfileID,
			ProfileName:  conn.ProfileName,
		}
	}
	return targets, credentials, nil
}

func (s *schedulerService) recordFailure(ctx context.Context, post *models.Post, platforms []string, msg string) {
	if _, err := s.pr.UpdatePublished(ctx, post.ID, failedResults(platforms, msg)); err != nil {
		slog.Error("failed to record dispatch failure", "post_id", post.ID, "error", err.Error())
	}
}

func (s *schedulerService) decryptToken(encrypted string) string {
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

func (s *schedulerService) ownedPost(ctx context.Context, userID, postID string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, fmt.Errorf("%w: post", ErrNotFound)
	}
	return post, nil
}

func normalizePlatforms(platforms []string) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, strings.ToLower(p))
	}
	return out
}

// filterResults drops any result entries for platforms that were not part of
// the dispatch, keeping the recorded keys a subset of the requested ones.
func filterResults(results models.PublishResults, targets []string) models.PublishResults {
	allowed := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		allowed[t] = struct{}{}
	}

	filtered := models.PublishResults{}
	for platform, result := range results {
		if _, ok := allowed[strings.ToLower(platform)]; ok {
			filtered[strings.ToLower(platform)] = result
		}
	}
	return filtered
}

func failedResults(platforms []string, msg string) models.PublishResults {
	results := models.PublishResults{}
	for _, p := range platforms {
		results[p] = models.PublishResult{Success: false, Error: msg}
	}
	return results
}
