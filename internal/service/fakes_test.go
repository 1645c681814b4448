package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mehulsinha/postpilot/internal/models"
	"github.com/mehulsinha/postpilot/internal/transfer"
	"github.com/mehulsinha/postpilot/pkg/utils"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func encryptForTest(plaintext string) string {
	encrypted, err := utils.Encrypt([]byte(plaintext), []byte(testEncryptionKey))
	if err != nil {
		panic(err)
	}
	return encrypted
}

// fakePostRepo is an in-memory PostRepository mirroring the SQL layer's
// state-transition semantics.
type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[string]*models.Post
	order  []string
	seq    int
	writes int

	findDueErr error
	denyClaim  bool
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[string]*models.Post{}}
}

func (r *fakePostRepo) seed(post *models.Post) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post.ID == "" {
		r.seq++
		post.ID = fmt.Sprintf("post-%d", r.seq)
	}
	if post.Status == "" {
		post.Status = models.PostStatusDraft
	}
	if post.PublishResults == nil {
		post.PublishResults = models.PublishResults{}
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	r.posts[post.ID] = post
	r.order = append(r.order, post.ID)
	return post
}

func (r *fakePostRepo) get(id string) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id]
}

func (r *fakePostRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *fakePostRepo) Create(ctx context.Context, post *models.Post) (string, error) {
	created := &models.Post{
		UserID:          post.UserID,
		OriginalContent: post.OriginalContent,
		Platforms:       post.Platforms,
		PublishNow:      post.PublishNow,
		Metadata:        models.PostMetadata{CharacterCount: len(post.OriginalContent)},
	}
	r.seed(created)
	return created.ID, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	copied := *post
	return &copied, nil
}

func (r *fakePostRepo) ListByUserID(ctx context.Context, userID string, limit int, createdBefore *time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	var posts []*models.Post
	for i := len(r.order) - 1; i >= 0 && len(posts) < limit; i-- {
		post := r.posts[r.order[i]]
		if post == nil || post.UserID != userID {
			continue
		}
		if createdBefore != nil && !post.CreatedAt.Before(*createdBefore) {
			continue
		}
		copied := *post
		posts = append(posts, &copied)
	}
	return posts, nil
}

func (r *fakePostRepo) ListScheduledByUserID(ctx context.Context, userID string) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var posts []*models.Post
	for _, id := range r.order {
		post := r.posts[id]
		if post == nil || post.UserID != userID || post.Status != models.PostStatusScheduled {
			continue
		}
		copied := *post
		posts = append(posts, &copied)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ScheduledAt.Before(*posts[j].ScheduledAt)
	})
	return posts, nil
}

func (r *fakePostRepo) FindDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findDueErr != nil {
		return nil, r.findDueErr
	}
	var posts []*models.Post
	for _, id := range r.order {
		post := r.posts[id]
		if post == nil || post.Status != models.PostStatusScheduled {
			continue
		}
		if post.ScheduledAt == nil || post.ScheduledAt.After(now) {
			continue
		}
		copied := *post
		posts = append(posts, &copied)
	}
	return posts, nil
}

func (r *fakePostRepo) ClaimForPublish(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.denyClaim {
		return false, nil
	}
	post, ok := r.posts[id]
	if !ok || post.Status != models.PostStatusScheduled {
		return false, nil
	}
	post.Status = models.PostStatusPublishing
	r.writes++
	return true, nil
}

func (r *fakePostRepo) ReleaseClaim(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post, ok := r.posts[id]; ok && post.Status == models.PostStatusPublishing {
		post.Status = models.PostStatusScheduled
		r.writes++
	}
	return nil
}

func (r *fakePostRepo) UpdateEnhanced(ctx context.Context, id, enhancedContent string, meta models.PostMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil
	}
	post.EnhancedContent = enhancedContent
	post.Status = models.PostStatusEnhanced
	post.Metadata = meta
	r.writes++
	return nil
}

func (r *fakePostRepo) UpdateScheduled(ctx context.Context, id string, scheduledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil
	}
	post.Status = models.PostStatusScheduled
	post.ScheduledAt = &scheduledAt
	post.PublishNow = false
	r.writes++
	return nil
}

func (r *fakePostRepo) UpdatePublished(ctx context.Context, id string, results models.PublishResults) (models.PostStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := models.PostStatusFailed
	if results.AllSuccessful() {
		status = models.PostStatusPublished
	}
	post, ok := r.posts[id]
	if ok {
		now := time.Now()
		post.Status = status
		post.PublishResults = results
		post.ScheduledAt = nil
		post.PublishedAt = &now
		r.writes++
	}
	return status, nil
}

func (r *fakePostRepo) UpdateStatus(ctx context.Context, id string, status models.PostStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post, ok := r.posts[id]; ok {
		post.Status = status
		r.writes++
	}
	return nil
}

func (r *fakePostRepo) ResetToDraft(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post, ok := r.posts[id]; ok {
		post.Status = models.PostStatusDraft
		post.ScheduledAt = nil
		post.PublishNow = true
		r.writes++
	}
	return nil
}

func (r *fakePostRepo) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	r.writes++
	return nil
}

func (r *fakePostRepo) StatsByUserID(ctx context.Context, userID string) (*models.PostStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats models.PostStats
	for _, post := range r.posts {
		if post.UserID != userID {
			continue
		}
		stats.Total++
		switch post.Status {
		case models.PostStatusDraft:
			stats.Draft++
		case models.PostStatusEnhanced:
			stats.Enhanced++
		case models.PostStatusScheduled, models.PostStatusPublishing:
			stats.Scheduled++
		case models.PostStatusPublished:
			stats.Published++
		case models.PostStatusFailed:
			stats.Failed++
		}
	}
	return &stats, nil
}

type fakeConnectionRepo struct {
	connections []*models.PlatformConnection
	listErr     error
}

func (r *fakeConnectionRepo) connect(userID, platform, accessToken string) {
	r.connections = append(r.connections, &models.PlatformConnection{
		ID:          fmt.Sprintf("conn-%d", len(r.connections)+1),
		UserID:      userID,
		Platform:    platform,
		Connected:   true,
		AccessToken: encryptForTest(accessToken),
		ProfileID:   platform + "-profile",
		ProfileName: "Test Account",
	})
}

func (r *fakeConnectionRepo) Upsert(ctx context.Context, pc *models.PlatformConnection) error {
	for i, existing := range r.connections {
		if existing.UserID == pc.UserID && existing.Platform == pc.Platform {
			r.connections[i] = pc
			return nil
		}
	}
	r.connections = append(r.connections, pc)
	return nil
}

func (r *fakeConnectionRepo) GetByUserAndPlatform(ctx context.Context, userID, platform string) (*models.PlatformConnection, error) {
	for _, pc := range r.connections {
		if pc.UserID == userID && pc.Platform == platform {
			return pc, nil
		}
	}
	return nil, nil
}

func (r *fakeConnectionRepo) ListByUserID(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*models.PlatformConnection
	for _, pc := range r.connections {
		if pc.UserID == userID {
			out = append(out, pc)
		}
	}
	return out, nil
}

func (r *fakeConnectionRepo) ListConnectedByUserID(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*models.PlatformConnection
	for _, pc := range r.connections {
		if pc.UserID == userID && pc.Connected {
			out = append(out, pc)
		}
	}
	return out, nil
}

func (r *fakeConnectionRepo) Disconnect(ctx context.Context, userID, platform string) error {
	for _, pc := range r.connections {
		if pc.UserID == userID && pc.Platform == platform {
			pc.Connected = false
			pc.AccessToken = ""
			pc.RefreshToken = ""
		}
	}
	return nil
}

type fakeAutomation struct {
	configured    bool
	notifyErr     error
	notifications []*transfer.ScheduleNotification
	dispatches    []*transfer.PublishDispatch
	publishResult *transfer.PublishDispatchResult
	publishErr    error
}

func (a *fakeAutomation) Configured() bool { return a.configured }

func (a *fakeAutomation) NotifySchedule(ctx context.Context, n *transfer.ScheduleNotification) error {
	a.notifications = append(a.notifications, n)
	return a.notifyErr
}

func (a *fakeAutomation) TriggerPublish(ctx context.Context, d *transfer.PublishDispatch) (*transfer.PublishDispatchResult, error) {
	a.dispatches = append(a.dispatches, d)
	if a.publishErr != nil {
		return nil, a.publishErr
	}
	return a.publishResult, nil
}

type fakeEnqueuer struct {
	notifications []*transfer.ScheduleNotification
	publishTasks  map[string]time.Time
	notifyErr     error
	publishErr    error
}

func newFakeEnqueuer() *fakeEnqueuer {
	return &fakeEnqueuer{publishTasks: map[string]time.Time{}}
}

func (e *fakeEnqueuer) EnqueueScheduleNotify(n *transfer.ScheduleNotification) error {
	e.notifications = append(e.notifications, n)
	return e.notifyErr
}

func (e *fakeEnqueuer) EnqueuePublishDue(postID string, at time.Time) error {
	e.publishTasks[postID] = at
	return e.publishErr
}

type fakeAI struct {
	enhancement *transfer.Enhancement
	err         error
	calls       int
}

func (a *fakeAI) EnhanceContent(ctx context.Context, content string, platforms []string, userID string) (*transfer.Enhancement, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.enhancement, nil
}

type fakePlatformClient struct {
	name       string
	publishID  string
	publishErr error
	published  []string
	lastCred   transfer.PlatformCredential
}

func (c *fakePlatformClient) Name() string              { return c.name }
func (c *fakePlatformClient) AuthURL(state string) string { return "https://auth.example/" + c.name }

func (c *fakePlatformClient) ExchangeCode(ctx context.Context, code string) (*transfer.TokenBundle, error) {
	return &transfer.TokenBundle{AccessToken: "access-" + code}, nil
}

func (c *fakePlatformClient) FetchProfile(ctx context.Context, accessToken string) (*transfer.PlatformProfile, error) {
	return &transfer.PlatformProfile{ID: c.name + "-profile", Name: "Test Account"}, nil
}

func (c *fakePlatformClient) Publish(ctx context.Context, cred transfer.PlatformCredential, content string) (string, error) {
	c.lastCred = cred
	if c.publishErr != nil {
		return "", c.publishErr
	}
	c.published = append(c.published, content)
	return c.publishID, nil
}

func (c *fakePlatformClient) PostURL(remoteID string) string {
	return "https://" + c.name + ".example/posts/" + remoteID
}
