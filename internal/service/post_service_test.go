package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	config "github.com/mehulsinha/postpilot/configs"
	"github.com/mehulsinha/postpilot/internal/models"
	"github.com/mehulsinha/postpilot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postFixture struct {
	repo       *fakePostRepo
	conns      *fakeConnectionRepo
	ai         *fakeAI
	linkedin   *fakePlatformClient
	twitter    *fakePlatformClient
	automation *fakeAutomation
	svc        PostService
}

func newPostFixture() *postFixture {
	f := &postFixture{
		repo:  newFakePostRepo(),
		conns: &fakeConnectionRepo{},
		ai: &fakeAI{enhancement: &transfer.Enhancement{
			EnhancedContent:   "enhanced text",
			Model:             "gemini-1.5-flash",
			EnhancementTimeMs: 120,
		}},
		linkedin:   &fakePlatformClient{name: models.PlatformLinkedin, publishID: "urn:li:share:1"},
		twitter:    &fakePlatformClient{name: models.PlatformTwitter, publishID: "1845"},
		automation: &fakeAutomation{},
	}
	f.svc = NewPostService(
		config.Config{EncryptionKey: testEncryptionKey},
		f.repo,
		f.conns,
		f.ai,
		NewPlatformRegistry(f.linkedin, f.twitter),
		f.automation,
	)
	return f
}

func TestEnhancePost(t *testing.T) {
	f := newPostFixture()

	post, err := f.svc.EnhancePost(context.Background(), "u1", "raw text", []string{"LinkedIn"})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusEnhanced, post.Status)
	assert.Equal(t, "raw text", post.OriginalContent)
	assert.Equal(t, "enhanced text", post.EnhancedContent)
	assert.Equal(t, []string{"linkedin"}, post.Platforms)
	assert.Equal(t, "gemini-1.5-flash", post.Metadata.Model)
	assert.Equal(t, int64(120), post.Metadata.EnhancementTimeMs)
	assert.Equal(t, 1, f.ai.calls)
}

func TestEnhancePostValidation(t *testing.T) {
	f := newPostFixture()

	_, err := f.svc.EnhancePost(context.Background(), "u1", "   ", []string{"linkedin"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.EnhancePost(context.Background(), "u1", "text", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.EnhancePost(context.Background(), "u1", "text", []string{"myspace"})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, f.ai.calls)
}

func TestEnhancePostFailureKeepsOriginal(t *testing.T) {
	f := newPostFixture()
	f.ai.err = fmt.Errorf("%w: gemini status 500", ErrExternalService)

	_, err := f.svc.EnhancePost(context.Background(), "u1", "raw text", []string{"linkedin"})
	assert.ErrorIs(t, err, ErrExternalService)

	posts, listErr := f.repo.ListByUserID(context.Background(), "u1", 10, nil)
	require.NoError(t, listErr)
	require.Len(t, posts, 1)
	assert.Equal(t, models.PostStatusFailed, posts[0].Status)
	assert.Equal(t, "raw text", posts[0].OriginalContent)
	assert.Empty(t, posts[0].EnhancedContent)
	assert.Nil(t, posts[0].PublishedAt)
}

func TestPublishPostDirect(t *testing.T) {
	f := newPostFixture()
	f.conns.connect("u1", models.PlatformLinkedin, "linkedin-token")
	post := f.repo.seed(&models.Post{
		UserID:          "u1",
		OriginalContent: "raw",
		EnhancedContent: "polished",
		Platforms:       []string{"linkedin"},
		Status:          models.PostStatusEnhanced,
	})

	outcome, err := f.svc.PublishPost(context.Background(), "u1", post.ID, "", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	require.Contains(t, outcome.Results, "linkedin")
	assert.Equal(t, "urn:li:share:1", outcome.Results["linkedin"].PostID)
	assert.Equal(t, "https://linkedin.example/posts/urn:li:share:1", outcome.Results["linkedin"].URL)

	assert.Equal(t, []string{"polished"}, f.linkedin.published)
	assert.Equal(t, "linkedin-token", f.linkedin.lastCred.AccessToken)

	stored := f.repo.get(post.ID)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
	assert.NotNil(t, stored.PublishedAt)
}

func TestPublishPostNotConnected(t *testing.T) {
	f := newPostFixture()

	outcome, err := f.svc.PublishPost(context.Background(), "u1", "", "ad-hoc text", []string{"linkedin"})
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, "Not connected", outcome.Results["linkedin"].Error)
	assert.Empty(t, f.linkedin.published)
}

func TestPublishPostPartialFailure(t *testing.T) {
	f := newPostFixture()
	f.conns.connect("u1", models.PlatformLinkedin, "linkedin-token")
	f.conns.connect("u1", models.PlatformTwitter, "twitter-token")
	f.twitter.publishErr = fmt.Errorf("%w: twitter status 403", ErrExternalService)
	post := f.repo.seed(&models.Post{
		UserID:          "u1",
		OriginalContent: "raw",
		Platforms:       []string{"linkedin", "twitter"},
		Status:          models.PostStatusEnhanced,
	})

	outcome, err := f.svc.PublishPost(context.Background(), "u1", post.ID, "", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Success, "one platform succeeding counts as a success")
	assert.True(t, outcome.Results["linkedin"].Success)
	assert.False(t, outcome.Results["twitter"].Success)
	assert.Equal(t, "twitter status 403", outcome.Results["twitter"].Error)

	stored := f.repo.get(post.ID)
	assert.Equal(t, models.PostStatusFailed, stored.Status)
	assert.NotNil(t, stored.PublishedAt)
}

func TestPublishPostWebhookSalvage(t *testing.T) {
	f := newPostFixture()
	f.automation.configured = true
	f.automation.publishResult = &transfer.PublishDispatchResult{
		Success: true,
		Message: "published by workflow",
		Results: models.PublishResults{"linkedin": {Success: true, PostID: "urn:li:share:7"}},
	}
	post := f.repo.seed(&models.Post{
		UserID:          "u1",
		OriginalContent: "raw",
		Platforms:       []string{"linkedin"},
		Status:          models.PostStatusEnhanced,
	})

	outcome, err := f.svc.PublishPost(context.Background(), "u1", post.ID, "", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "published by workflow", outcome.Message)
	require.Len(t, f.automation.dispatches, 1)

	stored := f.repo.get(post.ID)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
}

func TestPublishPostOwnership(t *testing.T) {
	f := newPostFixture()
	post := f.repo.seed(&models.Post{UserID: "u1", OriginalContent: "raw", Status: models.PostStatusEnhanced})

	_, err := f.svc.PublishPost(context.Background(), "u2", post.ID, "", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishPostValidation(t *testing.T) {
	f := newPostFixture()

	_, err := f.svc.PublishPost(context.Background(), "u1", "", "", []string{"linkedin"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.PublishPost(context.Background(), "u1", "", "text", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetPostHistoryStatusFilter(t *testing.T) {
	f := newPostFixture()
	f.repo.seed(&models.Post{UserID: "u1", OriginalContent: "a", Status: models.PostStatusDraft, CreatedAt: time.Now().Add(-2 * time.Hour)})
	published := f.repo.seed(&models.Post{UserID: "u1", OriginalContent: "b", Status: models.PostStatusPublished, CreatedAt: time.Now().Add(-time.Hour)})
	f.repo.seed(&models.Post{UserID: "u2", OriginalContent: "c", Status: models.PostStatusPublished})

	all, err := f.svc.GetPostHistory(context.Background(), "u1", 10, nil, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyPublished, err := f.svc.GetPostHistory(context.Background(), "u1", 10, nil, models.PostStatusPublished)
	require.NoError(t, err)
	require.Len(t, onlyPublished, 1)
	assert.Equal(t, published.ID, onlyPublished[0].ID)

	cutoff := time.Now().Add(-90 * time.Minute)
	older, err := f.svc.GetPostHistory(context.Background(), "u1", 10, &cutoff, "")
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "a", older[0].OriginalContent)
}

func TestDeletePost(t *testing.T) {
	f := newPostFixture()
	post := f.repo.seed(&models.Post{UserID: "u1", OriginalContent: "a", Status: models.PostStatusDraft})

	assert.ErrorIs(t, f.svc.DeletePost(context.Background(), "u2", post.ID), ErrNotFound)
	require.NoError(t, f.svc.DeletePost(context.Background(), "u1", post.ID))
	assert.Nil(t, f.repo.get(post.ID))
}

func TestGetStats(t *testing.T) {
	f := newPostFixture()
	f.repo.seed(&models.Post{UserID: "u1", Status: models.PostStatusDraft})
	f.repo.seed(&models.Post{UserID: "u1", Status: models.PostStatusScheduled})
	f.repo.seed(&models.Post{UserID: "u1", Status: models.PostStatusPublishing})
	f.repo.seed(&models.Post{UserID: "u1", Status: models.PostStatusPublished})

	stats, err := f.svc.GetStats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Draft)
	assert.Equal(t, 2, stats.Scheduled, "publishing posts count as scheduled")
	assert.Equal(t, 1, stats.Published)
}

func TestErrMessageStripsSentinel(t *testing.T) {
	wrapped := fmt.Errorf("%w: gemini status 429", ErrExternalService)
	assert.Equal(t, "gemini status 429", errMessage(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, "boom", errMessage(plain))
}
