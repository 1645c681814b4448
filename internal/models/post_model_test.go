package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    PostStatus
		to      PostStatus
		allowed bool
	}{
		{PostStatusDraft, PostStatusEnhanced, true},
		{PostStatusDraft, PostStatusScheduled, true},
		{PostStatusEnhanced, PostStatusScheduled, true},
		{PostStatusEnhanced, PostStatusDraft, false},
		{PostStatusScheduled, PostStatusScheduled, true},
		{PostStatusScheduled, PostStatusDraft, true},
		{PostStatusScheduled, PostStatusPublishing, true},
		{PostStatusPublishing, PostStatusPublished, true},
		{PostStatusPublishing, PostStatusFailed, true},
		{PostStatusPublishing, PostStatusScheduled, false},
		{PostStatusPublished, PostStatusScheduled, false},
		{PostStatusPublished, PostStatusDraft, false},
		{PostStatusFailed, PostStatusScheduled, true},
		{PostStatusFailed, PostStatusPublished, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestPublishedIsTerminal(t *testing.T) {
	for _, to := range []PostStatus{
		PostStatusDraft, PostStatusEnhanced, PostStatusScheduled,
		PostStatusPublishing, PostStatusPublished, PostStatusFailed,
	} {
		assert.False(t, PostStatusPublished.CanTransition(to))
	}
}

func TestAllSuccessful(t *testing.T) {
	assert.False(t, PublishResults{}.AllSuccessful(), "empty result set is not a success")
	assert.False(t, PublishResults(nil).AllSuccessful())

	assert.True(t, PublishResults{
		"linkedin": {Success: true, PostID: "urn:li:share:1"},
		"twitter":  {Success: true, PostID: "42"},
	}.AllSuccessful())

	assert.False(t, PublishResults{
		"linkedin": {Success: true},
		"twitter":  {Success: false, Error: "rate limited"},
	}.AllSuccessful())
}

func TestPostContent(t *testing.T) {
	post := &Post{OriginalContent: "raw draft"}
	assert.Equal(t, "raw draft", post.Content())

	post.EnhancedContent = "polished draft"
	assert.Equal(t, "polished draft", post.Content())
}

func TestPostStatusValid(t *testing.T) {
	assert.True(t, PostStatusDraft.Valid())
	assert.True(t, PostStatusPublishing.Valid())
	assert.False(t, PostStatus("archived").Valid())
}
