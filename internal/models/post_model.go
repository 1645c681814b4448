package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostStatus is the closed set of lifecycle states a post moves through.
// "publishing" is a transient claim state held while a due post is being
// dispatched, so that overlapping scheduler runs cannot double-publish it.
type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusEnhanced   PostStatus = "enhanced"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

var postTransitions = map[PostStatus][]PostStatus{
	PostStatusDraft:      {PostStatusEnhanced, PostStatusScheduled, PostStatusPublished, PostStatusFailed},
	PostStatusEnhanced:   {PostStatusScheduled, PostStatusPublished, PostStatusFailed},
	PostStatusScheduled:  {PostStatusDraft, PostStatusScheduled, PostStatusPublishing, PostStatusPublished, PostStatusFailed},
	PostStatusPublishing: {PostStatusPublished, PostStatusFailed},
	PostStatusPublished:  {},
	PostStatusFailed:     {PostStatusScheduled},
}

func (s PostStatus) Valid() bool {
	_, ok := postTransitions[s]
	return ok
}

// CanTransition reports whether the state machine allows moving to the given
// status. Published is terminal; failed may re-enter scheduled on reschedule.
func (s PostStatus) CanTransition(to PostStatus) bool {
	for _, next := range postTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// PublishResult is the recorded outcome of one platform's publish attempt.
type PublishResult struct {
	Success bool   `json:"success"`
	PostID  string `json:"postId,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PublishResults maps platform name to its publish outcome. Keys are always a
// subset of the post's requested platforms. Stored as a jsonb column.
type PublishResults map[string]PublishResult

// AllSuccessful reports whether every recorded result succeeded. An empty map
// is not a success: a completed attempt with zero results is a failure.
func (r PublishResults) AllSuccessful() bool {
	if len(r) == 0 {
		return false
	}
	for _, res := range r {
		if !res.Success {
			return false
		}
	}
	return true
}

// Value encodes to a jsonb string; lib/pq would send raw []byte as bytea.
func (r PublishResults) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *PublishResults) Scan(src interface{}) error {
	if src == nil {
		*r = PublishResults{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into PublishResults", src)
	}
	return json.Unmarshal(b, r)
}

// PostMetadata carries enhancement bookkeeping. Stored as a jsonb column.
type PostMetadata struct {
	CharacterCount    int    `json:"characterCount"`
	EnhancementTimeMs int64  `json:"enhancementTimeMs,omitempty"`
	Model             string `json:"model,omitempty"`
}

func (m PostMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *PostMetadata) Scan(src interface{}) error {
	if src == nil {
		*m = PostMetadata{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("cannot scan post metadata")
	}
	return json.Unmarshal(b, m)
}

type Post struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	OriginalContent string         `db:"original_content" json:"original_content"`
	EnhancedContent string         `db:"enhanced_content" json:"enhanced_content,omitempty"`
	Platforms       []string       `db:"platforms" json:"platforms"`
	Status          PostStatus     `db:"status" json:"status"`
	PublishNow      bool           `db:"publish_now" json:"publish_now"`
	ScheduledAt     *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PublishResults  PublishResults `db:"publish_results" json:"publish_results"`
	Metadata        PostMetadata   `db:"metadata" json:"metadata"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
	PublishedAt     *time.Time     `db:"published_at" json:"published_at,omitempty"`
}

// Content returns the text that should be published: the enhanced version when
// the AI step has completed, otherwise the original draft.
func (p *Post) Content() string {
	if p.EnhancedContent != "" {
		return p.EnhancedContent
	}
	return p.OriginalContent
}

// PostStats is the per-status post count projection for a user.
type PostStats struct {
	Total     int `json:"total"`
	Draft     int `json:"draft"`
	Enhanced  int `json:"enhanced"`
	Scheduled int `json:"scheduled"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}
