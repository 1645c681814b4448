package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/mehulsinha/postpilot/internal/transfer"
)

const (
	TaskTypePublishDue     = "post:publish_due"
	TaskTypeScheduleNotify = "webhook:schedule_notify"
)

type PublishDuePayload struct {
	PostID string `json:"post_id"`
}

// Client enqueues scheduler work onto asynq. It implements
// service.TaskEnqueuer.
type Client struct {
	asynq *asynq.Client
}

func NewClient(asynqClient *asynq.Client) *Client {
	return &Client{asynq: asynqClient}
}

// EnqueuePublishDue schedules the timed dispatch for a post. asynq fires the
// task at the due time; the cron sweep remains the backstop if Redis loses it.
func (c *Client) EnqueuePublishDue(postID string, at time.Time) error {
	payload, err := json.Marshal(PublishDuePayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishDue, payload)
	_, err = c.asynq.Enqueue(task, asynq.ProcessAt(at), asynq.MaxRetry(0))
	return err
}

// EnqueueScheduleNotify queues the best-effort webhook announcement of a new
// schedule.
func (c *Client) EnqueueScheduleNotify(n *transfer.ScheduleNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeScheduleNotify, payload)
	_, err = c.asynq.Enqueue(task, asynq.MaxRetry(1))
	return err
}
