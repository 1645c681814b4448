package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
	"github.com/mehulsinha/postpilot/internal/service"
	"github.com/mehulsinha/postpilot/internal/transfer"
)

// Worker consumes scheduler tasks from asynq.
type Worker struct {
	scheduler  service.SchedulerService
	automation service.AutomationClient
}

func NewWorker(scheduler service.SchedulerService, automation service.AutomationClient) *Worker {
	return &Worker{
		scheduler:  scheduler,
		automation: automation,
	}
}

// HandlePublishDueTask dispatches one due post. Post-level failures are
// recorded on the post by the scheduler; only infrastructure errors are
// returned to asynq.
func (w *Worker) HandlePublishDueTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if err := w.scheduler.PublishDuePost(ctx, payload.PostID); err != nil {
		log.Printf("publish task for post %s failed: %v", payload.PostID, err)
		return err
	}
	return nil
}

// HandleScheduleNotifyTask delivers the schedule announcement to the
// automation webhook. Delivery is best effort: failures are logged and the
// task is not retried beyond its queue policy, because the workflow polls for
// due posts on its own.
func (w *Worker) HandleScheduleNotifyTask(ctx context.Context, task *asynq.Task) error {
	var notification transfer.ScheduleNotification
	if err := json.Unmarshal(task.Payload(), &notification); err != nil {
		return err
	}

	if err := w.automation.NotifySchedule(ctx, &notification); err != nil {
		log.Printf("could not notify automation about scheduled post %s: %v", notification.PostID, err)
	}
	return nil
}
