package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/mehulsinha/postpilot/internal/service"
)

// SchedulerSweepJob periodically runs the due-post dispatch loop. It is the
// durability backstop behind the timed queue tasks: a post whose task was
// lost still publishes on the next sweep.
type SchedulerSweepJob struct {
	scheduler service.SchedulerService
}

func NewSchedulerSweepJob(scheduler service.SchedulerService) *SchedulerSweepJob {
	return &SchedulerSweepJob{scheduler: scheduler}
}

func (j *SchedulerSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	outcomes, err := j.scheduler.ProcessScheduledPosts(ctx)
	if err != nil {
		slog.Error("scheduler sweep failed", "error", err.Error())
		return
	}

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Success {
			failed++
		}
	}
	if len(outcomes) > 0 {
		slog.Info("scheduler sweep finished", "dispatched", len(outcomes), "failed", failed)
	}
}
