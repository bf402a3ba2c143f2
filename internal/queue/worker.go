package queue

import (
	"context"
	"errors"
	"log"

	"github.com/hibiken/asynq"

	"github.com/mrusso/postdeck/internal/scheduler"
)

func (j *Queue) HandleAccountSyncTask(ctx context.Context, task *asynq.Task) error {
	count, err := j.sync.Sync(ctx)
	if err != nil {
		return err
	}

	log.Printf("Synced %d social accounts", count)
	return nil
}

func (j *Queue) HandleRunSchedulerTask(ctx context.Context, task *asynq.Task) error {
	summary, err := j.pipeline.Run(ctx)
	if err != nil {
		// Someone else is already running; the work is covered.
		if errors.Is(err, scheduler.ErrLeaseHeld) {
			log.Printf("Scheduler run skipped: %v", err)
			return nil
		}
		return err
	}

	log.Printf("Scheduler run: processed=%d successful=%d failed=%d",
		summary.Processed, summary.Successful, summary.Failed)
	return nil
}
