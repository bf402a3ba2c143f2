package job

import (
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/mrusso/postdeck/internal/queue"
)

// CronJobs enqueues the recurring background tasks. The cron triggers are
// fire-and-forget; the asynq worker does the actual work so a slow run never
// blocks the cron loop.
type CronJobs struct {
	client *asynq.Client
}

func NewCronJobs(client *asynq.Client) *CronJobs {
	return &CronJobs{client: client}
}

func (c *CronJobs) RunScheduler() {
	if err := queue.Enqueue(c.client, queue.TaskTypeRunScheduler); err != nil {
		slog.Info(err.Error())
	}
}

func (c *CronJobs) SyncAccounts() {
	if err := queue.Enqueue(c.client, queue.TaskTypeAccountSync); err != nil {
		slog.Info(err.Error())
	}
}
