package queue

import (
	"log"

	"github.com/hibiken/asynq"
)

// Enqueue schedules a background task for immediate processing. Tasks carry
// no payload; the handlers work off database state.
func Enqueue(asynqClient *asynq.Client, taskType string) error {
	task := asynq.NewTask(taskType, nil)

	_, err := asynqClient.Enqueue(task, asynq.MaxRetry(0))
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: %s", taskType)
	return nil
}
