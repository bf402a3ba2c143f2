package queue

import (
	"github.com/mrusso/postdeck/internal/scheduler"
	"github.com/mrusso/postdeck/internal/service"
)

type Queue struct {
	sync     service.AccountSyncService
	pipeline *scheduler.Pipeline
}

func NewQueue(sync service.AccountSyncService, pipeline *scheduler.Pipeline) *Queue {
	return &Queue{
		sync:     sync,
		pipeline: pipeline,
	}
}

const (
	TaskTypeAccountSync  = "accounts:sync"
	TaskTypeRunScheduler = "scheduler:run"
)
