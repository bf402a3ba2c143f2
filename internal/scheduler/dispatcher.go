package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Dispatcher runs partner API calls through the rate limiter and retries
// transient failures a bounded number of times with a fixed delay.
type Dispatcher struct {
	limiter    *Limiter
	clock      Clock
	maxRetries int
	retryDelay time.Duration
}

func NewDispatcher(limiter *Limiter, clock Clock, maxRetries int, retryDelay time.Duration) *Dispatcher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Dispatcher{
		limiter:    limiter,
		clock:      clock,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Do executes fn behind the limiter. Every attempt, including retries, pays
// the rate limit. The last error is returned after the attempts run out.
func (d *Dispatcher) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		slog.Info(fmt.Sprintf("%s attempt %d/%d failed: %s", name, attempt, d.maxRetries, lastErr.Error()))

		if attempt < d.maxRetries {
			if err := d.clock.Sleep(ctx, d.retryDelay); err != nil {
				return err
			}
		}
	}
	return lastErr
}
