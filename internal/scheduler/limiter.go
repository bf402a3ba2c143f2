package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces outbound partner API calls so a full batch never exceeds the
// per-minute quota. Two rules apply at once: a token bucket holding one
// minute's worth of tokens, and a fixed minimum interval between consecutive
// calls (60s divided by the quota). The interval rule dominates in steady
// state and keeps bursts from front-loading the quota. Calls are serialized;
// at most one is in flight.
type Limiter struct {
	mu       sync.Mutex
	bucket   *rate.Limiter
	interval time.Duration
	last     time.Time
	clock    Clock
}

func NewLimiter(quotaPerMinute int, clock Clock) *Limiter {
	if quotaPerMinute <= 0 {
		quotaPerMinute = 1
	}
	return &Limiter{
		bucket:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(quotaPerMinute)), quotaPerMinute),
		interval: time.Minute / time.Duration(quotaPerMinute),
		clock:    clock,
	}
}

// Wait blocks until the next call is allowed. It holds the limiter for the
// whole wait, so concurrent callers queue up behind it.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	delay := time.Duration(0)
	if !l.last.IsZero() {
		if d := l.interval - now.Sub(l.last); d > delay {
			delay = d
		}
	}

	r := l.bucket.ReserveN(now, 1)
	if !r.OK() {
		return context.DeadlineExceeded
	}
	if d := r.DelayFrom(now); d > delay {
		delay = d
	}

	if err := l.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(now)
		return err
	}

	l.last = now.Add(delay)
	return nil
}
