package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Processor runs a matching pass over every composite book with resting
// orders.
type Processor interface {
	ProcessResting() error
}

// RematchScheduler periodically re-runs composite matching so composite
// orders whose legs changed without a direct trigger still get a chance
// to trade.
type RematchScheduler struct {
	interval  time.Duration
	processor Processor
	logger    *slog.Logger
	passes    atomic.Int64
}

// NewRematchScheduler creates a scheduler that ticks at interval.
func NewRematchScheduler(interval time.Duration, processor Processor, logger *slog.Logger) *RematchScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RematchScheduler{
		interval:  interval,
		processor: processor,
		logger:    logger,
	}
}

// Start launches a background goroutine that ticks at the configured
// interval. It stops when ctx is cancelled. A non-positive interval
// disables the scheduler.
func (r *RematchScheduler) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.tick()
			}
		}
	}()
}

func (r *RematchScheduler) tick() {
	if err := r.processor.ProcessResting(); err != nil {
		r.logger.Error("scheduled rematch failed", slog.String("error", err.Error()))
	}
	r.passes.Add(1)
}

// Passes returns the number of completed ticks. Useful for testing.
func (r *RematchScheduler) Passes() int64 {
	return r.passes.Load()
}
