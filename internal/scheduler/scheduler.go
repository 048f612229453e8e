package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/threej-in/virtualfeed/pkg/ingest"
)

// Scheduler triggers ingestion cycles on a fixed interval. Cycles run
// strictly one after another; a tick that fires while a cycle is still
// in flight is simply the next iteration of the loop.
type Scheduler struct {
	orch     *ingest.Orchestrator
	interval time.Duration
	log      *zap.Logger
}

// New creates a scheduler.
func New(orch *ingest.Orchestrator, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval == 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{orch: orch, interval: interval, log: log}
}

// Run starts the loop. Blocks until ctx is cancelled. The first cycle
// runs immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	stats, err := s.orch.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("ingestion cycle error", zap.Error(err))
		}
		return
	}
	s.log.Info("scheduled cycle complete", zap.Int("total", stats.Total))
}
