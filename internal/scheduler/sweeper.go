package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/index"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/metrics"
)

// Sweeper removes expired deferred links from the in-memory repository.
// The Redis repository expires keys on its own and needs no sweeper.
type Sweeper struct {
	links    *index.LinkIndex
	logger   logger.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(links *index.LinkIndex, log logger.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		links:    links,
		logger:   log,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweeper
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// Sweep removes every expired record and returns how many were removed
func (s *Sweeper) Sweep() int {
	removed := s.links.Sweep(s.now())
	if removed > 0 {
		metrics.DeferredSwept.Add(float64(removed))
		s.logger.Info("swept expired deferred links", logger.Int("removed", removed))
	} else {
		s.logger.Debug("no deferred links to sweep")
	}
	return removed
}
