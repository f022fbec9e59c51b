package dispatch

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// FlushScheduler runs periodic flush sweeps on a cron schedule so queued
// work still drains if the host misses a blocking-state exit edge. The exit
// edge remains the primary drain trigger; the sweep is a safety net and is
// disabled unless a schedule is configured.
type FlushScheduler struct {
	cron       *cron.Cron
	dispatcher *Dispatcher
	logger     Logger
}

// NewFlushScheduler creates a scheduler that flushes the dispatcher on the
// given cron schedule (robfig/cron syntax, e.g. "@every 30s").
func NewFlushScheduler(d *Dispatcher, schedule string, logger Logger) (*FlushScheduler, error) {
	if schedule == "" {
		return nil, ErrEmptyFlushSchedule
	}
	if logger == nil {
		logger = noopLogger{}
	}

	s := &FlushScheduler{
		cron:       cron.New(),
		dispatcher: d,
		logger:     logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("parsing flush schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running scheduled sweeps.
func (s *FlushScheduler) Start() {
	s.cron.Start()
	s.logger.Info("Flush scheduler started")
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *FlushScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Flush scheduler stopped")
}

// sweep drains eligible queued items. Sweeps on an empty queue are no-ops.
func (s *FlushScheduler) sweep() {
	if !s.dispatcher.HasQueuedItems() {
		return
	}
	flushed := s.dispatcher.Flush(context.Background())
	s.logger.Debug("Flush sweep completed", "drained", len(flushed))
}
