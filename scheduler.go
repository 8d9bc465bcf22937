package tracegc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCollectInterval is the interval NewScheduler uses when given zero.
const DefaultCollectInterval = 5 * time.Second

// Scheduler runs Collect on a fixed interval in a background goroutine.
//
// A tick that finds a cycle already running is skipped. The scheduler exits on
// its own once the collector is closed.
type Scheduler struct {
	c        *Collector
	interval time.Duration

	mu      sync.Mutex // protects start/stop lifecycle
	cancel  context.CancelFunc
	stopped chan struct{}

	runs    atomic.Uint64
	skipped atomic.Uint64
	failed  atomic.Uint64
	last    atomic.Pointer[CollectionStats]
}

// NewScheduler creates a stopped Scheduler for c.
func NewScheduler(c *Collector, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	return &Scheduler{c: c, interval: interval}
}

// Start launches the background goroutine. Starting a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stopped = make(chan struct{})

	// Capture the channel so the goroutine never reads a field Stop clears.
	go s.loop(ctx, s.stopped)
}

// Stop halts the background goroutine and waits for it to finish. A cycle in
// its sweep phase runs to completion first. Stop is safe to call more than
// once or on a scheduler that was never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopped := s.stopped
	s.cancel = nil
	s.stopped = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}
}

// Interval returns the collection interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Runs returns the number of cycles the scheduler completed.
func (s *Scheduler) Runs() uint64 { return s.runs.Load() }

// Skipped returns the number of ticks dropped because a cycle was running.
func (s *Scheduler) Skipped() uint64 { return s.skipped.Load() }

// Failed returns the number of cycles that returned an error.
func (s *Scheduler) Failed() uint64 { return s.failed.Load() }

// LastStats returns the stats of the most recent completed cycle.
func (s *Scheduler) LastStats() (CollectionStats, bool) {
	p := s.last.Load()
	if p == nil {
		return CollectionStats{}, false
	}
	return *p, true
}

func (s *Scheduler) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one cycle and reports whether the loop should continue.
func (s *Scheduler) tick(ctx context.Context) bool {
	stats, err := s.c.Collect(ctx)
	switch {
	case errors.Is(err, ErrClosed):
		return false
	case errors.Is(err, ErrCollectionInProgress):
		s.skipped.Add(1)
		return true
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return false
	}

	if stats.Cycle > 0 {
		s.runs.Add(1)
		s.last.Store(&stats)
	}
	if err != nil {
		s.failed.Add(1)
		s.c.log.Warn("scheduled collection failed", "error", err)
	}
	return true
}
