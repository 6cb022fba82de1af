// Package scheduler triggers pipeline runs on a fixed cadence.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler invokes a job once at start and then on every tick. A tick
// arriving while the previous run is still going is skipped, so at most
// one run is in flight at a time.
type Scheduler struct {
	interval time.Duration
	job      func(context.Context) error

	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.Once
}

// New creates a scheduler for the given job.
func New(interval time.Duration, job func(context.Context) error) *Scheduler {
	if interval <= 0 {
		interval = 2 * time.Hour
	}
	return &Scheduler{
		interval: interval,
		job:      job,
		stop:     make(chan struct{}),
	}
}

// Start runs the job immediately and then at each interval until Stop is
// called or the context is canceled. It blocks.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("Scheduler started, interval %s", s.interval)
	s.trigger(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped: context canceled")
			return
		case <-s.stop:
			log.Println("Scheduler stopped")
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// Stop ends the scheduling loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopped.Do(func() { close(s.stop) })
}

// trigger starts the job in the background unless the previous run is
// still holding the lock, in which case the tick is dropped.
func (s *Scheduler) trigger(ctx context.Context) {
	if !s.mu.TryLock() {
		log.Println("Previous run still in progress, skipping this tick")
		return
	}

	go func() {
		defer s.mu.Unlock()
		if err := s.job(ctx); err != nil {
			log.Printf("Scheduled run failed: %v", err)
		}
	}()
}
