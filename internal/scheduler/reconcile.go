package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Runner is the batch entry the scheduler drives on each tick.
type Runner interface {
	RunAll(ctx context.Context) error
}

type Config struct {
	Interval   time.Duration // e.g. 24*time.Hour
	RunTimeout time.Duration // per-run bound; fetch/store hangs stay inside it
}

// Scheduler runs reconciliation batches on a fixed interval, with an
// immediate run on startup.
type Scheduler struct {
	runner Runner
	cfg    Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func New(runner Runner, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 15 * time.Minute
	}
	return &Scheduler{runner: runner, cfg: cfg}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		fmt.Println("[SCHEDULER] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// Initial run on startup (fire-and-forget)
	go s.runOnce()

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.runOnce()
			}
		}
	}()

	fmt.Printf("[SCHEDULER] Started (reconciling every %s)\n", s.cfg.Interval)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	fmt.Println("[SCHEDULER] Stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()
	if err := s.runner.RunAll(ctx); err != nil {
		fmt.Printf("[SCHEDULER] Reconciliation run failed: %v\n", err)
	}
}
