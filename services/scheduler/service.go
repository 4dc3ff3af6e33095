// Package scheduler runs periodic maintenance off the hot path. Currently
// its only task is pruning expired rows from the lookup cache.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// CachePruner is the slice of the cache the scheduler drives.
type CachePruner interface {
	Prune() (int64, error)
}

// Service manages scheduled maintenance execution.
type Service struct {
	cache    CachePruner
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a maintenance scheduler that prunes the cache on the
// given interval. An interval below one minute is clamped.
func NewService(cache CachePruner, interval time.Duration) *Service {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Service{cache: cache, interval: interval}
}

// Start begins the scheduler background loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)

	log.Println("[scheduler] started")
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Println("[scheduler] stopped")
	case <-ctx.Done():
		log.Println("[scheduler] stopped (timeout)")
	}

	s.running = false
	return nil
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPrune()
		}
	}
}

func (s *Service) runPrune() {
	pruned, err := s.cache.Prune()
	if err != nil {
		log.Printf("[scheduler] cache prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("[scheduler] pruned %d expired cache rows", pruned)
	}
}
