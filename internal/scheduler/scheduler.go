// Package scheduler paces a single Criticality Protocol session on a fixed
// tick interval, for a daemon that wants to drive a session continuously
// rather than step it once per CLI invocation. It is grounded in the
// teacher's internal/scheduler (a ticker-per-job goroutine runner with
// context cancellation), narrowed from that package's multi-job Job
// interface down to the one job this repo ever schedules: advancing an
// Orchestrator.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackedney/criticality/internal/orchestrator"
	"github.com/jackedney/criticality/internal/protocol"
)

// TickScheduler runs Orchestrator.Step on a ticker, retaining the resulting
// snapshot between invocations so a caller can start it and later inspect
// progress without driving every tick itself.
type TickScheduler struct {
	logger   *slog.Logger
	orch     *orchestrator.Orchestrator
	ops      orchestrator.Operations
	interval time.Duration
	resolver func() []orchestrator.Resolution

	mu         sync.Mutex
	snapshot   protocol.ProtocolStateSnapshot
	lastResult orchestrator.TickResult
	lastErr    error

	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// NewTickScheduler builds a scheduler that advances orch starting from
// snapshot every interval. resolver, if non-nil, is consulted once per tick
// to supply any queued blocking-query resolution; it may return nil.
func NewTickScheduler(logger *slog.Logger, orch *orchestrator.Orchestrator, ops orchestrator.Operations, snapshot protocol.ProtocolStateSnapshot, interval time.Duration, resolver func() []orchestrator.Resolution) *TickScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickScheduler{
		logger:   logger,
		orch:     orch,
		ops:      ops,
		interval: interval,
		resolver: resolver,
		snapshot: snapshot,
	}
}

// Start begins ticking in a background goroutine. It returns immediately;
// call Stop to halt it, or cancel ctx.
func (s *TickScheduler) Start(ctx context.Context) {
	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	s.logger.Info("tick scheduler started", "interval", s.interval)

	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.ticker.C:
				s.tick(ctx)
				if !s.lastResult.ShouldContinue {
					s.logger.Info("tick scheduler stopping: session reached a stopping condition",
						"stopReason", s.lastResult.StopReason)
					return
				}
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// tick runs exactly one Orchestrator.Step and stores the outcome.
func (s *TickScheduler) tick(ctx context.Context) {
	s.mu.Lock()
	snapshot := s.snapshot
	var pending []orchestrator.Resolution
	if s.resolver != nil {
		pending = s.resolver()
	}
	s.mu.Unlock()

	newSnapshot, result, err := s.orch.Step(ctx, snapshot, pending, s.ops)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		s.logger.Error("scheduled tick failed", "error", err)
		return
	}
	s.snapshot = newSnapshot
	s.lastResult = result
	s.logger.Debug("scheduled tick complete",
		"phase", newSnapshot.State.Phase,
		"transitioned", result.Transitioned,
		"continue", result.ShouldContinue)
}

// Stop halts the scheduler's ticker goroutine and waits for it to exit.
func (s *TickScheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.stop != nil {
		close(s.stop)
	}
	if s.done != nil {
		<-s.done
	}
	s.logger.Info("tick scheduler stopped")
}

// Snapshot returns the most recently persisted snapshot.
func (s *TickScheduler) Snapshot() protocol.ProtocolStateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// LastResult returns the outcome of the most recently completed tick.
func (s *TickScheduler) LastResult() orchestrator.TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// LastError returns the error from the most recently completed tick, if any.
func (s *TickScheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
