// Package scheduler runs the processing pass at startup and again a fixed delay
// after each pass completes. Passes never overlap and missed intervals are not caught up.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is the scheduler's current activity.
type State int32

const (
	// Idle means no pass is running and the next one is armed.
	Idle State = iota
	// Running means a pass is in progress.
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// PassFunc runs one processing pass.
type PassFunc func(ctx context.Context) error

// Scheduler serializes passes of a PassFunc.
type Scheduler struct {
	pass     PassFunc
	interval time.Duration

	state atomic.Int32

	mu      sync.RWMutex
	lastRun time.Time
	lastErr error
}

// New creates a scheduler that waits interval after each completed pass.
func New(pass PassFunc, interval time.Duration) *Scheduler {
	return &Scheduler{
		pass:     pass,
		interval: interval,
	}
}

// State returns the current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// LastRun returns when the most recent pass finished, zero if none has.
func (s *Scheduler) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// LastError returns the error of the most recent pass, nil if it succeeded.
func (s *Scheduler) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Run executes a pass immediately, then re-arms a one-shot timer after every
// completion until ctx is cancelled. It blocks until then.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Scheduler started", "interval", s.interval)

	for {
		s.runOnce(ctx)

		if ctx.Err() != nil {
			slog.Info("Scheduler stopped")
			return
		}

		slog.Info("Next pass scheduled", "in", s.interval)
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Scheduler stopped")
			return
		case <-timer.C:
		}
	}
}

// runOnce runs one pass, recovering from panics so the schedule survives.
func (s *Scheduler) runOnce(ctx context.Context) {
	s.state.Store(int32(Running))

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pass panicked: %v", r)
		}
		if err != nil {
			slog.Error("Processing pass failed", "error", err)
		}

		s.mu.Lock()
		s.lastRun = time.Now().UTC()
		s.lastErr = err
		s.mu.Unlock()
		s.state.Store(int32(Idle))
	}()

	err = s.pass(ctx)
}
