// Package frameloop drives per-frame rendering from a tick source.
//
// A Scheduler is either idle or active. While active, every tick runs the
// frame function once and then schedules the next tick. Stop is
// cooperative: the active flag is checked before rendering and again
// before rescheduling, so a tick that was already in flight when Stop ran
// neither renders nor schedules another.
package frameloop

import (
	"fmt"
	"sync"
)

// Stats counts scheduler activity since creation.
type Stats struct {
	Ticks   uint64 // ticks delivered while active
	Renders uint64 // frame functions that returned without error
	Errors  uint64 // frame functions that returned an error
	Panics  uint64 // frame functions that panicked
	Dropped uint64 // ticks that arrived after Stop
}

// Scheduler runs a frame function once per tick while active.
type Scheduler struct {
	choose func() TickSource

	mu      sync.Mutex
	active  bool
	epoch   uint64
	source  TickSource
	onFrame func() error
	stats   Stats
}

// New creates an idle scheduler. choose is called on each Start to pick
// the tick source for that run.
func New(choose func() TickSource) *Scheduler {
	return &Scheduler{choose: choose}
}

// Select returns a chooser that prefers per-frame callbacks when request
// is non-nil and falls back to a refresh loop at hz otherwise.
func Select(request func(fn func()) (cancel func()), hz float64) func() TickSource {
	return func() TickSource {
		if request != nil {
			return NewNotifierSource(request)
		}
		return NewRefreshSource(hz)
	}
}

// Start activates the scheduler and schedules the first tick. It returns
// false when the scheduler is already active.
func (s *Scheduler) Start(onFrame func() error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	s.epoch++
	s.onFrame = onFrame
	s.source = s.choose()
	slogger().Debug("frame loop started", "source", s.source.Name())
	s.schedule(s.epoch)
	return true
}

// Stop deactivates the scheduler and cancels the pending tick. Safe to
// call when idle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	s.onFrame = nil
	if s.source != nil {
		s.source.Cancel()
	}
	slogger().Debug("frame loop stopped")
}

// Active reports whether the scheduler is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Source returns the name of the current tick source, or "" when none was
// chosen yet.
func (s *Scheduler) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return ""
	}
	return s.source.Name()
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// schedule must be called with s.mu held.
func (s *Scheduler) schedule(epoch uint64) {
	s.source.Schedule(func() { s.tick(epoch) })
}

// current reports whether a tick from epoch may proceed. s.mu must be held.
func (s *Scheduler) current(epoch uint64) bool {
	return s.active && s.epoch == epoch
}

func (s *Scheduler) tick(epoch uint64) {
	s.mu.Lock()
	if !s.current(epoch) {
		s.stats.Dropped++
		s.mu.Unlock()
		return
	}
	s.stats.Ticks++
	onFrame := s.onFrame
	s.mu.Unlock()

	err := runFrame(onFrame)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch err.(type) {
	case nil:
		s.stats.Renders++
	case *panicError:
		s.stats.Panics++
		slogger().Error("frame panicked", "err", err)
	default:
		s.stats.Errors++
		slogger().Warn("frame failed", "err", err)
	}
	if !s.current(epoch) {
		return
	}
	s.schedule(epoch)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

// runFrame calls onFrame and converts a panic into an error.
func runFrame(onFrame func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{value: v}
		}
	}()
	return onFrame()
}
