package frameloop

import (
	"sync"
	"time"
)

// TickSource delivers frame ticks. Schedule arranges for fn to run once at
// the next frame; Cancel drops whatever is pending. A tick that was already
// dispatched when Cancel runs may still arrive, so consumers re-check their
// own state on every tick.
type TickSource interface {
	Name() string
	Schedule(fn func())
	Cancel()
}

// NotifierSource drives ticks from a per-frame callback registration such
// as a video element's frame-presented notification.
type NotifierSource struct {
	request func(fn func()) (cancel func())

	mu     sync.Mutex
	cancel func()
}

// NewNotifierSource wraps request, which must call fn once when the next
// frame is available and return a function that withdraws the request.
// request must not call fn before returning.
func NewNotifierSource(request func(fn func()) (cancel func())) *NotifierSource {
	return &NotifierSource{request: request}
}

func (s *NotifierSource) Name() string { return "notifier" }

func (s *NotifierSource) Schedule(fn func()) {
	cancel := s.request(fn)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *NotifierSource) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// DefaultRefreshRate is used when no display refresh rate is known.
const DefaultRefreshRate = 60.0

// RefreshSource ticks at a fixed display refresh rate. Deadlines advance
// by whole intervals so timer latency does not accumulate; a deadline that
// has already passed is moved one interval past now.
type RefreshSource struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	now      func() time.Time
}

// NewRefreshSource creates a source ticking hz times per second. A
// non-positive hz uses DefaultRefreshRate.
func NewRefreshSource(hz float64) *RefreshSource {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return &RefreshSource{
		interval: time.Duration(float64(time.Second) / hz),
		now:      time.Now,
	}
}

func (s *RefreshSource) Name() string { return "refresh" }

// Interval returns the time between ticks.
func (s *RefreshSource) Interval() time.Duration { return s.interval }

func (s *RefreshSource) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.deadline.IsZero() {
		s.deadline = now
	}
	s.deadline = s.deadline.Add(s.interval)
	if !s.deadline.After(now) {
		s.deadline = now.Add(s.interval)
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.deadline.Sub(now), fn)
}

func (s *RefreshSource) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = time.Time{}
}

// ManualSource holds scheduled callbacks until Step runs them. It drives
// headless rendering and deterministic tests.
type ManualSource struct {
	mu      sync.Mutex
	pending []func()
}

// NewManualSource creates an empty manual source.
func NewManualSource() *ManualSource { return &ManualSource{} }

func (s *ManualSource) Name() string { return "manual" }

func (s *ManualSource) Schedule(fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

func (s *ManualSource) Cancel() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Pending returns the number of scheduled callbacks.
func (s *ManualSource) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Step runs the callbacks scheduled so far and returns how many ran.
// Callbacks scheduled while stepping wait for the next Step.
func (s *ManualSource) Step() int {
	s.mu.Lock()
	run := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range run {
		fn()
	}
	return len(run)
}

// Take removes the scheduled callbacks without running them, so a caller
// can fire a stale tick after Cancel.
func (s *ManualSource) Take() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := s.pending
	s.pending = nil
	return run
}
