package camview

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/camview/internal/frameloop"
	"github.com/gogpu/camview/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// Stats summarizes what a renderer has done since it was created.
type Stats struct {
	Frames         uint64 // frames submitted for presentation
	UploadFailures uint64 // frames whose upload failed; the previous frame was kept
	SourceErrors   uint64 // CurrentFrame calls that returned an error
	Reallocations  int    // texture reallocations caused by size changes
	Panics         uint64 // frame callbacks that panicked and were recovered
	Dropped        uint64 // ticks that arrived after Stop
	LastSequence   uint64 // sequence of the last frame announced by a FrameNotifier
}

// Renderer draws a FrameSource into a Surface on the GPU, applying
// FilterParameters to every frame.
//
// All methods are safe for concurrent use. GPU work is serialized by an
// internal mutex, so a frame never observes a partially applied parameter
// update.
type Renderer struct {
	opts options

	mu        sync.Mutex
	state     State
	status    Status
	err       error
	params    FilterParameters
	surface   Surface
	source    FrameSource
	rc        *gpu.RenderContext
	program   *gpu.Program
	texture   *gpu.FrameTexture
	presenter *gpu.Presenter
	scheduler *frameloop.Scheduler
	surfW     int
	surfH     int
	stats     Stats
}

// NewRenderer creates an uninitialized renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{opts: buildOptions(opts)}
	r.params = r.opts.params
	r.scheduler = frameloop.New(r.tickSource)
	return r
}

// Initialize negotiates a graphics context for surface, builds the preview
// program and prepares the frame texture. A nil surface renders offscreen
// at the frame size.
//
// On failure everything built so far is released, the renderer stays
// uninitialized and the cause is available from Err. Initialize never
// panics. Calling it again after success returns StatusOK without doing
// anything.
func (r *Renderer) Initialize(surface Surface, source FrameSource) (status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.state == StateDestroyed:
		return r.failLocked(ErrDestroyed)
	case r.state.initialized():
		return StatusOK
	case source == nil:
		return r.failLocked(ErrNoSource)
	}

	defer func() {
		if v := recover(); v != nil {
			r.releaseLocked()
			status = r.failLocked(fmt.Errorf("camview: initialize panicked: %v", v))
		}
	}()

	if err := r.setupLocked(surface); err != nil {
		r.releaseLocked()
		return r.failLocked(err)
	}

	r.surface, r.source = surface, source
	if surface != nil {
		r.surfW, r.surfH = surface.Size()
	}
	r.state = StateReady
	r.status = StatusOK
	r.err = nil
	Logger().Info("renderer ready", "tier", r.rc.Tier, "backend", r.rc.Backend, "offscreen", r.rc.Offscreen())
	return StatusOK
}

func (r *Renderer) setupLocked(surface Surface) error {
	var target gpu.Target
	if surface != nil {
		target = surface
	}

	var err error
	if r.opts.device != nil {
		r.rc, err = gpu.Borrow(r.opts.device, r.opts.device.SurfaceFormat(), target)
	} else {
		r.rc, err = gpu.NewContextProvider(r.opts.providerConfig()).Acquire(target)
	}
	if err != nil {
		r.rc = nil
		Logger().Error("graphics context unavailable", "err", err)
		return err
	}

	r.program, err = gpu.BuildProgram(r.rc)
	if err != nil {
		r.program = nil
		return err
	}

	r.texture = gpu.NewFrameTexture(r.rc)
	r.presenter = gpu.NewPresenter(r.rc, r.program, r.texture, r.opts.clearColor())

	if err := r.program.SetUniforms(uniformsOf(r.params)); err != nil {
		return fmt.Errorf("camview: write initial parameters: %w", err)
	}
	return nil
}

func (r *Renderer) failLocked(err error) Status {
	r.err = err
	r.status = StatusOf(err)
	if r.state != StateDestroyed {
		r.state = StateUninitialized
	}
	return r.status
}

// SetParameters merges u into the current parameters, clamps the result
// and writes it to the GPU at once. An empty update changes nothing. The
// merged parameters are returned.
func (r *Renderer) SetParameters(u ParameterUpdate) FilterParameters {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.IsEmpty() {
		return r.params
	}
	r.params = u.Apply(r.params)
	if r.program != nil {
		if err := r.program.SetUniforms(uniformsOf(r.params)); err != nil {
			Logger().Warn("parameter update not written", "err", err)
		}
	}
	return r.params
}

// Parameters returns the current parameters.
func (r *Renderer) Parameters() FilterParameters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// Start begins drawing one frame per tick. It returns ErrNotInitialized
// before a successful Initialize and ErrDestroyed after Destroy. Starting
// a running renderer does nothing.
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateDestroyed:
		return ErrDestroyed
	case StateUninitialized:
		return ErrNotInitialized
	case StateRunning:
		return nil
	}
	r.state = StateRunning
	r.scheduler.Start(r.tick)
	Logger().Info("frame loop started", "source", r.scheduler.Source())
	return nil
}

// Stop halts the frame loop and keeps GPU resources. A tick already in
// flight neither draws nor schedules another.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Renderer) stopLocked() {
	if r.state != StateRunning {
		return
	}
	r.scheduler.Stop()
	r.state = StateStopped
	Logger().Info("frame loop stopped")
}

// Destroy stops the loop and releases every GPU object in reverse order of
// creation. It is safe to call more than once.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateDestroyed {
		return
	}
	r.stopLocked()
	r.releaseLocked()
	r.state = StateDestroyed
	r.status = StatusNotInitialized
	r.surface, r.source = nil, nil
}

func (r *Renderer) releaseLocked() {
	if r.presenter != nil {
		r.presenter.Destroy()
		r.presenter = nil
	}
	if r.texture != nil {
		r.stats.Reallocations = r.texture.Stats().Reallocations
		r.texture.Destroy()
		r.texture = nil
	}
	if r.program != nil {
		r.program.Destroy()
		r.program = nil
	}
	if r.rc != nil {
		r.rc.Release()
		r.rc = nil
	}
}

// RenderFrame reads the current frame, uploads it and draws it once. The
// frame loop calls it on every tick; hosts driving their own loop may call
// it directly after Initialize.
//
// Upload failures are logged and absorbed: the previous frame is drawn
// again.
func (r *Renderer) RenderFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.state == StateDestroyed:
		return ErrDestroyed
	case !r.state.initialized():
		return ErrNotInitialized
	}
	return r.renderLocked()
}

// tick is the scheduler callback. It re-checks the running state under
// the renderer lock so that a tick racing with Stop does not draw.
func (r *Renderer) tick() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return nil
	}
	return r.renderLocked()
}

func (r *Renderer) renderLocked() error {
	frame, err := r.source.CurrentFrame()
	if err != nil {
		r.stats.SourceErrors++
		return fmt.Errorf("camview: read frame: %w", err)
	}
	if frame != nil {
		w, h := r.source.Dimensions()
		if err := r.texture.Upload(frame, w, h); err != nil {
			if !errors.Is(err, ErrTextureUpload) {
				return err
			}
			r.stats.UploadFailures++
		}
	}

	r.trackResizeLocked()
	if err := r.presenter.Draw(); err != nil {
		Logger().Warn("frame skipped", "err", err)
		return err
	}
	r.stats.Frames = r.presenter.Frames()
	return nil
}

func (r *Renderer) trackResizeLocked() {
	if r.surface == nil {
		return
	}
	w, h := r.surface.Size()
	if w == r.surfW && h == r.surfH {
		return
	}
	r.surfW, r.surfH = w, h
	pw, ph := gpu.PhysicalSize(r.surface)
	Logger().Debug("surface resized", "width", pw, "height", ph)
	r.presenter.Resize(pw, ph)
}

func (r *Renderer) tickSource() frameloop.TickSource {
	return chooseTickSource(&r.opts, r.source, r.noteFrame)
}

// chooseTickSource picks the frame notifier when source has one and the
// refresh loop otherwise. note sees every announced frame.
func chooseTickSource(o *options, source FrameSource, note func(FrameInfo)) frameloop.TickSource {
	if o.tickSource != nil {
		return o.tickSource()
	}
	var request func(fn func()) (cancel func())
	if n, ok := source.(FrameNotifier); ok {
		request = func(fn func()) func() {
			return n.RequestFrameCallback(func(info FrameInfo) {
				note(info)
				fn()
			})
		}
	}
	return frameloop.Select(request, o.refreshRate)()
}

func (r *Renderer) noteFrame(info FrameInfo) {
	r.mu.Lock()
	r.stats.LastSequence = info.Sequence
	r.mu.Unlock()
}

// State returns the lifecycle state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns the outcome of the last Initialize.
func (r *Renderer) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Err returns the error behind a failed Initialize, or nil.
func (r *Renderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Tier returns the negotiated capability tier. It is meaningful only
// after a successful Initialize.
func (r *Renderer) Tier() Tier {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rc == nil {
		return TierModern
	}
	return r.rc.Tier
}

// Stats returns a snapshot of the renderer counters.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stats
	if r.texture != nil {
		s.Reallocations = r.texture.Stats().Reallocations
	}
	ls := r.scheduler.Stats()
	s.Panics = ls.Panics
	s.Dropped = ls.Dropped
	return s
}

// Target returns the offscreen color target. It is nil when presenting to
// a window or before the first frame.
func (r *Renderer) Target() hal.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.presenter == nil {
		return nil
	}
	return r.presenter.Target()
}

// IsSupported reports whether this renderer's options can produce a
// graphics context. See the package-level IsSupported.
func (r *Renderer) IsSupported() bool {
	if r.opts.device != nil {
		return true
	}
	return gpu.NewContextProvider(r.opts.providerConfig()).IsSupported()
}

func uniformsOf(p FilterParameters) gpu.Uniforms {
	return gpu.Uniforms{
		Brightness: p.Brightness,
		Contrast:   p.Contrast,
		Saturation: p.Saturation,
	}
}
