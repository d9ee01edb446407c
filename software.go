package camview

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/clone"
	"github.com/gogpu/camview/internal/frameloop"
	"github.com/gogpu/camview/internal/gpu"
	"golang.org/x/image/draw"
)

// SoftwareRenderer is the CPU fallback for hosts without a usable graphics
// context. It applies the same color math as the GPU program and writes
// the result into an *image.RGBA, which the host presents itself.
//
// It has the same lifecycle as Renderer. Tier, profile and device options
// are ignored.
type SoftwareRenderer struct {
	opts options

	mu        sync.Mutex
	state     State
	status    Status
	err       error
	params    FilterParameters
	surface   Surface
	source    FrameSource
	out       *image.RGBA
	scheduler *frameloop.Scheduler
	stats     Stats
}

// NewSoftwareRenderer creates an uninitialized software renderer.
func NewSoftwareRenderer(opts ...Option) *SoftwareRenderer {
	r := &SoftwareRenderer{opts: buildOptions(opts)}
	r.params = r.opts.params
	r.scheduler = frameloop.New(func() frameloop.TickSource {
		return chooseTickSource(&r.opts, r.source, r.noteFrame)
	})
	return r
}

// Initialize attaches the renderer to a surface and a source. The surface
// only supplies the output size; nil means the frame size. It fails only
// without a source or after Destroy.
func (r *SoftwareRenderer) Initialize(surface Surface, source FrameSource) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.state == StateDestroyed:
		r.err, r.status = ErrDestroyed, StatusFailed
		return r.status
	case r.state.initialized():
		return StatusOK
	case source == nil:
		r.err, r.status = ErrNoSource, StatusFailed
		return r.status
	}
	r.surface, r.source = surface, source
	r.state, r.status, r.err = StateReady, StatusOK, nil
	Logger().Info("software renderer ready")
	return StatusOK
}

// SetParameters merges u into the current parameters and clamps the
// result. It takes effect with the next frame.
func (r *SoftwareRenderer) SetParameters(u ParameterUpdate) FilterParameters {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !u.IsEmpty() {
		r.params = u.Apply(r.params)
	}
	return r.params
}

// Parameters returns the current parameters.
func (r *SoftwareRenderer) Parameters() FilterParameters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// Start begins processing one frame per tick.
func (r *SoftwareRenderer) Start() error {
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
	return nil
}

// Stop halts the frame loop. The last output image is kept.
func (r *SoftwareRenderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *SoftwareRenderer) stopLocked() {
	if r.state != StateRunning {
		return
	}
	r.scheduler.Stop()
	r.state = StateStopped
}

// Destroy stops the loop and drops the output image. Safe to call more
// than once.
func (r *SoftwareRenderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateDestroyed {
		return
	}
	r.stopLocked()
	r.out = nil
	r.surface, r.source = nil, nil
	r.state, r.status = StateDestroyed, StatusNotInitialized
}

// RenderFrame processes the current frame once.
func (r *SoftwareRenderer) RenderFrame() error {
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

func (r *SoftwareRenderer) tick() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return nil
	}
	return r.renderLocked()
}

func (r *SoftwareRenderer) renderLocked() error {
	frame, err := r.source.CurrentFrame()
	if err != nil {
		r.stats.SourceErrors++
		return fmt.Errorf("camview: read frame: %w", err)
	}

	empty := frame == nil || frame.Bounds().Empty()
	w, h := r.outputSize(frame, empty)
	if w <= 0 || h <= 0 {
		return nil
	}

	var dst *image.RGBA
	switch {
	case empty:
		if r.out != nil && r.out.Rect.Dx() == w && r.out.Rect.Dy() == h {
			// Nothing new; keep showing the last frame.
			r.stats.Frames++
			return nil
		}
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Rect, image.NewUniform(r.opts.clear), image.Point{}, draw.Src)
	case frame.Bounds() == image.Rect(0, 0, w, h):
		dst = clone.AsRGBA(frame)
	case frame.Bounds().Dx() == w && frame.Bounds().Dy() == h:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Rect, frame, frame.Bounds().Min, draw.Src)
	default:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Rect, frame, frame.Bounds(), draw.Src, nil)
	}

	if !empty {
		if r.out != nil && (r.out.Rect.Dx() != w || r.out.Rect.Dy() != h) {
			r.stats.Reallocations++
		}
		if !r.params.IsNeutral() {
			p := r.params
			dst = adjust.Apply(dst, func(c color.RGBA) color.RGBA { return AdjustColor(c, p) })
		}
	}
	r.out = dst
	r.stats.Frames++
	return nil
}

// outputSize is the surface size when known, then the source's nominal
// size, then the frame's own bounds.
func (r *SoftwareRenderer) outputSize(frame image.Image, empty bool) (int, int) {
	if r.surface != nil {
		if w, h := gpu.PhysicalSize(r.surface); w > 0 && h > 0 {
			return int(w), int(h)
		}
	}
	if w, h := r.source.Dimensions(); w > 0 && h > 0 {
		return w, h
	}
	if !empty {
		return frame.Bounds().Dx(), frame.Bounds().Dy()
	}
	if r.out != nil {
		return r.out.Rect.Dx(), r.out.Rect.Dy()
	}
	return 0, 0
}

func (r *SoftwareRenderer) noteFrame(info FrameInfo) {
	r.mu.Lock()
	r.stats.LastSequence = info.Sequence
	r.mu.Unlock()
}

// Image returns the last processed frame, or nil before the first one.
// A new image is allocated per frame, so the result may be kept but must
// not be modified.
func (r *SoftwareRenderer) Image() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out
}

// State returns the lifecycle state.
func (r *SoftwareRenderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns the outcome of the last Initialize.
func (r *SoftwareRenderer) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Err returns the error behind a failed Initialize, or nil.
func (r *SoftwareRenderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Stats returns a snapshot of the renderer counters.
func (r *SoftwareRenderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	ls := r.scheduler.Stats()
	s.Panics, s.Dropped = ls.Panics, ls.Dropped
	return s
}
