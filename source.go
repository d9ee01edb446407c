package camview

import (
	"image"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
)

// FrameSource supplies video frames. It is polled once per tick from the
// render goroutine and must be safe to call from there.
type FrameSource interface {
	// Dimensions returns the nominal frame size. 0, 0 means unknown, in
	// which case every frame is uploaded at its own bounds.
	Dimensions() (width, height int)

	// CurrentFrame returns the most recent frame. A nil image with a nil
	// error means no frame is available yet.
	CurrentFrame() (image.Image, error)
}

// FrameInfo describes a delivered frame.
type FrameInfo struct {
	// Sequence increases by one per delivered frame.
	Sequence uint64

	// Timestamp is the presentation time relative to the start of the
	// stream.
	Timestamp time.Duration
}

// FrameNotifier is implemented by sources that can announce frames. When
// the source passed to Initialize implements it, the renderer draws once
// per announced frame instead of polling at the refresh rate.
type FrameNotifier interface {
	// RequestFrameCallback arranges for fn to be called once, on any
	// goroutine, when the next frame is available. fn must not be called
	// before RequestFrameCallback returns. The returned cancel func
	// withdraws the request if it has not fired.
	RequestFrameCallback(fn func(FrameInfo)) (cancel func())
}

// Surface is the window the preview is presented to. Zero native handles
// select an offscreen target of the window's size, readable through
// Renderer.Target.
type Surface interface {
	gpucontext.WindowProvider

	// NativeHandles returns the platform display and window handles
	// (X11 Display* and Window, HINSTANCE and HWND, or 0 and CAMetalLayer*).
	NativeHandles() (display, window uintptr)
}

// OffscreenSurface is a Surface without a window. It is safe to resize
// while a renderer reads it.
type OffscreenSurface struct {
	mu  sync.Mutex
	win gpucontext.NullWindowProvider
}

// NewOffscreenSurface returns an offscreen surface of the given size.
func NewOffscreenSurface(width, height int) *OffscreenSurface {
	return &OffscreenSurface{win: gpucontext.NullWindowProvider{W: width, H: height, SF: 1}}
}

// Resize changes the reported size. The renderer picks it up on the next
// frame.
func (s *OffscreenSurface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.win.W, s.win.H = width, height
}

// Size returns the size in logical points.
func (s *OffscreenSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.win.Size()
}

// ScaleFactor returns 1.
func (s *OffscreenSurface) ScaleFactor() float64 { return s.win.ScaleFactor() }

// RequestRedraw does nothing; the frame loop drives offscreen rendering.
func (s *OffscreenSurface) RequestRedraw() { s.win.RequestRedraw() }

// NativeHandles returns zero handles.
func (s *OffscreenSurface) NativeHandles() (display, window uintptr) { return 0, 0 }

var _ Surface = (*OffscreenSurface)(nil)
