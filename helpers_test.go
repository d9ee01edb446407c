package camview

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/camview/internal/frameloop"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// noBackends reports every backend as unregistered.
func noBackends(gputypes.Backend) (hal.Backend, bool) { return nil, false }

// noopAs maps the given variants to the noop HAL.
func noopAs(variants ...gputypes.Backend) BackendLookup {
	return func(b gputypes.Backend) (hal.Backend, bool) {
		for _, v := range variants {
			if v == b {
				return noop.API{}, true
			}
		}
		return nil, false
	}
}

// newNoopRenderer returns a renderer negotiating Vulkan on the noop HAL
// and ticking from a manual source.
func newNoopRenderer(opts ...Option) (*Renderer, *frameloop.ManualSource) {
	ticks := frameloop.NewManualSource()
	base := []Option{
		WithBackendLookup(noopAs(gputypes.BackendVulkan, gputypes.BackendGL)),
		withTickSource(func() frameloop.TickSource { return ticks }),
	}
	return NewRenderer(append(base, opts...)...), ticks
}

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// stillSource serves one image, which may be swapped between frames.
type stillSource struct {
	mu      sync.Mutex
	frame   image.Image
	w, h    int
	err     error
	panics  bool
	fetched int
}

func newStillSource(w, h int, c color.RGBA) *stillSource {
	return &stillSource{frame: solidFrame(w, h, c), w: w, h: h}
}

func (s *stillSource) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

func (s *stillSource) CurrentFrame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched++
	if s.panics {
		panic("decoder crashed")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.frame, nil
}

func (s *stillSource) set(frame image.Image, w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame, s.w, s.h = frame, w, h
}

var errDecoder = errors.New("decoder stalled")

// notifyingSource is a stillSource that announces frames on demand.
type notifyingSource struct {
	*stillSource

	mu       sync.Mutex
	pending  func(FrameInfo)
	requests int
	cancels  int
}

func (n *notifyingSource) RequestFrameCallback(fn func(FrameInfo)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests++
	n.pending = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.cancels++
		n.pending = nil
	}
}

// deliver fires the pending callback, if any, on the calling goroutine.
func (n *notifyingSource) deliver(info FrameInfo) bool {
	n.mu.Lock()
	fn := n.pending
	n.pending = nil
	n.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(info)
	return true
}

// hostProvider lends a noop device the way a windowing host would.
type hostProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (h *hostProvider) Device() gpucontext.Device { return h.device }
func (h *hostProvider) Queue() gpucontext.Queue   { return h.queue }

func (h *hostProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

func (h *hostProvider) Adapter() gpucontext.Adapter         { return nil }
func (h *hostProvider) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{} }
func (h *hostProvider) HalDevice() any                      { return h.device }
func (h *hostProvider) HalQueue() any                       { return h.queue }

func (h *hostProvider) HalAdapterInfo() gputypes.AdapterInfo {
	return gputypes.AdapterInfo{Backend: gputypes.BackendVulkan}
}
