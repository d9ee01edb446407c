package camview

import (
	"github.com/gogpu/gpucontext"
)

// Registry names of the preview renderers.
const (
	BackendGPU      = "gpu"
	BackendSoftware = "software"
)

// PreviewRenderer is the lifecycle shared by Renderer and SoftwareRenderer.
type PreviewRenderer interface {
	Initialize(surface Surface, source FrameSource) Status
	SetParameters(u ParameterUpdate) FilterParameters
	Parameters() FilterParameters
	Start() error
	Stop()
	Destroy()
	RenderFrame() error
	State() State
	Status() Status
	Err() error
	Stats() Stats
}

var (
	_ PreviewRenderer = (*Renderer)(nil)
	_ PreviewRenderer = (*SoftwareRenderer)(nil)
)

// IsSupported reports whether a graphics context can be created with the
// given options. It runs the full negotiation against an offscreen target
// and releases the result. It never panics.
func IsSupported(opts ...Option) bool {
	return NewRenderer(opts...).IsSupported()
}

// Backends returns a registry of the renderers usable with opts, in
// priority order gpu, software. The gpu entry is registered only when
// IsSupported reports true.
func Backends(opts ...Option) *gpucontext.Registry[PreviewRenderer] {
	reg := gpucontext.NewRegistry[PreviewRenderer](
		gpucontext.WithPriority(BackendGPU, BackendSoftware),
	)
	if IsSupported(opts...) {
		reg.Register(BackendGPU, func() PreviewRenderer { return NewRenderer(opts...) })
	} else {
		o := buildOptions(opts)
		Logger().Info("GPU preview unsupported, using software renderer",
			"tiers", o.tiers, "profiles", o.profiles)
	}
	reg.Register(BackendSoftware, func() PreviewRenderer { return NewSoftwareRenderer(opts...) })
	return reg
}

// NewBest returns the GPU renderer when the platform supports it and the
// software renderer otherwise, together with the chosen registry name.
func NewBest(opts ...Option) (PreviewRenderer, string) {
	reg := Backends(opts...)
	return reg.Best(), reg.BestName()
}
