package camview

import (
	"image/color"

	"github.com/gogpu/camview/internal/frameloop"
	"github.com/gogpu/camview/internal/gpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Tier is a capability tier: the modern tier runs on Vulkan, Metal or DX12
// with immutable texture storage, the legacy tier on OpenGL with mutable
// storage.
type Tier = gpu.Tier

// Capability tiers, in default negotiation order.
const (
	TierModern = gpu.TierModern
	TierLegacy = gpu.TierLegacy
)

// Profile is a set of context attributes tried within a tier. Each profile
// after the first keeps the earlier relaxations and adds one.
type Profile = gpu.Profile

// Attribute profiles, in default negotiation order.
const (
	ProfileBare            = gpu.ProfileBare
	ProfileNoAntialias     = gpu.ProfileNoAntialias
	ProfileHighPerformance = gpu.ProfileHighPerformance
	ProfileNoAlpha         = gpu.ProfileNoAlpha
)

// BackendLookup resolves a backend variant to a registered wgpu HAL
// backend. The default is hal.GetBackend.
type BackendLookup = gpu.BackendLookup

// Option configures a renderer during creation.
//
// Example:
//
//	r := camview.NewRenderer(
//	    camview.WithTiers(camview.TierLegacy),
//	    camview.WithRefreshRate(30),
//	)
type Option func(*options)

type options struct {
	params      FilterParameters
	tiers       []Tier
	profiles    []Profile
	device      gpucontext.DeviceProvider
	lookup      BackendLookup
	refreshRate float64
	clear       color.RGBA
	tickSource  func() frameloop.TickSource
}

func defaultOptions() options {
	return options{
		params:      DefaultParameters(),
		tiers:       gpu.DefaultTiers,
		profiles:    gpu.DefaultProfiles,
		refreshRate: frameloop.DefaultRefreshRate,
		clear:       color.RGBA{A: 0xff},
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithParameters sets the initial filter parameters. They are clamped.
func WithParameters(p FilterParameters) Option {
	return func(o *options) {
		o.params = p.Clamp()
	}
}

// WithTiers sets which capability tiers are tried, in order. An empty list
// keeps the default of modern, then legacy.
func WithTiers(tiers ...Tier) Option {
	return func(o *options) {
		if len(tiers) > 0 {
			o.tiers = tiers
		}
	}
}

// WithProfiles sets which attribute profiles are tried within each tier,
// in order.
func WithProfiles(profiles ...Profile) Option {
	return func(o *options) {
		if len(profiles) > 0 {
			o.profiles = profiles
		}
	}
}

// WithDeviceProvider makes the renderer borrow the host's device instead
// of negotiating its own. The provider must also expose the HAL objects
// through HalDevice() and HalQueue(), as gogpu does. The borrowed device
// is never destroyed by the renderer.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.device = p
	}
}

// WithBackendLookup replaces the HAL backend registry used during
// negotiation.
func WithBackendLookup(lookup BackendLookup) Option {
	return func(o *options) {
		o.lookup = lookup
	}
}

// WithRefreshRate sets the polling rate in Hz used when the frame source
// does not implement FrameNotifier. Non-positive values keep the default
// of 60.
func WithRefreshRate(hz float64) Option {
	return func(o *options) {
		if hz > 0 {
			o.refreshRate = hz
		}
	}
}

// WithClearColor sets the color drawn before the first frame arrives.
func WithClearColor(c color.Color) Option {
	return func(o *options) {
		o.clear = color.RGBAModel.Convert(c).(color.RGBA)
	}
}

// withTickSource overrides tick source selection.
func withTickSource(choose func() frameloop.TickSource) Option {
	return func(o *options) {
		o.tickSource = choose
	}
}

func (o *options) providerConfig() gpu.ProviderConfig {
	return gpu.ProviderConfig{
		Tiers:    o.tiers,
		Profiles: o.profiles,
		Lookup:   o.lookup,
	}
}

func (o *options) clearColor() gputypes.Color {
	return gputypes.Color{
		R: float64(o.clear.R) / 0xff,
		G: float64(o.clear.G) / 0xff,
		B: float64(o.clear.B) / 0xff,
		A: float64(o.clear.A) / 0xff,
	}
}
