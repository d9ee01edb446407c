package gpu

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Target is the destination a context renders into. Zero native handles
// select an offscreen target of the same size.
type Target interface {
	Size() (width, height int)
	ScaleFactor() float64
	NativeHandles() (display, window uintptr)
}

// BackendLookup resolves a backend variant to a registered HAL backend.
type BackendLookup func(gputypes.Backend) (hal.Backend, bool)

// RenderContext is a negotiated device plus everything that was created
// on the way to it. Other components borrow it; only Release frees it.
type RenderContext struct {
	Tier        Tier
	Profile     Profile
	Backend     gputypes.Backend
	Info        gputypes.AdapterInfo
	Device      hal.Device
	Queue       hal.Queue
	Surface     hal.Surface
	Format      gputypes.TextureFormat
	SampleCount uint32
	AlphaMode   gputypes.CompositeAlphaMode

	// Attempts lists every attempt made before and including the one
	// that succeeded.
	Attempts []Attempt

	instance hal.Instance
	adapter  hal.Adapter
	external bool
	released bool

	width, height uint32

	// submitted is the latest submission that may read context resources;
	// drained is the latest one known finished through WaitIdle.
	submitted uint64
	drained   uint64
}

// Offscreen reports whether the context renders without a window surface.
func (rc *RenderContext) Offscreen() bool { return rc.Surface == nil }

// External reports whether the device is borrowed from a host.
func (rc *RenderContext) External() bool { return rc.external }

// Size returns the configured target size in physical pixels.
func (rc *RenderContext) Size() (uint32, uint32) { return rc.width, rc.height }

// trackSubmit records a submission that reads resources of this context.
func (rc *RenderContext) trackSubmit(index uint64) {
	if index > rc.submitted {
		rc.submitted = index
	}
}

// waitInflight blocks until every tracked submission has finished. Call it
// before destroying anything a recorded frame may still read.
func (rc *RenderContext) waitInflight() {
	if rc.Device == nil || rc.Queue == nil || rc.submitted <= rc.drained {
		return
	}
	if rc.submitted <= rc.Queue.PollCompleted() {
		rc.drained = rc.submitted
		return
	}
	slogger().Debug("waiting for in-flight frames", "submission", rc.submitted)
	if err := rc.Device.WaitIdle(); err != nil {
		slogger().Warn("wait idle before resource release", "err", err)
		return
	}
	rc.drained = rc.submitted
}

// Configure (re)configures the surface for the given physical size.
// Offscreen contexts only record the size.
func (rc *RenderContext) Configure(width, height uint32) error {
	if rc.released {
		return ErrReleased
	}
	if width == 0 || height == 0 {
		return hal.ErrZeroArea
	}
	if rc.Surface != nil {
		err := rc.Surface.Configure(rc.Device, &hal.SurfaceConfiguration{
			Width:       width,
			Height:      height,
			Format:      rc.Format,
			Usage:       gputypes.TextureUsageRenderAttachment,
			PresentMode: hal.PresentModeFifo,
			AlphaMode:   rc.AlphaMode,
		})
		if err != nil {
			return fmt.Errorf("configure surface %dx%d: %w", width, height, err)
		}
	}
	rc.width, rc.height = width, height
	return nil
}

// Release frees the surface, device and instance in reverse creation
// order. A borrowed device is left alone. Safe to call more than once.
func (rc *RenderContext) Release() {
	if rc == nil || rc.released {
		return
	}
	rc.released = true
	if rc.Surface != nil {
		if rc.Device != nil {
			rc.Surface.Unconfigure(rc.Device)
		}
		rc.Surface.Destroy()
		rc.Surface = nil
	}
	if rc.Device != nil && !rc.external {
		if err := rc.Device.WaitIdle(); err != nil {
			slogger().Warn("wait idle before release", "err", err)
		}
		rc.Device.Destroy()
	}
	rc.Device = nil
	rc.Queue = nil
	if rc.adapter != nil {
		rc.adapter.Destroy()
		rc.adapter = nil
	}
	if rc.instance != nil {
		rc.instance.Destroy()
		rc.instance = nil
	}
}

// ProviderConfig configures a ContextProvider. Zero fields take defaults.
type ProviderConfig struct {
	Tiers    []Tier
	Profiles []Profile
	Lookup   BackendLookup
	Format   gputypes.TextureFormat
}

// ContextProvider negotiates a RenderContext by walking an ordered plan of
// (tier, backend, profile) attempts and stopping at the first success.
type ContextProvider struct {
	tiers    []Tier
	profiles []Profile
	lookup   BackendLookup
	format   gputypes.TextureFormat
}

// NewContextProvider creates a provider from cfg.
func NewContextProvider(cfg ProviderConfig) *ContextProvider {
	p := &ContextProvider{
		tiers:    cfg.Tiers,
		profiles: cfg.Profiles,
		lookup:   cfg.Lookup,
		format:   cfg.Format,
	}
	if len(p.tiers) == 0 {
		p.tiers = DefaultTiers
	}
	if len(p.profiles) == 0 {
		p.profiles = DefaultProfiles
	}
	if p.lookup == nil {
		p.lookup = hal.GetBackend
	}
	if p.format == gputypes.TextureFormatUndefined {
		p.format = gputypes.TextureFormatBGRA8Unorm
	}
	return p
}

// Plan returns the ordered list of attempts Acquire will make.
func (p *ContextProvider) Plan() []Attempt {
	var plan []Attempt
	for _, tier := range p.tiers {
		for _, b := range tier.Backends() {
			for _, prof := range p.profiles {
				plan = append(plan, Attempt{Tier: tier, Profile: prof, Backend: b})
			}
		}
	}
	return plan
}

// Acquire walks the plan and returns the first context that could be
// created. When every attempt fails the error is an *UnavailableError.
func (p *ContextProvider) Acquire(target Target) (*RenderContext, error) {
	var attempts []Attempt
	missing := make(map[gputypes.Backend]bool)

	for _, a := range p.Plan() {
		if missing[a.Backend] {
			continue
		}
		backend, ok := p.lookup(a.Backend)
		if !ok {
			missing[a.Backend] = true
			a.Err = hal.ErrBackendNotFound
			attempts = append(attempts, a)
			slogger().Debug("backend not registered", "tier", a.Tier, "backend", a.Backend)
			continue
		}

		rc, err := p.try(backend, a, target)
		a.Err = err
		attempts = append(attempts, a)
		if err != nil {
			slogger().Debug("context attempt failed",
				"tier", a.Tier, "backend", a.Backend, "profile", a.Profile, "err", err)
			continue
		}

		rc.Attempts = attempts
		slogger().Info("graphics context acquired",
			"tier", rc.Tier, "backend", rc.Backend, "profile", rc.Profile,
			"adapter", rc.Info.Name, "samples", rc.SampleCount)
		return rc, nil
	}

	return nil, &UnavailableError{Attempts: attempts}
}

// IsSupported runs the same negotiation as Acquire against an offscreen
// target and releases whatever it obtained.
func (p *ContextProvider) IsSupported() bool {
	rc, err := p.Acquire(nil)
	if err != nil {
		return false
	}
	rc.Release()
	return true
}

// try performs one attempt. Everything created before a failure is
// released before returning.
func (p *ContextProvider) try(backend hal.Backend, a Attempt, target Target) (rc *RenderContext, err error) {
	attrs := a.Profile.attributes()

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{
		Backends: backendMask(a.Backend),
	})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	rc = &RenderContext{
		Tier:        a.Tier,
		Profile:     a.Profile,
		Backend:     a.Backend,
		Format:      p.format,
		SampleCount: attrs.sampleCount,
		AlphaMode:   attrs.alphaMode,
		instance:    instance,
	}
	defer func() {
		if err != nil {
			rc.Release()
			rc = nil
		}
	}()

	width, height := PhysicalSize(target)
	if target != nil {
		if display, window := target.NativeHandles(); window != 0 {
			surface, serr := instance.CreateSurface(display, window)
			if serr != nil {
				return rc, fmt.Errorf("create surface: %w", serr)
			}
			rc.Surface = surface
		}
	}

	adapters := instance.EnumerateAdapters(rc.Surface)
	if len(adapters) == 0 {
		return rc, errNoAdapter
	}
	selected := selectAdapter(adapters, attrs.power)
	rc.adapter = selected.Adapter
	rc.Info = selected.Info

	if rc.Surface != nil {
		caps := selected.Adapter.SurfaceCapabilities(rc.Surface)
		if caps == nil {
			return rc, fmt.Errorf("surface capabilities: %w", errNoAdapter)
		}
		if !containsAlpha(caps.AlphaModes, attrs.alphaMode) {
			return rc, fmt.Errorf("%w %v", errAlphaMode, attrs.alphaMode)
		}
		rc.Format = chooseFormat(caps.Formats, p.format)
	}

	if attrs.sampleCount > 1 {
		need := hal.TextureFormatCapabilityMultisample | hal.TextureFormatCapabilityMultisampleResolve
		fc := selected.Adapter.TextureFormatCapabilities(rc.Format)
		if fc.Flags&need != need {
			return rc, errMultisample
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return rc, fmt.Errorf("open device: %w", err)
	}
	rc.Device = open.Device
	rc.Queue = open.Queue

	if err := rc.Configure(width, height); err != nil && !errors.Is(err, hal.ErrZeroArea) {
		return rc, err
	}
	return rc, nil
}

// halProvider is implemented by host device providers that expose the
// underlying HAL objects.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Borrow wraps a device owned by the host. The device is never destroyed
// by Release. provider must expose HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func Borrow(provider any, format gputypes.TextureFormat, target Target) (*RenderContext, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("borrow device: provider %T does not expose HAL objects", provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("borrow device: HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("borrow device: HalQueue is not hal.Queue")
	}
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	var info gputypes.AdapterInfo
	if ip, ok := provider.(interface{ HalAdapterInfo() gputypes.AdapterInfo }); ok {
		info = ip.HalAdapterInfo()
	}

	rc := &RenderContext{
		Tier:        tierOf(info.Backend),
		Profile:     ProfileNoAntialias,
		Backend:     info.Backend,
		Info:        info,
		Device:      device,
		Queue:       queue,
		Format:      format,
		SampleCount: 1,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
		external:    true,
	}
	width, height := PhysicalSize(target)
	if err := rc.Configure(width, height); err != nil && !errors.Is(err, hal.ErrZeroArea) {
		return nil, err
	}
	slogger().Info("borrowed host device", "tier", rc.Tier, "adapter", info.Name)
	return rc, nil
}

// selectAdapter prefers a discrete GPU when high performance is requested,
// otherwise any hardware adapter over a CPU or unknown one.
func selectAdapter(adapters []hal.ExposedAdapter, power gputypes.PowerPreference) *hal.ExposedAdapter {
	rank := func(t gputypes.DeviceType) int {
		switch t {
		case gputypes.DeviceTypeDiscreteGPU:
			if power == gputypes.PowerPreferenceHighPerformance {
				return 3
			}
			return 2
		case gputypes.DeviceTypeIntegratedGPU:
			return 2
		case gputypes.DeviceTypeVirtualGPU:
			return 1
		default:
			return 0
		}
	}
	best := &adapters[0]
	for i := range adapters[1:] {
		if rank(adapters[i+1].Info.DeviceType) > rank(best.Info.DeviceType) {
			best = &adapters[i+1]
		}
	}
	return best
}

func containsAlpha(modes []gputypes.CompositeAlphaMode, m gputypes.CompositeAlphaMode) bool {
	for _, have := range modes {
		if have == m {
			return true
		}
	}
	return false
}

// chooseFormat keeps the preferred format when the surface offers it and
// falls back to the first supported format.
func chooseFormat(formats []gputypes.TextureFormat, preferred gputypes.TextureFormat) gputypes.TextureFormat {
	for _, f := range formats {
		if f == preferred {
			return f
		}
	}
	if len(formats) > 0 {
		return formats[0]
	}
	return preferred
}

func backendMask(b gputypes.Backend) gputypes.Backends {
	switch b {
	case gputypes.BackendVulkan:
		return gputypes.BackendsVulkan
	case gputypes.BackendMetal:
		return gputypes.BackendsMetal
	case gputypes.BackendDX12:
		return gputypes.BackendsDX12
	case gputypes.BackendGL:
		return gputypes.BackendsGL
	default:
		return gputypes.BackendsAll
	}
}

// PhysicalSize converts a target's logical size to pixels. A nil target
// or an empty size gives 0, 0.
func PhysicalSize(target Target) (uint32, uint32) {
	if target == nil {
		return 0, 0
	}
	w, h := target.Size()
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := target.ScaleFactor()
	if scale <= 0 {
		scale = 1
	}
	return uint32(math.Round(float64(w) * scale)), uint32(math.Round(float64(h) * scale))
}
