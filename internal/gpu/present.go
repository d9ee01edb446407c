package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// inflight is a submission whose command buffer and transient view can be
// freed once the queue reports it complete.
type inflight struct {
	index uint64
	cmd   hal.CommandBuffer
	view  hal.TextureView
}

// Presenter records and submits one draw of the frame texture per call,
// into the window surface or an offscreen target.
type Presenter struct {
	rc      *RenderContext
	program *Program
	texture *FrameTexture
	clear   gputypes.Color

	group    hal.BindGroup
	groupGen uint64

	// Offscreen color target, used when the context has no surface.
	target     hal.Texture
	targetView hal.TextureView

	// Multisampled color attachment resolved into the target each frame.
	msaa     hal.Texture
	msaaView hal.TextureView

	attachW, attachH uint32
	wantW, wantH     uint32
	reconfigure      bool

	pending []inflight
	frames  uint64
}

// NewPresenter creates a presenter drawing texture with program.
func NewPresenter(rc *RenderContext, program *Program, texture *FrameTexture, clear gputypes.Color) *Presenter {
	return &Presenter{rc: rc, program: program, texture: texture, clear: clear}
}

// Resize requests a new target size in physical pixels. It takes effect at
// the start of the next Draw.
func (p *Presenter) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	if cw, ch := p.rc.Size(); cw == width && ch == height {
		return
	}
	p.wantW, p.wantH = width, height
	p.reconfigure = true
}

// Frames returns the number of submitted frames.
func (p *Presenter) Frames() uint64 { return p.frames }

// Target returns the offscreen color target, or nil when presenting to a
// surface or before the first draw.
func (p *Presenter) Target() hal.Texture { return p.target }

// Draw renders the current frame texture with the program's current
// uniforms. When no frame has been uploaded yet the target is cleared.
func (p *Presenter) Draw() error {
	p.collect()

	if p.reconfigure {
		w, h := p.wantW, p.wantH
		if w == 0 || h == 0 {
			w, h = p.rc.Size()
		}
		if err := p.rc.Configure(w, h); err != nil {
			return fmt.Errorf("reconfigure: %w", err)
		}
		p.reconfigure = false
	}

	width, height := p.rc.Size()
	if width == 0 || height == 0 {
		width, height = uint32(p.texture.Width()), uint32(p.texture.Height())
	}
	if width == 0 || height == 0 {
		return nil
	}
	if err := p.ensureAttachments(width, height); err != nil {
		return err
	}

	var (
		surfaceTex hal.SurfaceTexture
		view       hal.TextureView
		transient  hal.TextureView
	)
	if p.rc.Surface != nil {
		acquired, err := p.rc.Surface.AcquireTexture(nil)
		if err != nil {
			if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
				p.reconfigure = true
			}
			return fmt.Errorf("acquire surface texture: %w", err)
		}
		surfaceTex = acquired.Texture
		if acquired.Suboptimal {
			p.reconfigure = true
		}
		transient, err = p.rc.Device.CreateTextureView(surfaceTex, &hal.TextureViewDescriptor{
			Label: "preview_surface_view",
		})
		if err != nil {
			p.rc.Surface.DiscardTexture(surfaceTex)
			return fmt.Errorf("create surface view: %w", err)
		}
		view = transient
	} else {
		view = p.targetView
	}

	fail := func(err error) error {
		if transient != nil {
			p.rc.Device.DestroyTextureView(transient)
		}
		if surfaceTex != nil {
			p.rc.Surface.DiscardTexture(surfaceTex)
		}
		return err
	}

	group, err := p.bindGroup()
	if err != nil {
		return fail(fmt.Errorf("create bind group: %w", err))
	}

	encoder, err := p.rc.Device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "preview_frame"})
	if err != nil {
		return fail(fmt.Errorf("create command encoder: %w", err))
	}
	if err := encoder.BeginEncoding("preview_frame"); err != nil {
		return fail(fmt.Errorf("begin encoding: %w", err))
	}

	attachment := hal.RenderPassColorAttachment{
		View:       view,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: p.clear,
	}
	if p.msaaView != nil {
		attachment.View = p.msaaView
		attachment.ResolveTarget = view
	}
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "preview_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{attachment},
	})
	if group != nil {
		p.program.record(pass, group)
	}
	pass.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fail(fmt.Errorf("end encoding: %w", err))
	}
	index, err := p.rc.Queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		p.rc.Device.FreeCommandBuffer(cmd)
		return fail(fmt.Errorf("submit: %w", err))
	}
	p.pending = append(p.pending, inflight{index: index, cmd: cmd, view: transient})
	p.rc.trackSubmit(index)

	if surfaceTex != nil {
		if err := p.rc.Queue.Present(p.rc.Surface, surfaceTex, nil); err != nil {
			if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
				p.reconfigure = true
			}
			return fmt.Errorf("present: %w", err)
		}
	}
	p.frames++
	return nil
}

// bindGroup returns the bind group for the current texture, recreating it
// when the texture object changed. It returns nil while no texture exists.
func (p *Presenter) bindGroup() (hal.BindGroup, error) {
	gen := p.texture.State().Generation
	if p.group != nil && p.groupGen == gen {
		return p.group, nil
	}
	if p.group != nil {
		p.rc.waitInflight()
		p.rc.Device.DestroyBindGroup(p.group)
		p.group = nil
	}
	view := p.texture.View()
	if view == nil {
		return nil, nil
	}
	group, err := p.program.bindGroup(view)
	if err != nil {
		return nil, err
	}
	p.group = group
	p.groupGen = gen
	return group, nil
}

// ensureAttachments (re)creates the offscreen target and the MSAA
// attachment when the size changes.
func (p *Presenter) ensureAttachments(width, height uint32) error {
	if p.attachW == width && p.attachH == height {
		return nil
	}
	p.rc.waitInflight()
	p.destroyAttachments()
	size := hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}

	if p.rc.Surface == nil {
		target, err := p.rc.Device.CreateTexture(&hal.TextureDescriptor{
			Label:         "preview_target",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        p.rc.Format,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			return fmt.Errorf("create offscreen target: %w", err)
		}
		p.target = target
		view, err := p.rc.Device.CreateTextureView(target, &hal.TextureViewDescriptor{Label: "preview_target_view"})
		if err != nil {
			p.destroyAttachments()
			return fmt.Errorf("create offscreen target view: %w", err)
		}
		p.targetView = view
	}

	if p.rc.SampleCount > 1 {
		msaa, err := p.rc.Device.CreateTexture(&hal.TextureDescriptor{
			Label:         "preview_msaa",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   p.rc.SampleCount,
			Dimension:     gputypes.TextureDimension2D,
			Format:        p.rc.Format,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			p.destroyAttachments()
			return fmt.Errorf("create MSAA attachment: %w", err)
		}
		p.msaa = msaa
		view, err := p.rc.Device.CreateTextureView(msaa, &hal.TextureViewDescriptor{Label: "preview_msaa_view"})
		if err != nil {
			p.destroyAttachments()
			return fmt.Errorf("create MSAA view: %w", err)
		}
		p.msaaView = view
	}
	p.attachW, p.attachH = width, height
	return nil
}

func (p *Presenter) destroyAttachments() {
	if p.msaaView != nil {
		p.rc.Device.DestroyTextureView(p.msaaView)
		p.msaaView = nil
	}
	if p.msaa != nil {
		p.rc.Device.DestroyTexture(p.msaa)
		p.msaa = nil
	}
	if p.targetView != nil {
		p.rc.Device.DestroyTextureView(p.targetView)
		p.targetView = nil
	}
	if p.target != nil {
		p.rc.Device.DestroyTexture(p.target)
		p.target = nil
	}
	p.attachW, p.attachH = 0, 0
}

// collect frees command buffers of completed submissions.
func (p *Presenter) collect() {
	if len(p.pending) == 0 {
		return
	}
	done := p.rc.Queue.PollCompleted()
	keep := p.pending[:0]
	for _, f := range p.pending {
		if f.index > done {
			keep = append(keep, f)
			continue
		}
		p.free(f)
	}
	p.pending = keep
}

func (p *Presenter) free(f inflight) {
	p.rc.Device.FreeCommandBuffer(f.cmd)
	if f.view != nil {
		p.rc.Device.DestroyTextureView(f.view)
	}
}

// Destroy waits for outstanding work and releases everything the
// presenter created. Safe to call more than once.
func (p *Presenter) Destroy() {
	if p.rc == nil || p.rc.Device == nil {
		return
	}
	if len(p.pending) > 0 {
		p.rc.waitInflight()
		for _, f := range p.pending {
			p.free(f)
		}
		p.pending = nil
	}
	if p.group != nil {
		p.rc.Device.DestroyBindGroup(p.group)
		p.group = nil
	}
	p.destroyAttachments()
}
