// Package camview renders a live video preview on the GPU with real-time
// brightness, contrast and saturation adjustment.
//
// # Overview
//
// camview sits between a frame source (a camera, a decoder, a test
// pattern) and a window. Each frame is uploaded to a texture, drawn as a
// full-screen quad through a color adjustment shader and presented at the
// source's own frame cadence. Rendering goes through gogpu/wgpu, so the
// same code runs on Vulkan, Metal, DX12 and OpenGL without CGO.
//
// # Quick Start
//
//	r := camview.NewRenderer(camview.WithParameters(camview.FilterParameters{
//	    Brightness: 0.1,
//	    Contrast:   1.2,
//	    Saturation: 1,
//	}))
//	defer r.Destroy()
//
//	if st := r.Initialize(window, source); st != camview.StatusOK {
//	    log.Printf("GPU preview unavailable: %v", r.Err())
//	    // fall back to camview.NewSoftwareRenderer
//	}
//	if err := r.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// From any goroutine, e.g. a settings panel:
//	r.SetParameters(camview.ParameterUpdate{Contrast: camview.Float(1.5)})
//
// # Capability Tiers
//
// Initialize negotiates a device by trying each tier and attribute
// profile in order (see [WithTiers] and [WithProfiles]). The modern tier
// uses Vulkan, Metal or DX12 with immutable texture storage. The legacy
// tier uses OpenGL with mutable storage and a vertex-fed quad. When no
// combination works Initialize reports [StatusContextUnavailable] and the
// host is expected to degrade to [SoftwareRenderer]. [NewBest] does that
// selection automatically.
//
// # Frame Scheduling
//
// When the source implements [FrameNotifier] the renderer draws once per
// delivered frame. Otherwise it polls the source at the display refresh
// rate ([WithRefreshRate]). Stop is cooperative: a callback already in
// flight neither renders nor schedules another.
//
// # Parameters
//
// [FilterParameters] are clamped to brightness [-2, 2], contrast [0, 10]
// and saturation [0, 10]. The defaults (0, 1, 1) leave the image
// unchanged. [AdjustColor] is the CPU reference of the shader math.
//
// # Logging
//
// camview is silent by default. Call [SetLogger] to receive slog records
// from the renderer, the GPU layer and the wgpu HAL.
package camview
