// Package gpu implements the GPU side of the camview preview renderer.
//
// It is an internal package used by camview. Rendering goes through the
// gogpu/wgpu HAL (zero CGO), so the same code drives Vulkan, Metal, DX12
// and OpenGL, plus the noop backend in tests.
//
// # Architecture Overview
//
// One preview frame flows through four pieces:
//
//	ContextProvider -> RenderContext
//	BuildProgram    -> Program       (color adjust pipeline)
//	FrameTexture    -> frame texture (upload policy)
//	Presenter       -> render pass   (draw + present)
//
// Key components:
//
//   - ContextProvider: tries each tier and attribute profile in order and
//     returns the first usable RenderContext
//   - Program: the WGSL color adjustment shader compiled for the context
//     tier and linked into a render pipeline
//   - FrameTexture: owns the single texture holding the current frame and
//     decides between in-place update and reallocation
//   - Presenter: records one full-screen draw and presents it to the
//     surface, or renders offscreen when there is no window
//
// # Tiers
//
// The modern tier (Vulkan, Metal, DX12) draws a vertex-less full-screen
// triangle and allocates fixed-size texture storage. The legacy tier
// (OpenGL) draws a two-triangle quad from a vertex buffer, translates the
// shader to GLSL 4.30 and re-specifies texture storage in place.
//
// # Color Adjustment
//
// The fragment stage applies, in order:
//
//	rgb = rgb + brightness
//	rgb = (rgb - 0.5) * contrast + 0.5
//	rgb = mix(vec3(dot(rgb, (0.2126, 0.7152, 0.0722))), rgb, saturation)
//
// and clamps the result to [0, 1]. Alpha passes through unchanged.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. The camview renderer
// serializes all calls under its own mutex.
//
// # Error Handling
//
// Common errors returned by this package:
//
//   - ErrContextUnavailable: every tier and profile failed (see UnavailableError)
//   - *CompileError: the shader did not parse, lower, validate or translate
//   - *LinkError: a pipeline object could not be created
//   - ErrTextureUpload: a frame could not be uploaded; the previous frame stays
//   - ErrReleased: the context or program was already released
package gpu
