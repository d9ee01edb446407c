package gpu

import (
	_ "embed"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL shader sources. The color adjustment block is shared and
// prepended to each program variant.

//go:embed shaders/color_adjust.wgsl
var colorAdjustShaderSource string

//go:embed shaders/preview_modern.wgsl
var previewModernShaderSource string

//go:embed shaders/preview_legacy.wgsl
var previewLegacyShaderSource string

const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

// ProgramSource returns the complete WGSL source of the preview program
// for a tier.
func ProgramSource(t Tier) string {
	body := previewModernShaderSource
	if t == TierLegacy {
		body = previewLegacyShaderSource
	}
	return colorAdjustShaderSource + "\n" + body
}

// compiledShader is a validated program in the form the backend consumes.
type compiledShader struct {
	source hal.ShaderSource
	// glsl holds the translated GLSL per entry point (legacy tier only).
	glsl map[string]string
}

// compileShader runs the naga front end over src and produces the
// backend-specific output. Every failure is a *CompileError whose Log
// carries the full diagnostic text.
func compileShader(t Tier, backend gputypes.Backend, src string) (*compiledShader, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, &CompileError{Tier: t, Stage: "parse", Log: err.Error(), Err: err}
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, &CompileError{Tier: t, Stage: "lower", Log: err.Error(), Err: err}
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, &CompileError{Tier: t, Stage: "validate", Log: err.Error(), Err: err}
	}
	if len(verrs) > 0 {
		return nil, &CompileError{Tier: t, Stage: "validate", Log: validationLog(verrs), Err: &verrs[0]}
	}

	out := &compiledShader{}
	switch {
	case backend == gputypes.BackendVulkan:
		code, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
		if err != nil {
			return nil, &CompileError{Tier: t, Stage: "spirv", Log: err.Error(), Err: err}
		}
		out.source.SPIRV = spirvWords(code)
	case t == TierLegacy:
		out.glsl = make(map[string]string, 2)
		for _, entry := range []string{vertexEntryPoint, fragmentEntryPoint} {
			code, _, err := glsl.Compile(module, glsl.Options{
				LangVersion:        glsl.Version430,
				EntryPoint:         entry,
				ForceHighPrecision: true,
			})
			if err != nil {
				return nil, &CompileError{Tier: t, Stage: "glsl " + entry, Log: err.Error(), Err: err}
			}
			out.glsl[entry] = code
		}
		out.source.WGSL = src
	default:
		out.source.WGSL = src
	}
	return out, nil
}

// validationLog joins all validation messages, one per line.
func validationLog(errs []ir.ValidationError) string {
	lines := make([]string, len(errs))
	for i := range errs {
		lines[i] = errs[i].Error()
	}
	return strings.Join(lines, "\n")
}

// spirvWords converts naga's byte output to SPIR-V words.
// SPIR-V is little-endian 32-bit words.
func spirvWords(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = uint32(code[i*4]) |
			uint32(code[i*4+1])<<8 |
			uint32(code[i*4+2])<<16 |
			uint32(code[i*4+3])<<24
	}
	return words
}
