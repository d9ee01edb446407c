// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// uniformBufferSize is the byte size of the color adjustment uniform block.
// Layout: brightness, contrast, saturation, padding (f32 each) = 16 bytes.
const uniformBufferSize = 16

// Bindings of the preview program's single bind group.
const (
	bindingParams  = 0
	bindingTexture = 1
	bindingSampler = 2
)

// Uniform locates a named program input: its binding in group 0 and, for
// members of the uniform block, the byte offset within it.
type Uniform struct {
	Binding uint32
	Offset  uint64
}

// programUniforms maps uniform names to their handles. It is identical for
// both variants; the shared color block declares them.
var programUniforms = map[string]Uniform{
	"texture":    {Binding: bindingTexture},
	"brightness": {Binding: bindingParams, Offset: 0},
	"contrast":   {Binding: bindingParams, Offset: 4},
	"saturation": {Binding: bindingParams, Offset: 8},
}

// Uniforms are the values written into the uniform block. Callers clamp
// them before writing.
type Uniforms struct {
	Brightness float32
	Contrast   float32
	Saturation float32
}

// bytes encodes u in the uniform block layout.
func (u Uniforms) bytes() []byte {
	buf := make([]byte, uniformBufferSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(u.Brightness))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(u.Contrast))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(u.Saturation))
	return buf
}

// Program is the linked preview pipeline plus the resources it reads:
// uniform buffer, sampler and, on the legacy tier, the quad vertex buffer.
// It is immutable after BuildProgram except for uniform values.
type Program struct {
	Tier   Tier
	device hal.Device
	queue  hal.Queue

	shader      hal.ShaderModule
	groupLayout hal.BindGroupLayout
	pipeLayout  hal.PipelineLayout
	pipeline    hal.RenderPipeline
	sampler     hal.Sampler
	uniformBuf  hal.Buffer
	quad        hal.Buffer

	uniforms map[string]Uniform
	glsl     map[string]string
	current  Uniforms
}

// BuildProgram compiles the variant for rc's tier and links it against
// rc's surface format and sample count. A front-end failure is a
// *CompileError; a failure creating any GPU object is a *LinkError.
// Nothing is left allocated on failure.
func BuildProgram(rc *RenderContext) (*Program, error) {
	compiled, err := compileShader(rc.Tier, rc.Backend, ProgramSource(rc.Tier))
	if err != nil {
		slogger().Error("shader compile failed", "tier", rc.Tier, "err", err)
		return nil, err
	}

	p := &Program{
		Tier:     rc.Tier,
		device:   rc.Device,
		queue:    rc.Queue,
		uniforms: programUniforms,
		glsl:     compiled.glsl,
	}
	if err := p.link(compiled, rc.Format, rc.SampleCount); err != nil {
		p.Destroy()
		slogger().Error("program link failed", "tier", rc.Tier, "err", err)
		return nil, err
	}
	slogger().Debug("preview program built", "tier", rc.Tier, "format", rc.Format, "samples", rc.SampleCount)
	return p, nil
}

func (p *Program) link(compiled *compiledShader, format gputypes.TextureFormat, samples uint32) error {
	linkErr := func(object string, err error) error {
		return &LinkError{Tier: p.Tier, Object: object, Err: err}
	}

	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "preview_shader_" + p.Tier.String(),
		Source: compiled.source,
	})
	if err != nil {
		return linkErr("shader module", err)
	}
	p.shader = shader

	groupLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "preview_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    bindingParams,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    bindingTexture,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    bindingSampler,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return linkErr("bind group layout", err)
	}
	p.groupLayout = groupLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "preview_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.groupLayout},
	})
	if err != nil {
		return linkErr("pipeline layout", err)
	}
	p.pipeLayout = pipeLayout

	var buffers []gputypes.VertexBufferLayout
	if p.Tier == TierLegacy {
		buffers = quadVertexLayout()
	}
	replace := gputypes.BlendStateReplace()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "preview_pipeline_" + p.Tier.String(),
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: vertexEntryPoint,
			Buffers:    buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: fragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     &replace,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: samples,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return linkErr("render pipeline", err)
	}
	p.pipeline = pipeline

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "preview_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return linkErr("sampler", err)
	}
	p.sampler = sampler

	uniformBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "preview_uniforms",
		Size:  uniformBufferSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return linkErr("uniform buffer", err)
	}
	p.uniformBuf = uniformBuf

	if p.Tier == TierLegacy {
		quad, err := createQuad(p.device, p.queue)
		if err != nil {
			return linkErr("quad buffer", err)
		}
		p.quad = quad
	}
	return nil
}

// Uniform returns the handle for a named uniform: texture, brightness,
// contrast or saturation.
func (p *Program) Uniform(name string) (Uniform, bool) {
	u, ok := p.uniforms[name]
	return u, ok
}

// GLSL returns the translated GLSL of an entry point. Only legacy
// programs carry a translation.
func (p *Program) GLSL(entry string) string {
	return p.glsl[entry]
}

// SetUniforms replaces the whole uniform block with one queue write, so a
// draw never observes a partially updated block.
func (p *Program) SetUniforms(u Uniforms) error {
	if p.uniformBuf == nil {
		return ErrReleased
	}
	if err := p.queue.WriteBuffer(p.uniformBuf, 0, u.bytes()); err != nil {
		return err
	}
	p.current = u
	return nil
}

// Uniforms returns the values of the last successful SetUniforms.
func (p *Program) Uniforms() Uniforms { return p.current }

// bindGroup creates the bind group pairing the uniform block and sampler
// with a texture view.
func (p *Program) bindGroup(view hal.TextureView) (hal.BindGroup, error) {
	return p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "preview_bind_group",
		Layout: p.groupLayout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding: bindingParams,
				Resource: gputypes.BufferBinding{
					Buffer: p.uniformBuf.NativeHandle(),
					Offset: 0,
					Size:   uniformBufferSize,
				},
			},
			{
				Binding:  bindingTexture,
				Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()},
			},
			{
				Binding:  bindingSampler,
				Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()},
			},
		},
	})
}

// record issues the draw for one frame into an open render pass.
func (p *Program) record(pass hal.RenderPassEncoder, group hal.BindGroup) {
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, group, nil)
	if p.quad != nil {
		pass.SetVertexBuffer(0, p.quad, 0)
		pass.Draw(quadVertexCount, 1, 0, 0)
		return
	}
	pass.Draw(3, 1, 0, 0)
}

// Destroy releases GPU objects in reverse creation order. Safe to call
// more than once.
func (p *Program) Destroy() {
	if p.device == nil {
		return
	}
	if p.quad != nil {
		p.device.DestroyBuffer(p.quad)
		p.quad = nil
	}
	if p.uniformBuf != nil {
		p.device.DestroyBuffer(p.uniformBuf)
		p.uniformBuf = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.groupLayout != nil {
		p.device.DestroyBindGroupLayout(p.groupLayout)
		p.groupLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
	p.device = nil
}
