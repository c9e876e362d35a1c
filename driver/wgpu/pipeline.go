// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// lineUniformSize is the byte size of the line uniform buffer.
// Layout: stage_size (vec2<f32>) + padding (vec2<f32>) = 16 bytes.
const lineUniformSize = 16

// compositeUniformSize is the byte size of the composite uniform buffer.
// Layout: dst_rect (vec4<f32>) + stage_size (vec2<f32>) + src_size
// (vec2<f32>) = 32 bytes.
const compositeUniformSize = 32

// linePipeline holds the render pipeline for batched pen segments plus the
// layouts needed to build its per-draw bind groups.
type linePipeline struct {
	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline
}

// compositePipeline holds the render pipeline for textured-rectangle
// composites.
type compositePipeline struct {
	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline
}

// createLinePipeline builds the line segment pipeline: three per-vertex
// attribute streams, premultiplied alpha blending, triangle list, no
// multisampling (pen layers persist ink, so resolves would multiply cost
// for no visible gain on 1px strokes).
func createLinePipeline(device hal.Device) (*linePipeline, error) {
	p := &linePipeline{}

	shader, err := compileShaderModule(device, "pen_line_shader", lineShaderSource)
	if err != nil {
		return nil, err
	}
	p.shader = shader

	uniformLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "pen_line_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("create line uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "pen_line_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("create line pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	// Per-vertex attribute streams as three separate buffers, matching the
	// batch layout: color float32x4, thickness+length float32x2, points
	// float32x4.
	vertexBuffers := []gputypes.VertexBufferLayout{
		{
			ArrayStride: 16,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
			},
		},
		{
			ArrayStride: 8,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 1},
			},
		},
		{
			ArrayStride: 16,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 2},
			},
		},
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "pen_line_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    vertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatRGBA8Unorm,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("create line pipeline: %w", err)
	}
	p.pipeline = pipeline
	return p, nil
}

// destroy releases the pipeline's resources in reverse creation order.
// Safe on a partially created pipeline.
func (p *linePipeline) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.uniformLayout != nil {
		device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// createCompositePipeline builds the textured-rectangle pipeline. The
// source texture is read with textureLoad, so the bind group carries only
// the uniform buffer and the texture view, no sampler.
func createCompositePipeline(device hal.Device) (*compositePipeline, error) {
	p := &compositePipeline{}

	shader, err := compileShaderModule(device, "pen_composite_shader", compositeShaderSource)
	if err != nil {
		return nil, err
	}
	p.shader = shader

	uniformLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "pen_composite_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("create composite uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "pen_composite_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("create composite pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "pen_composite_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatRGBA8Unorm,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("create composite pipeline: %w", err)
	}
	p.pipeline = pipeline
	return p, nil
}

// destroy releases the pipeline's resources in reverse creation order.
// Safe on a partially created pipeline.
func (p *compositePipeline) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.uniformLayout != nil {
		device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
