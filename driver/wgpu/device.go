// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/driver"
)

var (
	// ErrNilDevice is returned when constructing over a nil HAL device or
	// queue.
	ErrNilDevice = errors.New("wgpu: device and queue must be non-nil")

	// ErrNoHALProvider is returned when a device provider does not expose
	// HAL types.
	ErrNoHALProvider = errors.New("wgpu: provider does not expose HAL device and queue")

	// ErrUnknownResource is returned for operations on released or unknown
	// resource IDs.
	ErrUnknownResource = errors.New("wgpu: unknown resource ID")

	// ErrNoTarget is returned when a draw or read-back is requested with no
	// framebuffer bound.
	ErrNoTarget = errors.New("wgpu: no framebuffer bound")
)

// gpuWaitTimeout bounds fence waits after each submission.
const gpuWaitTimeout = 5 * time.Second

type texture struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

type programKey struct {
	mode    driver.DrawMode
	effects driver.EffectMask
}

// Device implements driver.Device over a wgpu HAL device and queue. Each
// draw encodes its own command buffer and waits for completion, trading
// throughput for the strict ordering the pen layer's persistent surfaces
// require.
//
// The device does not own the HAL device; the host application created it
// and remains responsible for destroying it.
type Device struct {
	device hal.Device
	queue  hal.Queue

	nextID       uint64
	textures     map[driver.TextureID]*texture
	framebuffers map[driver.FramebufferID]driver.TextureID
	buffers      map[driver.BufferID]hal.Buffer
	programs     map[programKey]driver.ProgramID
	modes        map[driver.ProgramID]driver.DrawMode

	linePipe      *linePipeline
	compositePipe *compositePipeline

	boundFB    driver.FramebufferID
	viewportW  int
	viewportH  int
	projection driver.Bounds
	program    driver.ProgramID
	attribs    map[driver.Attrib]driver.BufferID
}

var _ driver.Device = (*Device)(nil)

// NewDevice wraps an existing HAL device and queue.
func NewDevice(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &Device{
		device:       device,
		queue:        queue,
		textures:     make(map[driver.TextureID]*texture),
		framebuffers: make(map[driver.FramebufferID]driver.TextureID),
		buffers:      make(map[driver.BufferID]hal.Buffer),
		programs:     make(map[programKey]driver.ProgramID),
		modes:        make(map[driver.ProgramID]driver.DrawMode),
		attribs:      make(map[driver.Attrib]driver.BufferID),
	}, nil
}

// NewDeviceFromProvider wraps the shared GPU device of a gogpu host
// application. The provider must also expose HAL types through HalDevice()
// and HalQueue().
func NewDeviceFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	return NewDevice(device, queue)
}

// Program returns the interned program ID for a draw mode, creating its
// render pipeline on first use. Hosts built on this device delegate their
// driver.Host Program method here.
func (d *Device) Program(mode driver.DrawMode, effects driver.EffectMask) (driver.ProgramID, error) {
	key := programKey{mode: mode, effects: effects}
	if id, ok := d.programs[key]; ok {
		return id, nil
	}
	switch mode {
	case driver.DrawModeLine:
		if d.linePipe == nil {
			p, err := createLinePipeline(d.device)
			if err != nil {
				return driver.InvalidID, err
			}
			d.linePipe = p
		}
	case driver.DrawModeTexture:
		if d.compositePipe == nil {
			p, err := createCompositePipeline(d.device)
			if err != nil {
				return driver.InvalidID, err
			}
			d.compositePipe = p
		}
	default:
		return driver.InvalidID, fmt.Errorf("wgpu: unsupported draw mode %v", mode)
	}
	id := driver.ProgramID(d.allocID())
	d.programs[key] = id
	d.modes[id] = mode
	return id, nil
}

// Close releases the pipelines the device created. Textures, buffers, and
// framebuffers still held by callers must be released individually first.
func (d *Device) Close() {
	if d.compositePipe != nil {
		d.compositePipe.destroy(d.device)
		d.compositePipe = nil
	}
	if d.linePipe != nil {
		d.linePipe.destroy(d.device)
		d.linePipe = nil
	}
}

func (d *Device) allocID() uint64 {
	d.nextID++
	return d.nextID
}

// NewTexture allocates an RGBA8 texture usable as render target, sampled
// source, and copy source/destination.
func (d *Device) NewTexture(width, height int) (driver.TextureID, error) {
	if width <= 0 || height <= 0 {
		return driver.InvalidID, errors.New("wgpu: texture size must be positive")
	}
	w := uint32(width)
	h := uint32(height)

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "pen_layer",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return driver.InvalidID, fmt.Errorf("create texture: %w", err)
	}

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "pen_layer_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return driver.InvalidID, fmt.Errorf("create texture view: %w", err)
	}

	id := driver.TextureID(d.allocID())
	d.textures[id] = &texture{tex: tex, view: view, width: w, height: h}
	return id, nil
}

// ReleaseTexture frees a texture and its view.
func (d *Device) ReleaseTexture(id driver.TextureID) {
	t, ok := d.textures[id]
	if !ok {
		return
	}
	if t.view != nil {
		d.device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		d.device.DestroyTexture(t.tex)
	}
	delete(d.textures, id)
}

// UploadTexture replaces a texture's pixels with premultiplied RGBA bytes.
func (d *Device) UploadTexture(id driver.TextureID, premultiplied []byte) {
	t, ok := d.textures[id]
	if !ok {
		pen.Logger().Warn("wgpu: upload to unknown texture", "id", uint64(id))
		return
	}
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		premultiplied,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: t.width * 4, RowsPerImage: t.height},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
}

// NewFramebuffer records a render target over an existing texture. HAL has
// no framebuffer object; the binding resolves to the texture's view when a
// pass begins.
func (d *Device) NewFramebuffer(target driver.TextureID) (driver.FramebufferID, error) {
	if _, ok := d.textures[target]; !ok {
		return driver.InvalidID, fmt.Errorf("%w: texture %d", ErrUnknownResource, uint64(target))
	}
	id := driver.FramebufferID(d.allocID())
	d.framebuffers[id] = target
	return id, nil
}

// ReleaseFramebuffer frees a framebuffer, leaving its texture intact.
func (d *Device) ReleaseFramebuffer(id driver.FramebufferID) {
	delete(d.framebuffers, id)
	if d.boundFB == id {
		d.boundFB = driver.InvalidID
	}
}

// BindFramebuffer makes a framebuffer the current render target.
func (d *Device) BindFramebuffer(id driver.FramebufferID, viewportWidth, viewportHeight int) {
	d.boundFB = id
	d.viewportW = viewportWidth
	d.viewportH = viewportHeight
}

// SetProjection sets the layer-to-clip-space mapping for subsequent draws.
func (d *Device) SetProjection(b driver.Bounds) {
	d.projection = b
}

// NewAttribBuffer allocates a vertex buffer holding capacity float32
// values.
func (d *Device) NewAttribBuffer(capacity int) (driver.BufferID, error) {
	if capacity <= 0 {
		return driver.InvalidID, errors.New("wgpu: buffer capacity must be positive")
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pen_attrib",
		Size:  uint64(capacity) * 4,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return driver.InvalidID, fmt.Errorf("create attribute buffer: %w", err)
	}
	id := driver.BufferID(d.allocID())
	d.buffers[id] = buf
	return id, nil
}

// ReleaseBuffer frees an attribute buffer.
func (d *Device) ReleaseBuffer(id driver.BufferID) {
	buf, ok := d.buffers[id]
	if !ok {
		return
	}
	d.device.DestroyBuffer(buf)
	delete(d.buffers, id)
}

// UploadAttribData writes data to the front of an attribute buffer.
func (d *Device) UploadAttribData(id driver.BufferID, data []float32) {
	buf, ok := d.buffers[id]
	if !ok {
		pen.Logger().Warn("wgpu: upload to unknown buffer", "id", uint64(id))
		return
	}
	d.queue.WriteBuffer(buf, 0, float32Bytes(data))
}

// UseProgram makes a program current.
func (d *Device) UseProgram(id driver.ProgramID) {
	d.program = id
}

// BindAttrib attaches a buffer to one of the line program's vertex
// streams. The stream index doubles as the pipeline's vertex buffer slot.
func (d *Device) BindAttrib(program driver.ProgramID, attrib driver.Attrib, buffer driver.BufferID, stride int) {
	_ = program
	_ = stride
	d.attribs[attrib] = buffer
}

// DrawTriangles draws the bound attribute streams with the line pipeline
// into the current render target, loading (not clearing) existing content.
func (d *Device) DrawTriangles(vertexCount int) {
	if err := d.drawTriangles(vertexCount); err != nil {
		pen.Logger().Warn("wgpu: line draw failed", "err", err)
	}
}

func (d *Device) drawTriangles(vertexCount int) error {
	target, err := d.boundTexture()
	if err != nil {
		return err
	}
	if d.linePipe == nil || d.modes[d.program] != driver.DrawModeLine {
		return errors.New("wgpu: line program not bound")
	}
	colorBuf, ok0 := d.buffers[d.attribs[driver.AttribLineColor]]
	thicknessBuf, ok1 := d.buffers[d.attribs[driver.AttribLineThicknessAndLength]]
	pointsBuf, ok2 := d.buffers[d.attribs[driver.AttribPenPoints]]
	if !ok0 || !ok1 || !ok2 {
		return errors.New("wgpu: attribute streams not bound")
	}

	// Uniforms: stage_size + padding.
	uniform := float32Bytes([]float32{
		d.projection.Width(), d.projection.Height(), 0, 0,
	})
	uniformBuf, err := d.createAndUploadBuffer("pen_line_uniform", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer d.device.DestroyBuffer(uniformBuf)

	bindGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "pen_line_bind",
		Layout: d.linePipe.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: lineUniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create line bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bindGroup)

	return d.encodeAndSubmit("pen_line", func(encoder hal.CommandEncoder) error {
		rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "pen_line_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:    target.view,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}},
		})
		rp.SetPipeline(d.linePipe.pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.SetVertexBuffer(0, colorBuf, 0)
		rp.SetVertexBuffer(1, thicknessBuf, 0)
		rp.SetVertexBuffer(2, pointsBuf, 0)
		rp.Draw(uint32(vertexCount), 1, 0, 0)
		rp.End()
		return nil
	})
}

// DrawTexturedRect composites tex over dst in the current render target.
func (d *Device) DrawTexturedRect(program driver.ProgramID, tex driver.TextureID, dst driver.Bounds) {
	_ = program
	if err := d.drawTexturedRect(tex, dst); err != nil {
		pen.Logger().Warn("wgpu: composite draw failed", "err", err)
	}
}

func (d *Device) drawTexturedRect(tex driver.TextureID, dst driver.Bounds) error {
	target, err := d.boundTexture()
	if err != nil {
		return err
	}
	src, ok := d.textures[tex]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, uint64(tex))
	}
	if d.compositePipe == nil {
		return errors.New("wgpu: composite program not created")
	}

	// Uniforms: dst_rect, stage_size, src_size.
	uniform := float32Bytes([]float32{
		dst.Left, dst.Right, dst.Bottom, dst.Top,
		d.projection.Width(), d.projection.Height(),
		float32(src.width), float32(src.height),
	})
	uniformBuf, err := d.createAndUploadBuffer("pen_composite_uniform", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer d.device.DestroyBuffer(uniformBuf)

	bindGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "pen_composite_bind",
		Layout: d.compositePipe.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: compositeUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: src.view.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create composite bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bindGroup)

	return d.encodeAndSubmit("pen_composite", func(encoder hal.CommandEncoder) error {
		// The source may have just been a render target (content
		// migration); transition it for sampling.
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: src.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageTextureBinding,
			},
		}})
		rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "pen_composite_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:    target.view,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}},
		})
		rp.SetPipeline(d.compositePipe.pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.Draw(6, 1, 0, 0)
		rp.End()
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: src.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageTextureBinding,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
		return nil
	})
}

// Clear fills the current render target with transparent black.
func (d *Device) Clear() {
	target, err := d.boundTexture()
	if err != nil {
		pen.Logger().Warn("wgpu: clear failed", "err", err)
		return
	}
	err = d.encodeAndSubmit("pen_clear", func(encoder hal.CommandEncoder) error {
		rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "pen_clear_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       target.view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			}},
		})
		rp.End()
		return nil
	})
	if err != nil {
		pen.Logger().Warn("wgpu: clear failed", "err", err)
	}
}

// ReadPixels copies the current render target into CPU memory as
// premultiplied RGBA bytes via an aligned staging buffer.
func (d *Device) ReadPixels(width, height int) ([]byte, error) {
	target, err := d.boundTexture()
	if err != nil {
		return nil, err
	}
	w := uint32(width)
	h := uint32(height)

	// WebGPU (and DX12) requires BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ uint32(copyPitchAlignment-1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pen_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(stagingBuf)

	err = d.encodeAndSubmit("pen_readback", func(encoder hal.CommandEncoder) error {
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: target.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		encoder.CopyTextureToBuffer(target.tex, stagingBuf, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: target.tex, MipLevel: 0},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}})
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: target.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	readback := make([]byte, stagingSize)
	if err := d.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	if alignedBytesPerRow == bytesPerRow {
		return readback[:uint64(bytesPerRow)*uint64(h)], nil
	}
	// Strip per-row padding from the aligned staging layout.
	tight := make([]byte, uint64(bytesPerRow)*uint64(h))
	for row := uint32(0); row < h; row++ {
		srcOff := int(row) * int(alignedBytesPerRow)
		dstOff := int(row) * int(bytesPerRow)
		copy(tight[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
	}
	return tight, nil
}

func (d *Device) boundTexture() (*texture, error) {
	texID, ok := d.framebuffers[d.boundFB]
	if !ok {
		return nil, ErrNoTarget
	}
	t, ok := d.textures[texID]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", ErrUnknownResource, uint64(texID))
	}
	return t, nil
}

// encodeAndSubmit runs record inside a fresh command encoder, submits the
// result, and waits for the fence so the next operation observes finished
// work.
func (d *Device) encodeAndSubmit(label string, record func(encoder hal.CommandEncoder) error) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	if err := record(encoder); err != nil {
		encoder.DiscardEncoding()
		return err
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (d *Device) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	d.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// float32Bytes converts float32 values to little-endian bytes for GPU
// upload.
func float32Bytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
