package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/plyview/plyview/common"
	"github.com/plyview/plyview/viewer/mesh"
	"github.com/plyview/plyview/viewer/renderer/program"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTextureView      *wgpu.TextureView
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface
	SetDevice(device *wgpu.Device)
	SetQueue(queue *wgpu.Queue)
	SetInstance(instance *wgpu.Instance)
	SetAdapter(adapter *wgpu.Adapter)
	SetSurface(surface *wgpu.Surface)

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateProgramPipeline creates the shader modules, bind group layout, render pipeline,
	// uniform buffer, and bind group for a program and attaches them via AttachGPU.
	// The pipeline's vertex buffers, entry points, and uniform binding all come from the
	// program's own source reflection.
	//
	// Parameters:
	//   - p: the program to create GPU resources for
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	CreateProgramPipeline(p program.Program) error

	// InitMeshBuffers uploads a mesh's attribute and index arrays into new GPU buffers.
	// Index data is padded to a 4-byte multiple as required for buffer writes; the
	// draw count excludes the padding.
	//
	// Parameters:
	//   - m: the mesh to upload
	//
	// Returns:
	//   - *BoundMesh: the created buffers
	//   - error: an error if buffer creation fails
	InitMeshBuffers(m mesh.Mesh) (*BoundMesh, error)

	// WriteUniform writes one matrix into a program's uniform buffer at the given byte offset.
	//
	// Parameters:
	//   - p: the program whose uniform buffer to write
	//   - offset: the byte offset within the uniform block
	//   - m: the column-major matrix to write
	WriteUniform(p program.Program, offset uint64, m [16]float32)

	// BeginFrame acquires the next swapchain texture, creates a command encoder, and begins
	// the main render pass. Must be paired with EndFrame after all DrawMesh invocations.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawMesh encodes a single indexed draw within the current render pass started by
	// BeginFrame. Vertex buffers are bound at the attribute slots the program resolved
	// by name from its vertex source; the uniform bind group is bound at the given
	// dynamic offset so each draw in the frame reads its own uniform slice.
	//
	// Parameters:
	//   - p: the program to draw with, must hold a valid pipeline
	//   - bm: the bound mesh to draw
	//   - uniformOffset: the dynamic byte offset of this draw's uniform slice
	DrawMesh(p program.Program, bm *BoundMesh, uniformOffset uint32)

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	// Does not present the surface — call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, sampleCount MSAASampleCount) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		sampleCount: sampleCount,
	}
	w.SetSurface(w.instance.CreateSurface(surfaceDescriptor))

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.SetAdapter(a)

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	w.SetDevice(d)
	w.SetQueue(d.GetQueue())

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// The render pass draws into the MSAA texture; the resolved result
		// is written to the swapchain view as the ResolveTarget.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	} else {
		b.msaaTextureView = nil
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard // Don't store MSAA data, just resolve
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				ResolveTarget: nil,               // set per-frame when MSAA is on
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue: wgpu.Color{
					R: 0.0, G: 0.0, B: 0.0, A: 1.0,
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView, // Persistent until resize
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) CreateProgramPipeline(p program.Program) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.Name() + " Vertex Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.VertexSource(),
		},
	})
	if err != nil {
		return err
	}
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.Name() + " Fragment Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.FragmentSource(),
		},
	})
	if err != nil {
		return err
	}

	var bindGroupLayouts []*wgpu.BindGroupLayout
	var uniformBuffer *wgpu.Buffer
	var bindGroup *wgpu.BindGroup

	if p.UniformBlockSize() > 0 {
		layout, layoutErr := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: p.Name() + " Uniform Layout",
			Entries: []wgpu.BindGroupLayoutEntry{
				{
					Binding:    uint32(p.UniformBinding()),
					Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
					Buffer: wgpu.BufferBindingLayout{
						Type:             wgpu.BufferBindingTypeUniform,
						HasDynamicOffset: true,
						MinBindingSize:   p.UniformBlockSize(),
					},
				},
			},
		})
		if layoutErr != nil {
			return fmt.Errorf("failed to create bind group layout for program %s: %w", p.Name(), layoutErr)
		}

		// One aligned slice per draw. Queue writes land before the frame's
		// command buffer executes, so draws sharing a single slice would all
		// read the last write; the dynamic offset gives each draw its own.
		uniformBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.Name() + " Uniform Buffer",
			Size:  p.UniformStride() * maxUniformDraws,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}

		bindGroup, err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  p.Name() + " Bind Group",
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{
					Binding: uint32(p.UniformBinding()),
					Buffer:  uniformBuffer,
					Size:    p.UniformBlockSize(),
				},
			},
		})
		if err != nil {
			uniformBuffer.Release()
			return err
		}

		bindGroupLayouts = append(bindGroupLayouts, layout)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Name(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.Name() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: p.VertexEntry(),
			Buffers:    p.VertexBufferLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: p.FragmentEntry(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    *b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLessEqual,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		if bindGroup != nil {
			bindGroup.Release()
		}
		if uniformBuffer != nil {
			uniformBuffer.Release()
		}
		return err
	}

	p.AttachGPU(created, uniformBuffer, bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(m mesh.Mesh) (*BoundMesh, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bm := &BoundMesh{
		name:       m.Name(),
		indexCount: m.IndexCount(),
	}

	attributes := []struct {
		label string
		data  []float32
		dst   **wgpu.Buffer
	}{
		{" Position Buffer", m.Positions(), &bm.positionBuffer},
		{" Normal Buffer", m.Normals(), &bm.normalBuffer},
		{" Color Buffer", m.Colors(), &bm.colorBuffer},
	}
	for _, attr := range attributes {
		data := common.SliceToBytes(attr.data)
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: m.Name() + attr.label,
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			bm.Release()
			return nil, err
		}
		b.queue.WriteBuffer(buf, 0, data)
		*attr.dst = buf
	}

	// Buffer writes require 4-byte aligned sizes; an odd 16-bit index count
	// gets one padding index that the draw count never reaches.
	indices := m.Indices()
	if len(indices)%2 != 0 {
		indices = append(append(make([]uint16, 0, len(indices)+1), indices...), 0)
	}
	indexData := common.SliceToBytes(indices)

	indexBuffer, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: m.Name() + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		bm.Release()
		return nil, err
	}
	b.queue.WriteBuffer(indexBuffer, 0, indexData)
	bm.indexBuffer = indexBuffer

	return bm, nil
}

func (b *wgpuRendererBackendImpl) WriteUniform(p program.Program, offset uint64, m [16]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := p.UniformBuffer()
	if buf == nil {
		return
	}
	b.queue.WriteBuffer(buf, offset, common.SliceToBytes(m[:]))
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If a previous frame's surface texture is still held, avoid acquiring
	// another one. This prevents wgpu-native validation errors like
	// "Surface image is already acquired" when frames overlap.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	// When MSAA is enabled, the MSAA texture is the color attachment View and
	// the swapchain view is the ResolveTarget. When MSAA is off, the swapchain
	// view is the color attachment View directly.
	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) DrawMesh(p program.Program, bm *BoundMesh, uniformOffset uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.SetPipeline(p.Pipeline())

	if bg := p.BindGroup(); bg != nil {
		b.framePass.SetBindGroup(uint32(p.UniformGroup()), bg, []uint32{uniformOffset})
	}

	slots := []struct {
		name string
		buf  *wgpu.Buffer
	}{
		{"position", bm.PositionBuffer()},
		{"normal", bm.NormalBuffer()},
		{"color", bm.ColorBuffer()},
	}
	for _, s := range slots {
		slot := p.AttributeSlot(s.name)
		if slot < 0 || s.buf == nil {
			continue
		}
		b.framePass.SetVertexBuffer(uint32(slot), s.buf, 0, wgpu.WholeSize)
	}

	b.framePass.SetIndexBuffer(bm.IndexBuffer(), wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(bm.IndexCount()), 1, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuRendererBackendImpl) SetDevice(device *wgpu.Device) {
	b.device = device
}

func (b *wgpuRendererBackendImpl) SetQueue(queue *wgpu.Queue) {
	b.queue = queue
}

func (b *wgpuRendererBackendImpl) SetInstance(instance *wgpu.Instance) {
	b.instance = instance
}

func (b *wgpuRendererBackendImpl) SetAdapter(adapter *wgpu.Adapter) {
	b.adapter = adapter
}

func (b *wgpuRendererBackendImpl) SetSurface(surface *wgpu.Surface) {
	b.surface = surface
}
