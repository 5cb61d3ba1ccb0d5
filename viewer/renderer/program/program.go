package program

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoVertexEntry is returned when the vertex source declares no
	// @vertex entry point.
	ErrNoVertexEntry = errors.New("program: no vertex entry point")

	// ErrNoFragmentEntry is returned when the fragment source declares no
	// @fragment entry point.
	ErrNoFragmentEntry = errors.New("program: no fragment entry point")
)

// uniformOffsetAlignment is WebGPU's guaranteed
// minUniformBufferOffsetAlignment; dynamic bind group offsets must be
// multiples of it.
const uniformOffsetAlignment = 256

// programImpl is the implementation of the Program interface.
type programImpl struct {
	mu *sync.Mutex

	name           string
	vertexSource   string
	fragmentSource string

	vertexEntry   string
	fragmentEntry string

	attributes map[string]attributeInfo
	uniforms   uniformBlock
	hasUniform bool

	pipeline      *wgpu.RenderPipeline
	uniformBuffer *wgpu.Buffer
	bindGroup     *wgpu.BindGroup
}

// Program defines the interface for a shader program: a vertex/fragment
// source pair whose attribute slots and uniform member offsets are resolved
// by name from the source itself. GPU handles are attached by the renderer
// when the program is registered; until then (or when pipeline creation has
// failed) the program reports Valid() == false and draws with it are
// skipped.
type Program interface {
	// Name retrieves the program identifier, used in diagnostics.
	//
	// Returns:
	//   - string: the program name
	Name() string

	// VertexSource retrieves the vertex stage source code.
	//
	// Returns:
	//   - string: the vertex source
	VertexSource() string

	// FragmentSource retrieves the fragment stage source code.
	//
	// Returns:
	//   - string: the fragment source
	FragmentSource() string

	// VertexEntry retrieves the vertex entry point function name.
	//
	// Returns:
	//   - string: the entry point name
	VertexEntry() string

	// FragmentEntry retrieves the fragment entry point function name.
	//
	// Returns:
	//   - string: the entry point name
	FragmentEntry() string

	// AttributeSlot resolves a vertex attribute to its shader location by
	// name.
	//
	// Parameters:
	//   - name: the attribute name as written in the vertex input struct
	//
	// Returns:
	//   - int: the shader location, or -1 if the name is not declared
	AttributeSlot(name string) int

	// UniformOffset resolves a uniform block member to its byte offset by
	// name.
	//
	// Parameters:
	//   - name: the member name as written in the uniform struct
	//
	// Returns:
	//   - int: the byte offset, or -1 if the name is not declared
	UniformOffset(name string) int

	// UniformBlockSize returns the byte size of the uniform block, zero
	// when the program declares no uniforms.
	//
	// Returns:
	//   - uint64: the uniform block size
	UniformBlockSize() uint64

	// UniformStride returns the uniform block size rounded up to the
	// dynamic-offset alignment. Each draw within a frame writes its block
	// one stride further into the uniform buffer and binds it with a
	// matching dynamic offset. Zero when the program declares no uniforms.
	//
	// Returns:
	//   - uint64: the per-draw stride in bytes
	UniformStride() uint64

	// UniformGroup returns the bind group index of the uniform block, or
	// -1 when the program declares no uniforms.
	//
	// Returns:
	//   - int: the bind group index
	UniformGroup() int

	// UniformBinding returns the binding index of the uniform block within
	// its group, or -1 when the program declares no uniforms.
	//
	// Returns:
	//   - int: the binding index
	UniformBinding() int

	// VertexBufferLayouts returns one buffer layout per vertex attribute,
	// ordered by shader location. Each attribute is fed from its own
	// tightly-packed buffer.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layouts
	VertexBufferLayouts() []wgpu.VertexBufferLayout

	// Valid reports whether the program holds a usable render pipeline.
	//
	// Returns:
	//   - bool: true if a pipeline is attached
	Valid() bool

	// Pipeline retrieves the attached render pipeline, or nil.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the pipeline or nil
	Pipeline() *wgpu.RenderPipeline

	// UniformBuffer retrieves the attached uniform buffer, or nil.
	//
	// Returns:
	//   - *wgpu.Buffer: the uniform buffer or nil
	UniformBuffer() *wgpu.Buffer

	// BindGroup retrieves the attached bind group, or nil.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// AttachGPU attaches the GPU handles created for this program by the
	// renderer. Passing a nil pipeline marks the program invalid.
	//
	// Parameters:
	//   - pipeline: the render pipeline
	//   - uniformBuffer: the uniform buffer backing the uniform block
	//   - bindGroup: the bind group exposing the uniform buffer
	AttachGPU(pipeline *wgpu.RenderPipeline, uniformBuffer *wgpu.Buffer, bindGroup *wgpu.BindGroup)

	// ReleaseGPU drops and releases the attached GPU handles. The program
	// reports invalid afterwards.
	ReleaseGPU()
}

var _ Program = &programImpl{}

// NewProgram creates a Program by reflecting over the given WGSL sources.
// Entry points, vertex attribute slots, and uniform member offsets are
// resolved from the source text.
//
// Parameters:
//   - name: the program identifier
//   - vertexSource: the vertex stage WGSL source
//   - fragmentSource: the fragment stage WGSL source
//
// Returns:
//   - Program: the reflected program, without GPU handles attached
//   - error: an error if either source lacks its entry point
func NewProgram(name, vertexSource, fragmentSource string) (Program, error) {
	cleanedVert := stripComments(vertexSource)
	cleanedFrag := stripComments(fragmentSource)

	vertexEntry, _ := parseEntryPoints(cleanedVert)
	if vertexEntry == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoVertexEntry, name)
	}
	_, fragmentEntry := parseEntryPoints(cleanedFrag)
	if fragmentEntry == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoFragmentEntry, name)
	}

	p := &programImpl{
		mu:             &sync.Mutex{},
		name:           name,
		vertexSource:   vertexSource,
		fragmentSource: fragmentSource,
		vertexEntry:    vertexEntry,
		fragmentEntry:  fragmentEntry,
		attributes:     parseVertexAttributes(cleanedVert),
	}
	p.uniforms, p.hasUniform = parseUniformBlock(cleanedVert)
	return p, nil
}

func (p *programImpl) Name() string {
	return p.name
}

func (p *programImpl) VertexSource() string {
	return p.vertexSource
}

func (p *programImpl) FragmentSource() string {
	return p.fragmentSource
}

func (p *programImpl) VertexEntry() string {
	return p.vertexEntry
}

func (p *programImpl) FragmentEntry() string {
	return p.fragmentEntry
}

func (p *programImpl) AttributeSlot(name string) int {
	if info, ok := p.attributes[name]; ok {
		return info.slot
	}
	return -1
}

func (p *programImpl) UniformOffset(name string) int {
	if !p.hasUniform {
		return -1
	}
	if off, ok := p.uniforms.offsets[name]; ok {
		return int(off)
	}
	return -1
}

func (p *programImpl) UniformBlockSize() uint64 {
	if !p.hasUniform {
		return 0
	}
	return p.uniforms.size
}

func (p *programImpl) UniformStride() uint64 {
	if !p.hasUniform {
		return 0
	}
	return roundUpAlign(uniformOffsetAlignment, p.uniforms.size)
}

func (p *programImpl) UniformGroup() int {
	if !p.hasUniform {
		return -1
	}
	return p.uniforms.group
}

func (p *programImpl) UniformBinding() int {
	if !p.hasUniform {
		return -1
	}
	return p.uniforms.binding
}

func (p *programImpl) VertexBufferLayouts() []wgpu.VertexBufferLayout {
	infos := make([]attributeInfo, 0, len(p.attributes))
	for _, info := range p.attributes {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].slot < infos[j].slot
	})

	layouts := make([]wgpu.VertexBufferLayout, 0, len(infos))
	for _, info := range infos {
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: info.size,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{
					Format:         info.format,
					Offset:         0,
					ShaderLocation: uint32(info.slot),
				},
			},
		})
	}
	return layouts
}

func (p *programImpl) Valid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pipeline != nil
}

func (p *programImpl) Pipeline() *wgpu.RenderPipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pipeline
}

func (p *programImpl) UniformBuffer() *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uniformBuffer
}

func (p *programImpl) BindGroup() *wgpu.BindGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup
}

func (p *programImpl) AttachGPU(pipeline *wgpu.RenderPipeline, uniformBuffer *wgpu.Buffer, bindGroup *wgpu.BindGroup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pipeline = pipeline
	p.uniformBuffer = uniformBuffer
	p.bindGroup = bindGroup
}

func (p *programImpl) ReleaseGPU() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.uniformBuffer != nil {
		p.uniformBuffer.Release()
		p.uniformBuffer = nil
	}
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}
