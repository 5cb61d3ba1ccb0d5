package renderer

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/plyview/plyview/viewer/mesh"
	"github.com/plyview/plyview/viewer/renderer/program"
	"github.com/plyview/plyview/viewer/window"
)

// Uniform block member names resolved against a program's vertex source.
// Shaders rendered by this package expose their per-frame matrices under
// these names.
const (
	UniformProjection = "Pmatrix"
	UniformView       = "Vmatrix"
	UniformModel      = "Mmatrix"
)

// maxUniformDraws caps the draws per frame that can carry distinct uniforms.
// The backend sizes each program's uniform buffer at one aligned slice per
// draw; draws past the cap are skipped with a diagnostic.
const maxUniformDraws = 256

var (
	// ErrMismatchedAttributes is returned by BindMesh when the position,
	// normal, and color arrays describe different vertex counts.
	ErrMismatchedAttributes = errors.New("renderer: attribute arrays describe different vertex counts")

	// ErrIndexOutOfRange is returned by BindMesh when an index references a
	// vertex outside the attribute arrays.
	ErrIndexOutOfRange = errors.New("renderer: mesh index out of range")
)

// Uniforms carries the per-frame matrices uploaded before each draw.
type Uniforms struct {
	Projection [16]float32
	View       [16]float32
	Model      [16]float32
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	programs map[string]program.Program

	backendType RendererBackendType
	backend     RendererBackend

	// drawIndex counts DrawMesh calls since BeginFrame; it selects the
	// uniform slice and dynamic offset for each draw.
	drawIndex int

	pendingPresentMode *PresentMode
	pendingMSAA        *MSAASampleCount
}

// Renderer defines the interface for the rendering system. It owns GPU
// resource creation for meshes and shader programs and encodes one render
// pass per frame between BeginFrame and EndFrame. The Renderer implements a
// backend which allows for multiple backend API implementations to exist.
type Renderer interface {
	// RegisterProgram creates the GPU pipeline, uniform buffer, and bind
	// group for a program and attaches them. Failure is not fatal: the
	// error is logged, the program stays invalid, and draws with it are
	// skipped.
	//
	// Parameters:
	//   - p: the program to register
	//
	// Returns:
	//   - error: an error if pipeline creation failed
	RegisterProgram(p program.Program) error

	// Program retrieves a registered program by name, or nil.
	//
	// Parameters:
	//   - name: the program name
	//
	// Returns:
	//   - program.Program: the program, or nil if not registered
	Program(name string) program.Program

	// BindMesh validates a mesh and uploads its attribute and index
	// arrays into GPU buffers.
	//
	// Parameters:
	//   - m: the mesh to bind
	//
	// Returns:
	//   - *BoundMesh: the created GPU buffers
	//   - error: an error if the mesh is inconsistent or upload fails
	BindMesh(m mesh.Mesh) (*BoundMesh, error)

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// BeginFrame acquires the swapchain texture and begins the main render
	// pass. Must be paired with EndFrame after all DrawMesh invocations
	// within a single frame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawMesh uploads the uniforms for one mesh and encodes its indexed
	// draw within the current render pass. Each draw writes into its own
	// uniform slice and binds it with a dynamic offset, so meshes in one
	// frame may carry different matrices. Draws against an invalid
	// program are skipped silently, which leaves the cleared frame visible.
	//
	// Parameters:
	//   - p: the program to draw with
	//   - bm: the bound mesh to draw
	//   - u: the per-frame matrices
	DrawMesh(p program.Program, bm *BoundMesh, u Uniforms)

	// EndFrame ends the current render pass and submits the command buffer
	// to the GPU. Does not present the surface — call Present() after
	// EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the
	// swapchain texture. Must be called once per frame after EndFrame.
	Present()

	// SetPresentMode sets the surface present mode which controls how frames
	// are delivered to the display. A call to Resize is required after
	// changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type, bound
// to the given window's surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: a new Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		programs:    make(map[string]program.Program),
		backendType: backendType,
	}

	for _, opt := range options {
		opt(r)
	}

	msaa := MSAAOff
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(win.Width(), win.Height())
	return r
}

func (r *renderer) RegisterProgram(p program.Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.programs[p.Name()]; exists {
		return nil
	}

	if err := r.backend.CreateProgramPipeline(p); err != nil {
		log.Printf("renderer: program %s pipeline creation failed, draws will be skipped: %v", p.Name(), err)
		r.programs[p.Name()] = p
		return err
	}
	r.programs[p.Name()] = p
	return nil
}

func (r *renderer) Program(name string) program.Program {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.programs[name]
}

func (r *renderer) BindMesh(m mesh.Mesh) (*BoundMesh, error) {
	vertexCount := m.VertexCount()
	if len(m.Normals()) != vertexCount*3 || len(m.Colors()) != vertexCount*3 || len(m.Positions()) != vertexCount*3 {
		return nil, fmt.Errorf("%w: %s has %d positions, %d normals, %d colors",
			ErrMismatchedAttributes, m.Name(), len(m.Positions()), len(m.Normals()), len(m.Colors()))
	}
	for i, idx := range m.Indices() {
		if int(idx) >= vertexCount {
			return nil, fmt.Errorf("%w: %s index %d at position %d with %d vertices",
				ErrIndexOutOfRange, m.Name(), idx, i, vertexCount)
		}
	}

	return r.backend.InitMeshBuffers(m)
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	r.drawIndex = 0
	r.mu.Unlock()
	return r.backend.BeginFrame()
}

func (r *renderer) DrawMesh(p program.Program, bm *BoundMesh, u Uniforms) {
	if p == nil || !p.Valid() || bm == nil {
		return
	}

	r.mu.Lock()
	index := r.drawIndex
	r.drawIndex++
	r.mu.Unlock()

	if index >= maxUniformDraws {
		log.Printf("renderer: draw %d of mesh %s exceeds the per-frame uniform capacity, skipping", index, bm.Name())
		return
	}

	base := uint64(index) * p.UniformStride()
	r.writeUniform(p, base, UniformProjection, u.Projection)
	r.writeUniform(p, base, UniformView, u.View)
	r.writeUniform(p, base, UniformModel, u.Model)

	r.backend.DrawMesh(p, bm, uint32(base))
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

// writeUniform uploads one matrix to its named uniform block member within
// the draw's uniform slice at base. Members the program does not declare are
// skipped.
func (r *renderer) writeUniform(p program.Program, base uint64, name string, m [16]float32) {
	offset := p.UniformOffset(name)
	if offset < 0 {
		return
	}
	r.backend.WriteUniform(p, base+uint64(offset), m)
}
