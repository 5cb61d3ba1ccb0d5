package viewer

import (
	"log"
	"sync"

	"github.com/plyview/plyview/viewer/camera"
	"github.com/plyview/plyview/viewer/input"
	"github.com/plyview/plyview/viewer/renderer"
	"github.com/plyview/plyview/viewer/renderer/program"
)

// FrameHost schedules frame callbacks and reports the drawable size.
// window.Window satisfies it; tests substitute a deterministic host.
type FrameHost interface {
	// RequestFrame schedules a callback to run on the host's next frame
	// opportunity with the current time in milliseconds. Only one callback
	// is pending at a time; the latest request wins.
	//
	// Parameters:
	//   - callback: the function to invoke with the frame timestamp
	RequestFrame(callback func(now float64))

	// ViewportSize retrieves the current drawable size in pixels.
	//
	// Returns:
	//   - int: the width in pixels
	//   - int: the height in pixels
	ViewportSize() (int, int)
}

// State describes the viewer's frame loop state.
type State int

const (
	// StateIdle means the viewer has not been started or has been stopped.
	StateIdle State = iota

	// StateRunning means the viewer re-requests a frame after each step.
	StateRunning
)

// viewerImpl is the implementation of the Viewer interface.
type viewerImpl struct {
	mu *sync.Mutex

	state State
	host  FrameHost

	renderer renderer.Renderer
	program  program.Program
	camera   camera.Camera
	input    input.State

	meshes []*renderer.BoundMesh
}

// Viewer drives the per-frame loop: it advances the camera from held keys,
// draws every bound mesh, and re-requests the next frame from its host while
// running.
type Viewer interface {
	// State retrieves the current frame loop state.
	//
	// Returns:
	//   - State: StateIdle or StateRunning
	State() State

	// Camera retrieves the camera driven by the frame loop.
	//
	// Returns:
	//   - camera.Camera: the camera instance
	Camera() camera.Camera

	// Input retrieves the key state sampled each frame.
	//
	// Returns:
	//   - input.State: the input state instance
	Input() input.State

	// AddMesh appends a bound mesh to the draw list. Nil meshes are ignored.
	//
	// Parameters:
	//   - bm: the bound mesh to draw each frame
	AddMesh(bm *renderer.BoundMesh)

	// Start transitions the viewer to StateRunning and requests the first
	// frame from the host. Calling Start on a running viewer is a no-op.
	//
	// Parameters:
	//   - host: the frame scheduler to drive the loop with
	Start(host FrameHost)

	// Stop transitions the viewer back to StateIdle. The frame already
	// pending with the host still runs but does not re-request another.
	Stop()

	// Step runs one frame: viewport sync, camera advance, draw, and — while
	// running — re-requests the next frame. Exposed so hosts and tests can
	// drive frames directly.
	//
	// Parameters:
	//   - now: the frame timestamp in milliseconds
	Step(now float64)
}

var _ Viewer = &viewerImpl{}

// NewViewer creates a new Viewer with the provided options. A camera and
// input state are created with defaults when not supplied; a renderer must
// be supplied for Step to draw anything.
//
// Parameters:
//   - options: variadic list of ViewerBuilderOption functions
//
// Returns:
//   - Viewer: the newly created viewer
func NewViewer(options ...ViewerBuilderOption) Viewer {
	v := &viewerImpl{
		mu:    &sync.Mutex{},
		state: StateIdle,
	}

	for _, opt := range options {
		opt(v)
	}

	if v.camera == nil {
		v.camera = camera.NewCamera()
	}
	if v.input == nil {
		v.input = input.NewState()
	}

	return v
}

func (v *viewerImpl) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *viewerImpl) Camera() camera.Camera {
	return v.camera
}

func (v *viewerImpl) Input() input.State {
	return v.input
}

func (v *viewerImpl) AddMesh(bm *renderer.BoundMesh) {
	if bm == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.meshes = append(v.meshes, bm)
}

func (v *viewerImpl) Start(host FrameHost) {
	v.mu.Lock()
	if v.state == StateRunning || host == nil {
		v.mu.Unlock()
		return
	}
	v.state = StateRunning
	v.host = host
	v.mu.Unlock()

	host.RequestFrame(v.Step)
}

func (v *viewerImpl) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateIdle
}

func (v *viewerImpl) Step(now float64) {
	v.mu.Lock()
	host := v.host
	meshes := make([]*renderer.BoundMesh, len(v.meshes))
	copy(meshes, v.meshes)
	running := v.state == StateRunning
	v.mu.Unlock()

	if host == nil {
		return
	}

	width, height := host.ViewportSize()
	v.camera.SetViewport(width, height)
	v.camera.Advance(now, v.input.Held())

	v.draw(meshes)

	// Re-request while running so the loop sustains itself; a stopped
	// viewer lets the pending chain end here.
	if running {
		host.RequestFrame(v.Step)
	}
}

// draw renders one frame's worth of meshes. A failed frame acquisition is
// logged and skipped; the loop keeps running so a later frame can recover.
func (v *viewerImpl) draw(meshes []*renderer.BoundMesh) {
	if v.renderer == nil {
		return
	}

	if err := v.renderer.BeginFrame(); err != nil {
		log.Printf("viewer: skipping frame: %v", err)
		return
	}

	u := renderer.Uniforms{
		Projection: v.camera.ProjectionMatrix(),
		View:       v.camera.ViewMatrix(),
		Model:      v.camera.ModelMatrix(),
	}
	for _, bm := range meshes {
		v.renderer.DrawMesh(v.program, bm, u)
	}

	v.renderer.EndFrame()
	v.renderer.Present()
}
