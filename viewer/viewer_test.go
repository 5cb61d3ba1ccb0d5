package viewer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyview/plyview/common"
	"github.com/plyview/plyview/viewer/camera"
	"github.com/plyview/plyview/viewer/mesh"
	"github.com/plyview/plyview/viewer/renderer"
	"github.com/plyview/plyview/viewer/renderer/program"
)

// stubHost collects frame requests so tests can pump frames deterministically.
type stubHost struct {
	width   int
	height  int
	pending []func(now float64)
}

func newStubHost() *stubHost {
	return &stubHost{width: 1280, height: 720}
}

func (h *stubHost) RequestFrame(callback func(now float64)) {
	h.pending = append(h.pending, callback)
}

func (h *stubHost) ViewportSize() (int, int) {
	return h.width, h.height
}

// pump pops the oldest pending frame and runs it at the given timestamp.
func (h *stubHost) pump(t *testing.T, now float64) {
	t.Helper()
	require.NotEmpty(t, h.pending, "no frame pending")
	frame := h.pending[0]
	h.pending = h.pending[1:]
	frame(now)
}

// drawCall records one DrawMesh on the fake renderer.
type drawCall struct {
	mesh     *renderer.BoundMesh
	uniforms renderer.Uniforms
}

// fakeRenderer records the frame lifecycle without a GPU.
type fakeRenderer struct {
	beginErr error

	beginFrames int
	endFrames   int
	presents    int
	draws       []drawCall
	resizes     [][2]int
}

var _ renderer.Renderer = &fakeRenderer{}

func (f *fakeRenderer) RegisterProgram(p program.Program) error { return nil }
func (f *fakeRenderer) Program(name string) program.Program    { return nil }

func (f *fakeRenderer) BindMesh(m mesh.Mesh) (*renderer.BoundMesh, error) {
	return &renderer.BoundMesh{}, nil
}

func (f *fakeRenderer) Resize(width, height int) {
	f.resizes = append(f.resizes, [2]int{width, height})
}

func (f *fakeRenderer) BeginFrame() error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.beginFrames++
	return nil
}

func (f *fakeRenderer) DrawMesh(p program.Program, bm *renderer.BoundMesh, u renderer.Uniforms) {
	f.draws = append(f.draws, drawCall{mesh: bm, uniforms: u})
}

func (f *fakeRenderer) EndFrame() {
	f.endFrames++
}

func (f *fakeRenderer) Present() {
	f.presents++
}

func (f *fakeRenderer) SetPresentMode(mode renderer.PresentMode) {}

func TestStartRequestsFirstFrame(t *testing.T) {
	host := newStubHost()
	v := NewViewer(WithRenderer(&fakeRenderer{}))

	assert.Equal(t, StateIdle, v.State())
	v.Start(host)
	assert.Equal(t, StateRunning, v.State())
	assert.Len(t, host.pending, 1)

	// A second Start must not queue a second frame chain.
	v.Start(host)
	assert.Len(t, host.pending, 1)
}

func TestStepDrawsMeshesAndReschedules(t *testing.T) {
	host := newStubHost()
	r := &fakeRenderer{}
	bm := &renderer.BoundMesh{}
	v := NewViewer(WithRenderer(r), WithBoundMeshes(bm))

	v.Start(host)
	host.pump(t, 16)

	assert.Equal(t, 1, r.beginFrames)
	assert.Equal(t, 1, r.endFrames)
	assert.Equal(t, 1, r.presents)
	require.Len(t, r.draws, 1)
	assert.Same(t, bm, r.draws[0].mesh)

	// The step re-requested the next frame.
	assert.Len(t, host.pending, 1)
}

func TestStepUploadsCameraMatrices(t *testing.T) {
	host := newStubHost()
	r := &fakeRenderer{}
	cam := camera.NewCamera()
	v := NewViewer(WithRenderer(r), WithCamera(cam), WithBoundMeshes(&renderer.BoundMesh{}))

	v.Start(host)
	host.pump(t, 16)

	require.Len(t, r.draws, 1)
	u := r.draws[0].uniforms
	assert.Equal(t, cam.ProjectionMatrix(), u.Projection)
	assert.Equal(t, cam.ViewMatrix(), u.View)
	assert.Equal(t, cam.ModelMatrix(), u.Model)
}

func TestStepSyncsViewportToCamera(t *testing.T) {
	host := newStubHost()
	host.width = 800
	host.height = 600
	cam := camera.NewCamera()
	v := NewViewer(WithRenderer(&fakeRenderer{}), WithCamera(cam))

	v.Start(host)
	host.pump(t, 16)

	assert.InDelta(t, float32(800)/float32(600), cam.Aspect(), 1e-6)
}

func TestHeldKeysRotateModel(t *testing.T) {
	host := newStubHost()
	v := NewViewer(WithRenderer(&fakeRenderer{}))
	before := v.Camera().ModelMatrix()

	v.Start(host)
	v.Input().Press(common.KeyW)
	host.pump(t, 16)
	host.pump(t, 32)

	assert.NotEqual(t, before, v.Camera().ModelMatrix())
}

func TestStopEndsFrameChain(t *testing.T) {
	host := newStubHost()
	v := NewViewer(WithRenderer(&fakeRenderer{}))

	v.Start(host)
	v.Stop()
	assert.Equal(t, StateIdle, v.State())

	// The frame already pending still runs, but must not re-request.
	host.pump(t, 16)
	assert.Empty(t, host.pending)
}

func TestFailedBeginFrameSkipsDrawButKeepsRunning(t *testing.T) {
	host := newStubHost()
	r := &fakeRenderer{beginErr: errors.New("surface lost")}
	v := NewViewer(WithRenderer(r), WithBoundMeshes(&renderer.BoundMesh{}))

	v.Start(host)
	host.pump(t, 16)

	assert.Empty(t, r.draws)
	assert.Zero(t, r.endFrames)
	assert.Zero(t, r.presents)
	assert.Len(t, host.pending, 1, "loop must survive a lost frame")
}

func TestAddMeshAppendsToDrawList(t *testing.T) {
	host := newStubHost()
	r := &fakeRenderer{}
	v := NewViewer(WithRenderer(r))

	first := &renderer.BoundMesh{}
	second := &renderer.BoundMesh{}
	v.AddMesh(first)
	v.AddMesh(nil)
	v.AddMesh(second)

	v.Start(host)
	host.pump(t, 16)

	require.Len(t, r.draws, 2)
	assert.Same(t, first, r.draws[0].mesh)
	assert.Same(t, second, r.draws[1].mesh)
}
