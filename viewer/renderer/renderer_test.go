package renderer

import (
	"errors"
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyview/plyview/viewer/mesh"
	"github.com/plyview/plyview/viewer/renderer/program"
)

const stubVertexSource = `
struct Matrices {
    Pmatrix: mat4x4<f32>,
    Vmatrix: mat4x4<f32>,
    Mmatrix: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> matrices: Matrices;

struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) color: vec3<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> {
    return matrices.Pmatrix * matrices.Vmatrix * matrices.Mmatrix * vec4<f32>(in.position, 1.0);
}
`

const stubFragmentSource = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

// uniformWrite records one WriteUniform call on the stub backend.
type uniformWrite struct {
	offset uint64
	data   [16]float32
}

// stubBackend records backend calls without touching a GPU.
type stubBackend struct {
	pipelineErr error

	configuredSizes [][2]int
	boundMeshes     []string
	uniformWrites   []uniformWrite
	drawnMeshes     []string
	drawnOffsets    []uint32
	beginFrames     int
	endFrames       int
	presents        int
}

var _ RendererBackend = &stubBackend{}

func (s *stubBackend) Device() *wgpu.Device            { return nil }
func (s *stubBackend) Queue() *wgpu.Queue              { return nil }
func (s *stubBackend) Instance() *wgpu.Instance        { return nil }
func (s *stubBackend) Adapter() *wgpu.Adapter          { return nil }
func (s *stubBackend) Surface() *wgpu.Surface          { return nil }
func (s *stubBackend) SetDevice(*wgpu.Device)          {}
func (s *stubBackend) SetQueue(*wgpu.Queue)            {}
func (s *stubBackend) SetInstance(*wgpu.Instance)      {}
func (s *stubBackend) SetAdapter(*wgpu.Adapter)        {}
func (s *stubBackend) SetSurface(*wgpu.Surface)        {}
func (s *stubBackend) SetPresentMode(mode PresentMode) {}

func (s *stubBackend) ConfigureSurface(width, height int) {
	s.configuredSizes = append(s.configuredSizes, [2]int{width, height})
}

func (s *stubBackend) CreateProgramPipeline(p program.Program) error {
	if s.pipelineErr != nil {
		return s.pipelineErr
	}
	p.AttachGPU(&wgpu.RenderPipeline{}, nil, nil)
	return nil
}

func (s *stubBackend) InitMeshBuffers(m mesh.Mesh) (*BoundMesh, error) {
	s.boundMeshes = append(s.boundMeshes, m.Name())
	return &BoundMesh{name: m.Name(), indexCount: m.IndexCount()}, nil
}

func (s *stubBackend) WriteUniform(p program.Program, offset uint64, m [16]float32) {
	s.uniformWrites = append(s.uniformWrites, uniformWrite{offset: offset, data: m})
}

func (s *stubBackend) BeginFrame() error {
	s.beginFrames++
	return nil
}

func (s *stubBackend) DrawMesh(p program.Program, bm *BoundMesh, uniformOffset uint32) {
	s.drawnMeshes = append(s.drawnMeshes, bm.Name())
	s.drawnOffsets = append(s.drawnOffsets, uniformOffset)
}

func (s *stubBackend) EndFrame() {
	s.endFrames++
}

func (s *stubBackend) Present() {
	s.presents++
}

func newStubRenderer(backend RendererBackend) *renderer {
	return &renderer{
		mu:       &sync.Mutex{},
		programs: make(map[string]program.Program),
		backend:  backend,
	}
}

func newTestProgram(t *testing.T) program.Program {
	t.Helper()
	p, err := program.NewProgram("stub", stubVertexSource, stubFragmentSource)
	require.NoError(t, err)
	return p
}

// brokenMesh lets tests hand the renderer inconsistent geometry.
type brokenMesh struct {
	positions []float32
	normals   []float32
	colors    []float32
	indices   []uint16
}

func (m *brokenMesh) Name() string         { return "broken" }
func (m *brokenMesh) Positions() []float32 { return m.positions }
func (m *brokenMesh) Normals() []float32   { return m.normals }
func (m *brokenMesh) Colors() []float32    { return m.colors }
func (m *brokenMesh) Indices() []uint16    { return m.indices }
func (m *brokenMesh) VertexCount() int     { return len(m.positions) / 3 }
func (m *brokenMesh) IndexCount() int      { return len(m.indices) }

func TestRegisterProgramAttachesPipeline(t *testing.T) {
	backend := &stubBackend{}
	r := newStubRenderer(backend)
	p := newTestProgram(t)

	require.NoError(t, r.RegisterProgram(p))
	assert.True(t, p.Valid())
	assert.Same(t, p, r.Program("stub"))
}

func TestRegisterProgramFailureLeavesProgramInvalid(t *testing.T) {
	backend := &stubBackend{pipelineErr: errors.New("shader did not compile")}
	r := newStubRenderer(backend)
	p := newTestProgram(t)

	err := r.RegisterProgram(p)
	require.Error(t, err)
	assert.False(t, p.Valid())

	// The degraded program is still registered so later draws can find and
	// skip it rather than crash.
	assert.Same(t, p, r.Program("stub"))
}

func TestRegisterProgramIsIdempotent(t *testing.T) {
	backend := &stubBackend{}
	r := newStubRenderer(backend)
	p := newTestProgram(t)

	require.NoError(t, r.RegisterProgram(p))
	require.NoError(t, r.RegisterProgram(p))
	assert.Same(t, p, r.Program("stub"))
}

func TestBindMeshUploadsValidMesh(t *testing.T) {
	backend := &stubBackend{}
	r := newStubRenderer(backend)

	bm, err := r.BindMesh(mesh.NewCube())
	require.NoError(t, err)
	assert.Equal(t, "cube", bm.Name())
	assert.Equal(t, 36, bm.IndexCount())
	assert.Equal(t, []string{"cube"}, backend.boundMeshes)
}

func TestBindMeshRejectsMismatchedAttributes(t *testing.T) {
	backend := &stubBackend{}
	r := newStubRenderer(backend)

	_, err := r.BindMesh(&brokenMesh{
		positions: make([]float32, 9),
		normals:   make([]float32, 6),
		colors:    make([]float32, 9),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMismatchedAttributes)
	assert.Empty(t, backend.boundMeshes, "invalid meshes must not reach the GPU")
}

func TestBindMeshRejectsOutOfRangeIndex(t *testing.T) {
	backend := &stubBackend{}
	r := newStubRenderer(backend)

	_, err := r.BindMesh(&brokenMesh{
		positions: make([]float32, 9),
		normals:   make([]float32, 9),
		colors:    make([]float32, 9),
		indices:   []uint16{0, 1, 3},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestDrawMeshWritesUniformsAtResolvedOffsets(t *testing.T) {
	backend := &stubBackend{}
	r := newStubRenderer(backend)
	p := newTestProgram(t)
	require.NoError(t, r.RegisterProgram(p))

	bm, err := r.BindMesh(mesh.NewCube())
	require.NoError(t, err)

	u := Uniforms{}
	u.Projection[0] = 1
	u.View[0] = 2
	u.Model[0] = 3
	r.DrawMesh(p, bm, u)

	require.Len(t, backend.uniformWrites, 3)
	assert.Equal(t, uniformWrite{offset: 0, data: u.Projection}, backend.uniformWrites[0])
	assert.Equal(t, uniformWrite{offset: 64, data: u.View}, backend.uniformWrites[1])
	assert.Equal(t, uniformWrite{offset: 128, data: u.Model}, backend.uniformWrites[2])
	assert.Equal(t, []string{"cube"}, backend.drawnMeshes)
	assert.Equal(t, []uint32{0}, backend.drawnOffsets)
}

func TestDrawMeshGivesEachDrawItsOwnUniformSlice(t *testing.T) {
	backend := &stubBackend{}
	r := newStubRenderer(backend)
	p := newTestProgram(t)
	require.NoError(t, r.RegisterProgram(p))

	bm, err := r.BindMesh(mesh.NewCube())
	require.NoError(t, err)

	first := Uniforms{}
	first.Model[0] = 1
	second := Uniforms{}
	second.Model[0] = 2

	require.NoError(t, r.BeginFrame())
	r.DrawMesh(p, bm, first)
	r.DrawMesh(p, bm, second)

	stride := p.UniformStride()
	require.EqualValues(t, 256, stride)

	// The second draw's matrices land one stride in, and the draw binds its
	// bind group at the same dynamic offset, so the first draw's uniforms
	// survive being encoded in the same command buffer.
	require.Len(t, backend.uniformWrites, 6)
	assert.Equal(t, uniformWrite{offset: 128, data: first.Model}, backend.uniformWrites[2])
	assert.Equal(t, uniformWrite{offset: stride, data: second.Projection}, backend.uniformWrites[3])
	assert.Equal(t, uniformWrite{offset: stride + 64, data: second.View}, backend.uniformWrites[4])
	assert.Equal(t, uniformWrite{offset: stride + 128, data: second.Model}, backend.uniformWrites[5])
	assert.Equal(t, []uint32{0, uint32(stride)}, backend.drawnOffsets)

	// A new frame starts back at slice zero.
	require.NoError(t, r.BeginFrame())
	r.DrawMesh(p, bm, first)
	assert.Equal(t, []uint32{0, uint32(stride), 0}, backend.drawnOffsets)
}

func TestDrawMeshSkipsDrawsPastUniformCapacity(t *testing.T) {
	backend := &stubBackend{}
	r := newStubRenderer(backend)
	p := newTestProgram(t)
	require.NoError(t, r.RegisterProgram(p))

	bm, err := r.BindMesh(mesh.NewCube())
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())
	for i := 0; i < maxUniformDraws+5; i++ {
		r.DrawMesh(p, bm, Uniforms{})
	}
	assert.Len(t, backend.drawnMeshes, maxUniformDraws)
}

func TestDrawMeshSkipsInvalidProgram(t *testing.T) {
	backend := &stubBackend{pipelineErr: errors.New("no pipeline")}
	r := newStubRenderer(backend)
	p := newTestProgram(t)
	_ = r.RegisterProgram(p)

	bm := &BoundMesh{name: "cube", indexCount: 36}
	r.DrawMesh(p, bm, Uniforms{})
	r.DrawMesh(nil, bm, Uniforms{})
	r.DrawMesh(p, nil, Uniforms{})

	assert.Empty(t, backend.drawnMeshes)
	assert.Empty(t, backend.uniformWrites)
}

func TestFrameLifecycleDelegatesToBackend(t *testing.T) {
	backend := &stubBackend{}
	r := newStubRenderer(backend)

	require.NoError(t, r.BeginFrame())
	r.EndFrame()
	r.Present()
	r.Resize(640, 480)

	assert.Equal(t, 1, backend.beginFrames)
	assert.Equal(t, 1, backend.endFrames)
	assert.Equal(t, 1, backend.presents)
	assert.Equal(t, [][2]int{{640, 480}}, backend.configuredSizes)
}
