package mesh

// Mesh defines the interface for renderable triangle geometry.
// A Mesh holds flat per-vertex attribute arrays and a triangle index list,
// laid out exactly as they will be uploaded to GPU buffers. The three
// attribute arrays always describe the same number of vertices.
type Mesh interface {
	// Name retrieves the mesh identifier, used in diagnostics.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Positions retrieves the vertex positions as a flat x,y,z array.
	//
	// Returns:
	//   - []float32: the position components, three per vertex
	Positions() []float32

	// Normals retrieves the vertex normals as a flat x,y,z array.
	//
	// Returns:
	//   - []float32: the normal components, three per vertex
	Normals() []float32

	// Colors retrieves the vertex colors as a flat r,g,b array with
	// components in [0,1].
	//
	// Returns:
	//   - []float32: the color components, three per vertex
	Colors() []float32

	// Indices retrieves the triangle index list. Every index refers to a
	// vertex present in the attribute arrays.
	//
	// Returns:
	//   - []uint16: the triangle indices, three per triangle
	Indices() []uint16

	// VertexCount returns the number of vertices described by the
	// attribute arrays.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// IndexCount returns the number of entries in the index list.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int
}

// staticMesh is the implementation of the Mesh interface backed by
// preassembled arrays.
type staticMesh struct {
	name      string
	positions []float32
	normals   []float32
	colors    []float32
	indices   []uint16
}

var _ Mesh = &staticMesh{}

func (m *staticMesh) Name() string {
	return m.name
}

func (m *staticMesh) Positions() []float32 {
	return m.positions
}

func (m *staticMesh) Normals() []float32 {
	return m.normals
}

func (m *staticMesh) Colors() []float32 {
	return m.colors
}

func (m *staticMesh) Indices() []uint16 {
	return m.indices
}

func (m *staticMesh) VertexCount() int {
	return len(m.positions) / 3
}

func (m *staticMesh) IndexCount() int {
	return len(m.indices)
}
