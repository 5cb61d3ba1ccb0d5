package renderer

import "github.com/cogentcore/webgpu/wgpu"

// BoundMesh holds the GPU buffers created for a mesh by BindMesh. Each vertex
// attribute lives in its own tightly-packed buffer so the vertex stage can be
// fed by attribute slot. Instances are created by the Renderer and released
// via Release when the geometry is no longer drawn.
type BoundMesh struct {
	name       string
	indexCount int

	positionBuffer *wgpu.Buffer
	normalBuffer   *wgpu.Buffer
	colorBuffer    *wgpu.Buffer
	indexBuffer    *wgpu.Buffer
}

// Name retrieves the identifier of the mesh these buffers were created from.
//
// Returns:
//   - string: the mesh name
func (b *BoundMesh) Name() string {
	return b.name
}

// IndexCount returns the number of indices to draw.
//
// Returns:
//   - int: the index count
func (b *BoundMesh) IndexCount() int {
	return b.indexCount
}

// PositionBuffer retrieves the GPU buffer holding vertex positions.
//
// Returns:
//   - *wgpu.Buffer: the position buffer
func (b *BoundMesh) PositionBuffer() *wgpu.Buffer {
	return b.positionBuffer
}

// NormalBuffer retrieves the GPU buffer holding vertex normals.
//
// Returns:
//   - *wgpu.Buffer: the normal buffer
func (b *BoundMesh) NormalBuffer() *wgpu.Buffer {
	return b.normalBuffer
}

// ColorBuffer retrieves the GPU buffer holding vertex colors.
//
// Returns:
//   - *wgpu.Buffer: the color buffer
func (b *BoundMesh) ColorBuffer() *wgpu.Buffer {
	return b.colorBuffer
}

// IndexBuffer retrieves the GPU buffer holding 16-bit triangle indices.
//
// Returns:
//   - *wgpu.Buffer: the index buffer
func (b *BoundMesh) IndexBuffer() *wgpu.Buffer {
	return b.indexBuffer
}

// Release releases all GPU buffers held by this BoundMesh.
func (b *BoundMesh) Release() {
	for _, buf := range []*wgpu.Buffer{b.positionBuffer, b.normalBuffer, b.colorBuffer, b.indexBuffer} {
		if buf != nil {
			buf.Release()
		}
	}
	b.positionBuffer = nil
	b.normalBuffer = nil
	b.colorBuffer = nil
	b.indexBuffer = nil
}
