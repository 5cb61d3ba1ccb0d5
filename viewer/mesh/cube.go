package mesh

// NewCube creates the built-in unit cube mesh, a 2x2x2 cube centered on the
// origin with per-face normals and colors. It is used as fallback geometry
// when no model file is supplied.
//
// Returns:
//   - Mesh: the cube mesh
func NewCube() Mesh {
	return &staticMesh{
		name: "cube",
		positions: []float32{
			-1, -1, -1, 1, -1, -1, 1, 1, -1, -1, 1, -1,
			-1, -1, 1, 1, -1, 1, 1, 1, 1, -1, 1, 1,
			-1, -1, -1, -1, 1, -1, -1, 1, 1, -1, -1, 1,
			1, -1, -1, 1, 1, -1, 1, 1, 1, 1, -1, 1,
			-1, -1, -1, -1, -1, 1, 1, -1, 1, 1, -1, -1,
			-1, 1, -1, -1, 1, 1, 1, 1, 1, 1, 1, -1,
		},
		normals: []float32{
			0, 0, -1, 0, 0, -1, 0, 0, -1, 0, 0, -1,
			0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1,
			-1, 0, 0, -1, 0, 0, -1, 0, 0, -1, 0, 0,
			1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0,
			0, -1, 0, 0, -1, 0, 0, -1, 0, 0, -1, 0,
			0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0,
		},
		colors: []float32{
			0.8, 0.5, 1.0, 0.8, 0.5, 1.0, 0.8, 0.5, 1.0, 0.8, 0.5, 1.0,
			0.2, 0.2, 0.5, 0.2, 0.2, 0.5, 0.2, 0.2, 0.5, 0.2, 0.2, 0.5,
			0, 0, 0.2, 0, 0, 0.2, 0, 0, 0.2, 0, 0, 0.2,
			0.2, 0, 0, 0.2, 0, 0, 0.2, 0, 0, 0.2, 0, 0,
			0.2, 0.2, 0, 0.2, 0.2, 0, 0.2, 0.2, 0, 0.2, 0.2, 0,
			0, 0.2, 0, 0, 0.2, 0, 0, 0.2, 0, 0, 0.2, 0,
		},
		indices: []uint16{
			0, 1, 2, 0, 2, 3,
			4, 5, 6, 4, 6, 7,
			8, 9, 10, 8, 10, 11,
			12, 13, 14, 12, 14, 15,
			16, 17, 18, 16, 18, 19,
			20, 21, 22, 20, 22, 23,
		},
	}
}
