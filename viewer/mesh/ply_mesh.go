package mesh

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/plyview/plyview/viewer/ply"
)

var (
	// ErrIndexOutOfRange is returned when a face references a vertex that
	// does not exist or cannot be stored in a 16-bit index.
	ErrIndexOutOfRange = errors.New("mesh: face index out of range")

	// ErrTooManyVertices is returned when the vertex element holds more
	// vertices than 16-bit indices can address.
	ErrTooManyVertices = errors.New("mesh: vertex count exceeds 16-bit index range")
)

// defaultColor is substituted for vertices whose color properties are
// missing or carry an unexpected type.
var defaultColor = [3]float32{1, 1, 1}

// FromDocument builds a Mesh from a parsed geometry document. The document
// must carry a "vertex" element and a "face" element.
//
// Vertex records missing a position, normal, or color triple (or carrying
// one with an unexpected scalar type) contribute default values instead of
// being skipped, so the three attribute arrays always stay the same length.
// Faces whose index list is not a triangle are flattened into the index
// stream as-is. Both substitutions emit a diagnostic.
//
// Parameters:
//   - name: the mesh identifier used in diagnostics
//   - doc: the parsed geometry document
//
// Returns:
//   - Mesh: the assembled mesh
//   - error: an error if a required element is absent or an index is unusable
func FromDocument(name string, doc *ply.Document) (Mesh, error) {
	vertex, err := doc.RequireElement("vertex")
	if err != nil {
		return nil, err
	}
	face, err := doc.RequireElement("face")
	if err != nil {
		return nil, err
	}
	if vertex.Count > math.MaxUint16+1 {
		return nil, fmt.Errorf("%w: %d vertices", ErrTooManyVertices, vertex.Count)
	}

	m := &staticMesh{
		name:      name,
		positions: make([]float32, 0, vertex.Count*3),
		normals:   make([]float32, 0, vertex.Count*3),
		colors:    make([]float32, 0, vertex.Count*3),
	}

	for i, rec := range vertex.Data {
		m.positions = appendFloatTriple(m.positions, rec, "x", "y", "z", name, i, [3]float32{})
		m.normals = appendFloatTriple(m.normals, rec, "nx", "ny", "nz", name, i, [3]float32{})
		m.colors = appendColorTriple(m.colors, rec, name, i)
	}

	m.indices = make([]uint16, 0, face.Count*3)
	for i, rec := range face.Data {
		list, ok := rec["vertex_indices"].IntList()
		if !ok {
			log.Printf("mesh %s: face %d has no integer vertex_indices list, skipping", name, i)
			continue
		}
		if len(list) != 3 {
			log.Printf("mesh %s: face %d has %d indices, expected 3", name, i, len(list))
		}
		for _, idx := range list {
			if idx < 0 || idx >= int64(vertex.Count) {
				return nil, fmt.Errorf("%w: face %d index %d with %d vertices", ErrIndexOutOfRange, i, idx, vertex.Count)
			}
			m.indices = append(m.indices, uint16(idx))
		}
	}

	return m, nil
}

// appendFloatTriple appends the named float properties of a vertex record,
// substituting def when any of the three is missing or not a float.
func appendFloatTriple(dst []float32, rec map[string]ply.Value, a, b, c, name string, idx int, def [3]float32) []float32 {
	va, okA := rec[a].Float()
	vb, okB := rec[b].Float()
	vc, okC := rec[c].Float()
	if !okA || !okB || !okC {
		log.Printf("mesh %s: vertex %d missing float %s/%s/%s, using defaults", name, idx, a, b, c)
		return append(dst, def[0], def[1], def[2])
	}
	return append(dst, va, vb, vc)
}

// appendColorTriple appends the red/green/blue uchar properties of a vertex
// record scaled to [0,1], substituting defaultColor when any is missing or
// not a uchar.
func appendColorTriple(dst []float32, rec map[string]ply.Value, name string, idx int) []float32 {
	r, okR := rec["red"].UChar()
	g, okG := rec["green"].UChar()
	b, okB := rec["blue"].UChar()
	if !okR || !okG || !okB {
		log.Printf("mesh %s: vertex %d missing uchar red/green/blue, using defaults", name, idx)
		return append(dst, defaultColor[0], defaultColor[1], defaultColor[2])
	}
	return append(dst, float32(r)/255, float32(g)/255, float32(b)/255)
}
