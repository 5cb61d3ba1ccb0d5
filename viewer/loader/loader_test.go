package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyview/plyview/viewer/mesh"
	"github.com/plyview/plyview/viewer/ply"
)

const triangleSource = `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
element face 1
property list uchar uint vertex_indices
end_header
0 0 0
1 0 0
0 1 0
3 0 1 2
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCachesByPath(t *testing.T) {
	l := NewLoader()
	path := writeFixture(t, "triangle.ply", triangleSource)

	first, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, first.VertexCount())
	assert.Equal(t, "triangle.ply", first.Name())

	// Remove the file; the cached mesh must still come back.
	require.NoError(t, os.Remove(path))
	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	cached, ok := l.Cached(path)
	require.True(t, ok)
	assert.Same(t, first, cached)
}

func TestLoadReader(t *testing.T) {
	l := NewLoader()

	m, err := l.LoadReader("stream", strings.NewReader(triangleSource))
	require.NoError(t, err)
	assert.Equal(t, "stream", m.Name())

	// A second load under the same name must not consume the reader.
	again, err := l.LoadReader("stream", strings.NewReader("not ply at all"))
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestLoadParseError(t *testing.T) {
	l := NewLoader()
	path := writeFixture(t, "broken.ply", "plx\nnot a header\n")

	_, err := l.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ply.ErrBadMagic)

	_, ok := l.Cached(path)
	assert.False(t, ok, "failed loads must not populate the cache")
}

func TestLoadMissingFile(t *testing.T) {
	l := NewLoader()
	_, err := l.Load(filepath.Join(t.TempDir(), "absent.ply"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadAll(t *testing.T) {
	l := NewLoader(WithWorkers(4))

	paths := make([]string, 6)
	for i := range paths {
		paths[i] = writeFixture(t, "m.ply", triangleSource)
	}

	meshes, err := l.LoadAll(paths)
	require.NoError(t, err)
	require.Len(t, meshes, len(paths))
	for i, m := range meshes {
		require.NotNil(t, m, "mesh %d", i)
		assert.Equal(t, 3, m.VertexCount(), "mesh %d", i)
	}
}

func TestLoadAllPropagatesError(t *testing.T) {
	l := NewLoader(WithWorkers(2))

	good := writeFixture(t, "good.ply", triangleSource)
	bad := writeFixture(t, "bad.ply", "garbage")

	_, err := l.LoadAll([]string{good, bad})
	require.Error(t, err)
}

func TestWithMeshSeedsCache(t *testing.T) {
	cube := mesh.NewCube()
	l := NewLoader(WithMesh("cube", cube))

	m, ok := l.Cached("cube")
	require.True(t, ok)
	assert.Same(t, cube, m)
}

// cloudSource builds an ASCII document with count vertices whose x coordinate
// encodes seed+index, so interleaved reads would corrupt visible data.
func cloudSource(seed float64, count int) string {
	var b strings.Builder
	b.WriteString("ply\nformat ascii 1.0\n")
	fmt.Fprintf(&b, "element vertex %d\n", count)
	b.WriteString("property float x\nproperty float y\nproperty float z\n")
	b.WriteString("element face 1\nproperty list uchar uint vertex_indices\nend_header\n")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "%g %d 0\n", seed+float64(i), i)
	}
	b.WriteString("3 0 1 2\n")
	return b.String()
}

func TestLoadAllConcurrentLargeFiles(t *testing.T) {
	const (
		files    = 8
		vertices = 5000
	)
	dir := t.TempDir()

	paths := make([]string, files)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("cloud%d.ply", i))
		require.NoError(t, os.WriteFile(paths[i], []byte(cloudSource(float64(i)*1e6, vertices)), 0o644))
	}

	l := NewLoader(WithWorkers(files))
	meshes, err := l.LoadAll(paths)
	require.NoError(t, err)
	require.Len(t, meshes, files)

	for i, m := range meshes {
		require.Equal(t, vertices, m.VertexCount(), "file %d", i)
		pos := m.Positions()
		// Spot-check each file kept its own payload bytes.
		for _, v := range []int{0, vertices / 2, vertices - 1} {
			assert.Equal(t, float32(float64(i)*1e6+float64(v)), pos[v*3], "file %d vertex %d", i, v)
		}
	}
}
