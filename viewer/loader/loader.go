package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/plyview/plyview/viewer/mesh"
	"github.com/plyview/plyview/viewer/ply"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	parser    ply.Parser
	meshCache map[string]mesh.Mesh

	workers int
	pool    worker.DynamicWorkerPool
}

// Loader defines the public-facing interface for loading and caching meshes
// from geometry files. Loaded meshes are cached by path, so repeated loads
// of the same file return the same Mesh.
type Loader interface {
	// Load imports a geometry file and caches the result.
	// If the mesh is already cached (by file path), the cached version is
	// returned without touching the filesystem.
	//
	// Parameters:
	//   - path: the file path to the geometry file
	//
	// Returns:
	//   - mesh.Mesh: the loaded and cached mesh
	//   - error: error if reading, parsing, or mesh assembly fails
	Load(path string) (mesh.Mesh, error)

	// LoadReader imports a mesh from a reader stream and caches it by the
	// given name. A cached mesh under the same name is returned without
	// consuming the reader.
	//
	// Parameters:
	//   - name: the cache key and mesh identifier
	//   - r: the reader providing geometry data
	//
	// Returns:
	//   - mesh.Mesh: the loaded and cached mesh
	//   - error: error if parsing or mesh assembly fails
	LoadReader(name string, r io.Reader) (mesh.Mesh, error)

	// LoadAll imports multiple geometry files concurrently using the
	// loader's worker pool. Results are returned in the same order as the
	// input paths. The first error encountered aborts the batch.
	//
	// Parameters:
	//   - paths: the file paths to load
	//
	// Returns:
	//   - []mesh.Mesh: the loaded meshes, ordered like paths
	//   - error: the first load error, if any
	LoadAll(paths []string) ([]mesh.Mesh, error)

	// Cached retrieves a previously loaded mesh by its cache key.
	//
	// Parameters:
	//   - name: the cache key
	//
	// Returns:
	//   - mesh.Mesh: the cached mesh, or nil
	//   - bool: true if the mesh was present
	Cached(name string) (mesh.Mesh, bool)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the provided options applied.
//
// Parameters:
//   - opts: optional LoaderBuilderOption functions
//
// Returns:
//   - Loader: the configured loader
func NewLoader(opts ...LoaderBuilderOption) Loader {
	l := &loader{
		parser:    ply.NewParser(),
		meshCache: make(map[string]mesh.Mesh),
		workers:   2,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	return l
}

func (l *loader) Load(path string) (mesh.Mesh, error) {
	if m, ok := l.Cached(path); ok {
		return m, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	return l.parse(path, filepath.Base(path), f)
}

func (l *loader) LoadReader(name string, r io.Reader) (mesh.Mesh, error) {
	if m, ok := l.Cached(name); ok {
		return m, nil
	}
	return l.parse(name, name, r)
}

func (l *loader) LoadAll(paths []string) ([]mesh.Mesh, error) {
	meshes := make([]mesh.Mesh, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		idx, p := i, path
		l.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				meshes[idx], errs[idx] = l.Load(p)
				return nil, nil
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return meshes, nil
}

func (l *loader) Cached(name string) (mesh.Mesh, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.meshCache[name]
	return m, ok
}

// parse runs the geometry parser over r, assembles a mesh named meshName,
// and caches it under key.
func (l *loader) parse(key, meshName string, r io.Reader) (mesh.Mesh, error) {
	doc, err := l.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("loader: parse %s: %w", key, err)
	}

	m, err := mesh.FromDocument(meshName, doc)
	if err != nil {
		return nil, fmt.Errorf("loader: assemble %s: %w", key, err)
	}

	l.mu.Lock()
	l.meshCache[key] = m
	l.mu.Unlock()
	return m, nil
}
