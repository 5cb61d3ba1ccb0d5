package main

import (
	_ "embed"
	"flag"
	"log"

	"github.com/plyview/plyview/viewer"
	"github.com/plyview/plyview/viewer/loader"
	"github.com/plyview/plyview/viewer/mesh"
	"github.com/plyview/plyview/viewer/renderer"
	"github.com/plyview/plyview/viewer/renderer/program"
	"github.com/plyview/plyview/viewer/window"
)

//go:embed shaders/viewer_vert.wgsl
var vertexShaderSource string

//go:embed shaders/viewer_frag.wgsl
var fragmentShaderSource string

var (
	width   = flag.Int("width", 1280, "window width in pixels")
	height  = flag.Int("height", 720, "window height in pixels")
	vsync   = flag.Bool("vsync", true, "wait for vertical blank before presenting")
	workers = flag.Int("workers", 2, "parallel PLY loads")
)

func main() {
	flag.Parse()

	win := window.NewWindow(
		window.WithTitle("PLY Viewer"),
		window.WithWidth(*width),
		window.WithHeight(*height),
	)
	defer win.Close()

	presentMode := renderer.PresentModeVSync
	if !*vsync {
		presentMode = renderer.PresentModeUncapped
	}
	r := renderer.NewRenderer(
		renderer.BackendTypeWGPU,
		win,
		renderer.WithPresentMode(presentMode),
	)

	prog, err := program.NewProgram("viewer", vertexShaderSource, fragmentShaderSource)
	if err != nil {
		log.Fatalf("shader reflection failed: %v", err)
	}
	if err := r.RegisterProgram(prog); err != nil {
		// Keep the window open; every draw against the failed program is
		// skipped and the cleared frame stays visible.
		log.Printf("continuing with an empty frame: %v", err)
	}

	v := viewer.NewViewer(
		viewer.WithRenderer(r),
		viewer.WithProgram(prog),
	)
	for _, m := range loadMeshes(flag.Args()) {
		bm, err := r.BindMesh(m)
		if err != nil {
			log.Printf("skipping mesh %s: %v", m.Name(), err)
			continue
		}
		v.AddMesh(bm)
	}

	win.SetKeyDownCallback(v.Input().Press)
	win.SetKeyUpCallback(v.Input().Release)
	win.SetResizeCallback(func(w, h int) {
		r.Resize(w, h)
		v.Camera().SetViewport(w, h)
	})

	log.Println("PLY Viewer: W/S pitch, A/D yaw, Esc quits")
	v.Start(win)
	win.ProcessMessages()
}

// loadMeshes parses every PLY path given on the command line, falling back
// to the built-in cube when none are given.
//
// Parameters:
//   - paths: the PLY file paths from the command line
//
// Returns:
//   - []mesh.Mesh: the meshes to display
func loadMeshes(paths []string) []mesh.Mesh {
	if len(paths) == 0 {
		return []mesh.Mesh{mesh.NewCube()}
	}

	l := loader.NewLoader(loader.WithWorkers(*workers))
	meshes, err := l.LoadAll(paths)
	if err != nil {
		log.Fatalf("loading meshes: %v", err)
	}
	return meshes
}
