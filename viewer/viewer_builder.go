package viewer

import (
	"github.com/plyview/plyview/viewer/camera"
	"github.com/plyview/plyview/viewer/input"
	"github.com/plyview/plyview/viewer/renderer"
	"github.com/plyview/plyview/viewer/renderer/program"
)

// ViewerBuilderOption is a functional option for configuring a viewer
// during creation.
type ViewerBuilderOption func(*viewerImpl)

// WithRenderer sets the renderer used to draw each frame.
//
// Parameters:
//   - r: the renderer instance
//
// Returns:
//   - ViewerBuilderOption: the option function
func WithRenderer(r renderer.Renderer) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.renderer = r
	}
}

// WithProgram sets the shader program meshes are drawn with.
//
// Parameters:
//   - p: the program instance
//
// Returns:
//   - ViewerBuilderOption: the option function
func WithProgram(p program.Program) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.program = p
	}
}

// WithCamera sets the camera advanced each frame. When omitted a default
// camera is created.
//
// Parameters:
//   - c: the camera instance
//
// Returns:
//   - ViewerBuilderOption: the option function
func WithCamera(c camera.Camera) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.camera = c
	}
}

// WithInput sets the key state sampled each frame. When omitted a default
// input state is created.
//
// Parameters:
//   - s: the input state instance
//
// Returns:
//   - ViewerBuilderOption: the option function
func WithInput(s input.State) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.input = s
	}
}

// WithBoundMeshes seeds the draw list with already-bound meshes.
//
// Parameters:
//   - meshes: the bound meshes to draw each frame
//
// Returns:
//   - ViewerBuilderOption: the option function
func WithBoundMeshes(meshes ...*renderer.BoundMesh) ViewerBuilderOption {
	return func(v *viewerImpl) {
		for _, bm := range meshes {
			if bm != nil {
				v.meshes = append(v.meshes, bm)
			}
		}
	}
}
