package camera

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/plyview/plyview/common"
	"github.com/plyview/plyview/viewer/input"
)

const (
	defaultFov          = 80 * math32.Pi / 180
	defaultNear         = 1
	defaultFar          = 100
	defaultViewDistance = 6
	defaultRateScale    = 0.001 // radians per millisecond per held key
)

type cameraImpl struct {
	mu *sync.Mutex

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewDistance float32
	rateScale    float32
	autoSpin     [3]float32

	tPrev float64

	modelMatrix      [16]float32
	viewMatrix       [16]float32
	projectionMatrix [16]float32
}

// Camera defines the interface for the viewer's transform state. It holds
// perspective settings and accumulates an orientation on the model matrix
// from held navigation keys, advanced once per frame via Advance().
type Camera interface {
	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ModelMatrix returns the accumulated 4x4 model matrix as 16 floats
	// (column-major).
	//
	// Returns:
	//   - [16]float32: the model matrix
	ModelMatrix() [16]float32

	// ViewMatrix returns the fixed 4x4 view matrix as 16 floats
	// (column-major), a translation that backs the eye away from the origin.
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 perspective projection matrix
	// as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// Advance steps the model orientation to the given timestamp. The
	// rotation applied is proportional to the elapsed time since the
	// previous Advance and to the held navigation keys: up/down pitch about
	// the x axis, left/right yaw about the y axis. When no keys are held
	// and no auto-spin is configured the model matrix is left untouched.
	//
	// Parameters:
	//   - now: the frame timestamp in milliseconds
	//   - keys: the navigation keys held this frame
	Advance(now float64, keys input.Keys)

	// SetViewport updates the aspect ratio from a viewport size and
	// recomputes the projection matrix. Sizes with a non-positive height
	// are ignored, keeping the previous projection.
	//
	// Parameters:
	//   - width: the viewport width in pixels
	//   - height: the viewport height in pixels
	SetViewport(width, height int)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with the provided options applied. Without
// options the camera uses an 80 degree field of view, near and far planes at
// 1 and 100, and an eye 6 units back from the origin.
//
// Parameters:
//   - opts: optional CameraBuilderOption functions
//
// Returns:
//   - Camera: the configured camera
func NewCamera(opts ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:           &sync.Mutex{},
		fov:          defaultFov,
		aspect:       1,
		near:         defaultNear,
		far:          defaultFar,
		viewDistance: defaultViewDistance,
		rateScale:    defaultRateScale,
	}
	for _, opt := range opts {
		opt(c)
	}

	common.Identity(c.modelMatrix[:])
	common.Translation(c.viewMatrix[:], 0, 0, -c.viewDistance)
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ModelMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelMatrix
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) Advance(now float64, keys input.Keys) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dt := float32(now - c.tPrev)
	c.tPrev = now

	rx := dt * (c.rateScale*keys.PitchSign() + c.autoSpin[0])
	ry := dt * (c.rateScale*keys.YawSign() + c.autoSpin[1])
	rz := dt * c.autoSpin[2]
	if rx == 0 && ry == 0 && rz == 0 {
		return
	}

	var rot [16]float32
	common.RotationEuler(rot[:], rx, ry, rz)
	common.Mul4(c.modelMatrix[:], c.modelMatrix[:], rot[:])
}

func (c *cameraImpl) SetViewport(width, height int) {
	// Degenerate sizes (minimized window) keep the last valid projection
	// rather than falling back to a fixed aspect; the construction default
	// of 1 covers the case where no valid size was ever seen.
	if height <= 0 || width <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	aspect := float32(width) / float32(height)
	if aspect == c.aspect {
		return
	}
	c.aspect = aspect
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
}
