package camera

// CameraBuilderOption is a functional option for configuring a Camera via NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithViewDistance sets how far the eye sits back from the origin along the
// z axis.
//
// Parameters:
//   - d: the eye distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the view distance
func WithViewDistance(d float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewDistance = d
	}
}

// WithRateScale sets the key-driven rotation rate in radians per millisecond
// per held key.
//
// Parameters:
//   - k: the rotation rate
//
// Returns:
//   - CameraBuilderOption: a function that sets the rotation rate
func WithRateScale(k float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.rateScale = k
	}
}

// WithAutoSpin sets a constant rotation applied every frame regardless of
// held keys, in radians per millisecond about the x, y, and z axes.
//
// Parameters:
//   - rx, ry, rz: the per-axis spin rates
//
// Returns:
//   - CameraBuilderOption: a function that sets the auto-spin rates
func WithAutoSpin(rx, ry, rz float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.autoSpin = [3]float32{rx, ry, rz}
	}
}
