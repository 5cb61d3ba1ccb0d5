package renderer

// RendererBuilderOption is a functional option for configuring a Renderer via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode is an option builder that sets the initial present mode
// before the surface is first configured.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA is an option builder that sets the multisample anti-aliasing
// sample count used by the main render pass.
//
// Parameters:
//   - samples: the MSAA sample count
//
// Returns:
//   - RendererBuilderOption: a function that applies the sample count to a renderer
func WithMSAA(samples MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &samples
	}
}
