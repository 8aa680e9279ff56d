package valueobject

const (
	// System maxima for the rendering viewport. Caller-requested dimensions
	// above these are clamped, never rejected.
	MaxViewportWidth  = 1600
	MaxViewportHeight = 1200

	DefaultViewportWidth  = 800
	DefaultViewportHeight = 600
)

// Viewport is the pixel size of the rendered page area.
type Viewport struct {
	Width  int
	Height int
}

// NewViewport builds a viewport from caller-requested dimensions. Zero or
// negative values fall back to the defaults; values above the system maxima
// are clamped.
func NewViewport(width, height int) Viewport {
	if width <= 0 {
		width = DefaultViewportWidth
	}
	if height <= 0 {
		height = DefaultViewportHeight
	}
	if width > MaxViewportWidth {
		width = MaxViewportWidth
	}
	if height > MaxViewportHeight {
		height = MaxViewportHeight
	}
	return Viewport{Width: width, Height: height}
}
