package render

// Anchor aligns text horizontally around its x coordinate
type Anchor int

const (
	AnchorMiddle Anchor = iota
	AnchorStart
	AnchorEnd
)

// String returns the SVG text-anchor keyword
func (a Anchor) String() string {
	switch a {
	case AnchorStart:
		return "start"
	case AnchorEnd:
		return "end"
	default:
		return "middle"
	}
}

// Stroke describes an outline. A zero Width draws nothing.
type Stroke struct {
	Color string
	Width float64
}

// TextStyle describes a text run
type TextStyle struct {
	Color  string
	Size   float64
	Bold   bool
	Anchor Anchor
}

// Surface is a 2D drawing target. Coordinates passed to the drawing
// primitives are in model space; the surface applies the transform set by
// SetTransform (screen = model*scale + offset). Stroke widths and text sizes
// are in model units and scale with the transform.
//
// Surfaces are not safe for concurrent use.
type Surface interface {
	// Begin starts a new frame of the given size cleared to background
	Begin(width, height int, background string)
	SetTransform(offsetX, offsetY, scale float64)
	Line(x1, y1, x2, y2 float64, stroke Stroke)
	Circle(cx, cy, r float64, fill string, stroke Stroke)
	Text(x, y float64, text string, style TextStyle)
	// End finishes the frame and reports any error from the underlying writer
	End() error
}
