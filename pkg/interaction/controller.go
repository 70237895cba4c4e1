// Package interaction turns raw pointer input into node picking, dragging,
// selection and viewport changes.
package interaction

import (
	"math"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// None marks the absence of a hovered, selected or dragged node
const None = -1

// DefaultPanThreshold is how far, in surface units, the pointer may travel
// over the background before a press becomes a pan instead of a click
const DefaultPanThreshold = 3.0

// Change reports what an input event changed
type Change uint8

const (
	ChangeHover Change = 1 << iota
	ChangeSelection
	ChangePosition
	ChangeViewport
)

// Any reports whether anything changed
func (c Change) Any() bool { return c != 0 }

// Has reports whether all bits of flag are set
func (c Change) Has(flag Change) bool { return c&flag == flag }

// Controller tracks pointer state against one model and viewport. Pointer
// coordinates are in surface space; they are projected into model space
// through the viewport before hit-testing.
//
// Controller is not safe for concurrent use; the owning view serializes
// input with simulation ticks.
type Controller struct {
	model    *visualization.Model
	viewport *visualization.Viewport

	hovered  int
	selected int
	dragged  int

	pressed        bool
	panning        bool
	pressX, pressY float64
	lastX, lastY   float64
	panThreshold   float64
}

// NewController creates a controller bound to a viewport. Call SetModel
// before feeding input.
func NewController(viewport *visualization.Viewport) *Controller {
	return &Controller{
		viewport:     viewport,
		hovered:      None,
		selected:     None,
		dragged:      None,
		panThreshold: DefaultPanThreshold,
	}
}

// SetPanThreshold overrides DefaultPanThreshold
func (c *Controller) SetPanThreshold(d float64) {
	if d >= 0 {
		c.panThreshold = d
	}
}

// SetModel binds a new model and forgets all pointer state
func (c *Controller) SetModel(m *visualization.Model) {
	c.model = m
	c.hovered, c.selected, c.dragged = None, None, None
	c.pressed, c.panning = false, false
}

// Hovered returns the hovered node index or None
func (c *Controller) Hovered() int { return c.hovered }

// Selected returns the selected node index or None
func (c *Controller) Selected() int { return c.selected }

// Dragged returns the dragged node index or None
func (c *Controller) Dragged() int { return c.dragged }

// Viewport returns the viewport the controller pans and zooms
func (c *Controller) Viewport() *visualization.Viewport { return c.viewport }

// HitTest projects a surface point into model space and returns the first
// node containing it, or None
func (c *Controller) HitTest(sx, sy float64) int {
	if c.model == nil {
		return None
	}
	return c.model.HitTest(c.viewport.ToModel(sx, sy))
}

// PointerMove moves a dragged node to the pointer and pans the viewport during
// a background drag. Unless a node is being dragged the hovered node follows
// the pointer.
func (c *Controller) PointerMove(sx, sy float64) Change {
	if c.model == nil {
		return 0
	}

	if c.dragged != None {
		n := c.model.At(c.dragged)
		p := c.viewport.ToModel(sx, sy)
		n.X, n.Y = p.X, p.Y
		n.VX, n.VY = 0, 0
		c.lastX, c.lastY = sx, sy
		return ChangePosition
	}

	if c.pressed {
		if !c.panning && math.Hypot(sx-c.pressX, sy-c.pressY) > c.panThreshold {
			c.panning = true
		}
		var change Change
		if c.panning {
			c.viewport.Pan(sx-c.lastX, sy-c.lastY)
			c.lastX, c.lastY = sx, sy
			change = ChangeViewport
		}
		return change | c.hover(sx, sy)
	}

	return c.hover(sx, sy)
}

func (c *Controller) hover(sx, sy float64) Change {
	hit := c.HitTest(sx, sy)
	if hit == c.hovered {
		return 0
	}
	c.hovered = hit
	return ChangeHover
}

// PointerDown starts a drag when the pointer is over a node, selecting it;
// over the background it arms a pan.
func (c *Controller) PointerDown(sx, sy float64) Change {
	if c.model == nil {
		return 0
	}
	c.pressed = true
	c.pressX, c.pressY = sx, sy
	c.lastX, c.lastY = sx, sy

	hit := c.HitTest(sx, sy)
	if hit == None {
		return 0
	}

	c.dragged = hit
	n := c.model.At(hit)
	n.VX, n.VY = 0, 0

	var change Change
	if c.hovered != hit {
		c.hovered = hit
		change |= ChangeHover
	}
	return change | c.Select(hit)
}

// PointerUp ends a drag or pan. The released node rejoins the simulation
// where it is, at rest. A press and release over the background without
// panning clears the selection.
func (c *Controller) PointerUp(sx, sy float64) Change {
	if !c.pressed {
		return 0
	}
	wasPanning := c.panning
	c.pressed, c.panning = false, false

	if c.dragged != None {
		c.release()
		return 0
	}
	if !wasPanning && c.HitTest(sx, sy) == None {
		return c.Select(None)
	}
	return 0
}

// PointerLeave ends any drag or pan and clears the hover
func (c *Controller) PointerLeave() Change {
	var change Change
	if c.dragged != None {
		c.release()
	}
	c.pressed, c.panning = false, false
	if c.hovered != None {
		c.hovered = None
		change |= ChangeHover
	}
	return change
}

// Wheel zooms the viewport by one discrete step
func (c *Controller) Wheel(deltaY float64) Change {
	before := c.viewport.Scale
	c.viewport.Wheel(deltaY)
	if c.viewport.Scale == before {
		return 0
	}
	return ChangeViewport
}

// Select sets the selected node by index; None clears it. Out of range
// indices clear the selection.
func (c *Controller) Select(i int) Change {
	if c.model == nil || c.model.At(i) == nil {
		i = None
	}
	if i == c.selected {
		return 0
	}
	c.selected = i
	return ChangeSelection
}

func (c *Controller) release() {
	if n := c.model.At(c.dragged); n != nil {
		n.VX, n.VY = 0, 0
	}
	c.dragged = None
}
