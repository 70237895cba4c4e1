package visualization

import "math/rand"

// Position represents a 2D coordinate in model space
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutConfig configures the canvas the layout lives on
type LayoutConfig struct {
	Width      float64 // Canvas width (extent on the X axis)
	Height     float64 // Canvas height (extent on the Y axis)
	Iterations int     // Ticks run by Simulation.Run when settling headlessly
	Padding    float64 // Margin kept free when seeding initial positions
	NodeRadius float64 // Rendering and hit-test radius of every node
}

// DefaultLayoutConfig returns the canvas used by the relationship graph page
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Width:      1000,
		Height:     800,
		Iterations: 300,
		Padding:    100,
		NodeRadius: 25,
	}
}

func (c *LayoutConfig) withDefaults() LayoutConfig {
	d := DefaultLayoutConfig()
	if *c == (LayoutConfig{}) {
		return d
	}
	out := *c
	if out.Width <= 0 {
		out.Width = d.Width
	}
	if out.Height <= 0 {
		out.Height = d.Height
	}
	if out.Iterations <= 0 {
		out.Iterations = d.Iterations
	}
	if out.Padding < 0 {
		out.Padding = 0
	}
	if out.NodeRadius <= 0 {
		out.NodeRadius = d.NodeRadius
	}
	return out
}

// Center returns the fixed point the centering force pulls toward
func (c LayoutConfig) Center() Position {
	return Position{X: c.Width / 2, Y: c.Height / 2}
}

// Layout computes initial positions for a freshly built model.
// Implementations only seed positions; the simulation takes over afterwards.
type Layout interface {
	ComputeLayout(m *Model) map[string]Position
}

// ModelOptions configures graph model construction
type ModelOptions struct {
	Layout LayoutConfig
	// Seed picks initial positions. Nil means RandomLayout.
	Seed Layout
	// Rand drives RandomLayout when Seed is nil. Nil uses a time-seeded source.
	Rand *rand.Rand
}
