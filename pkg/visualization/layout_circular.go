package visualization

import "math"

// CircularLayout arranges nodes on a circle in insertion order
type CircularLayout struct {
	config LayoutConfig
}

// NewCircularLayout creates a new circular layout
func NewCircularLayout(config LayoutConfig) *CircularLayout {
	return &CircularLayout{config: config.withDefaults()}
}

// ComputeLayout arranges nodes in a circle
func (cl *CircularLayout) ComputeLayout(m *Model) map[string]Position {
	positions := make(map[string]Position)

	nodes := m.Nodes()
	if len(nodes) == 0 {
		return positions
	}

	center := cl.config.Center()
	radius := math.Min(center.X, center.Y) - cl.config.Padding
	if radius < 0 {
		radius = 0
	}

	angleStep := 2 * math.Pi / float64(len(nodes))

	for i := range nodes {
		angle := float64(i) * angleStep
		positions[nodes[i].ID] = Position{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}

	return positions
}
