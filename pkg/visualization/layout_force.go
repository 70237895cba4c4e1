package visualization

import "math"

// NoDrag is passed to Simulation.Step when no node is under pointer control
const NoDrag = -1

// ForceConfig holds the simulation constants. Forces are applied directly as
// velocity deltas; there is no mass term.
type ForceConfig struct {
	Repulsion      float64 `yaml:"repulsion" json:"repulsion"`
	SpringLength   float64 `yaml:"spring_length" json:"springLength"`
	SpringStrength float64 `yaml:"spring_strength" json:"springStrength"`
	CenterStrength float64 `yaml:"center_strength" json:"centerStrength"`
	Damping        float64 `yaml:"damping" json:"damping"`
}

// DefaultForceConfig returns the constants the layout is tuned for
func DefaultForceConfig() ForceConfig {
	return ForceConfig{
		Repulsion:      5000,
		SpringLength:   150,
		SpringStrength: 0.05,
		CenterStrength: 0.01,
		Damping:        0.9,
	}
}

// Simulation integrates the force model one tick at a time
type Simulation struct {
	forces ForceConfig
	ticks  uint64
}

// NewSimulation creates a simulation with the given constants
func NewSimulation(forces ForceConfig) *Simulation {
	return &Simulation{forces: forces}
}

// Forces returns the simulation constants
func (s *Simulation) Forces() ForceConfig {
	return s.forces
}

// Ticks returns the number of steps taken so far
func (s *Simulation) Ticks() uint64 {
	return s.ticks
}

// Step performs one explicit Euler step over the whole model.
// The node at index dragged keeps its position and has its velocity zeroed;
// pass NoDrag when nothing is being dragged.
func (s *Simulation) Step(m *Model, dragged int) {
	s.ticks++

	nodes := m.nodes
	if len(nodes) == 0 {
		return
	}
	f := s.forces
	center := m.config.Center()

	// Repulsion between every ordered pair, O(n^2)
	for i := range nodes {
		a := &nodes[i]
		for j := range nodes {
			if i == j {
				continue
			}
			b := &nodes[j]
			dx := a.X - b.X
			dy := a.Y - b.Y
			dist := math.Max(math.Sqrt(dx*dx+dy*dy), 1)
			force := f.Repulsion / (dist * dist)
			a.VX += dx / dist * force
			a.VY += dy / dist * force
		}
	}

	// Springs along edges, equal and opposite on the two endpoints
	for k := range m.edges {
		e := &m.edges[k]
		src := &nodes[e.from]
		dst := &nodes[e.to]
		dx := dst.X - src.X
		dy := dst.Y - src.Y
		dist := math.Max(math.Sqrt(dx*dx+dy*dy), 1)
		force := (dist - f.SpringLength) * f.SpringStrength
		fx := dx / dist * force
		fy := dy / dist * force
		src.VX += fx
		src.VY += fy
		dst.VX -= fx
		dst.VY -= fy
	}

	for i := range nodes {
		n := &nodes[i]
		n.VX += (center.X - n.X) * f.CenterStrength
		n.VY += (center.Y - n.Y) * f.CenterStrength

		n.VX *= f.Damping
		n.VY *= f.Damping

		if i == dragged {
			n.VX, n.VY = 0, 0
			continue
		}

		n.X = clamp(n.X+n.VX, n.Radius, m.config.Width-n.Radius)
		n.Y = clamp(n.Y+n.VY, n.Radius, m.config.Height-n.Radius)
	}
}

// Run performs ticks steps with no node dragged and returns the kinetic
// energy left in the model
func (s *Simulation) Run(m *Model, ticks int) float64 {
	for i := 0; i < ticks; i++ {
		s.Step(m, NoDrag)
	}
	return m.KineticEnergy()
}
