package visualization

import (
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// randomModel builds a model with n nodes and e random edges (self-loops and
// multi-edges included)
func randomModel(seed int64, n, e int) *Model {
	rng := rand.New(rand.NewSource(seed))
	b := NewBuilder(ModelOptions{Rand: rng})
	for i := 0; i < n; i++ {
		b.AddEntity(EntityRef{ID: string(rune('a' + i)), Status: StatusActive})
	}
	for k := 0; k < e; k++ {
		src := string(rune('a' + rng.Intn(n)))
		dst := string(rune('a' + rng.Intn(n)))
		b.AddRelation("", KindDependsOn, "", src, dst)
	}
	return b.Build()
}

// TestSimulationInvariants uses property-based testing to verify the
// simulation invariants hold for arbitrary graphs
func TestSimulationInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("positions stay inside the canvas", prop.ForAll(
		func(seed int64, n, e, ticks int) bool {
			m := randomModel(seed, n, e)
			sim := NewSimulation(DefaultForceConfig())
			cfg := m.Config()
			for i := 0; i < ticks; i++ {
				sim.Step(m, NoDrag)
				for _, node := range m.Nodes() {
					if math.IsNaN(node.X) || math.IsNaN(node.Y) {
						return false
					}
					if node.X < node.Radius || node.X > cfg.Width-node.Radius {
						return false
					}
					if node.Y < node.Radius || node.Y > cfg.Height-node.Radius {
						return false
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 20),
		gen.IntRange(0, 40),
		gen.IntRange(1, 60),
	))

	properties.Property("dragged node keeps its position", prop.ForAll(
		func(seed int64, n int, x, y float64) bool {
			m := randomModel(seed, n, n)
			sim := NewSimulation(DefaultForceConfig())
			dragged := m.At(0)
			dragged.X, dragged.Y = x, y
			for i := 0; i < 5; i++ {
				sim.Step(m, 0)
			}
			return dragged.X == x && dragged.Y == y && dragged.VX == 0 && dragged.VY == 0
		},
		gen.Int64(),
		gen.IntRange(1, 10),
		gen.Float64Range(-500, 1500),
		gen.Float64Range(-500, 1500),
	))

	properties.Property("node center is always a hit", prop.ForAll(
		func(seed int64, n int) bool {
			m := randomModel(seed, n, 0)
			for i, node := range m.Nodes() {
				hit := m.HitTest(node.Position())
				// an earlier node may overlap; it must then contain the point too
				if hit < 0 || hit > i || !m.At(hit).Contains(node.Position()) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 20),
	))

	properties.Property("points just outside every radius never hit", prop.ForAll(
		func(seed int64, angle float64) bool {
			m := randomModel(seed, 1, 0)
			node := m.At(0)
			p := Position{
				X: node.X + (node.Radius+0.01)*math.Cos(angle),
				Y: node.Y + (node.Radius+0.01)*math.Sin(angle),
			}
			return m.HitTest(p) == -1
		},
		gen.Int64(),
		gen.Float64Range(0, 2*math.Pi),
	))

	properties.Property("zoom saturates within bounds", prop.ForAll(
		func(events []bool) bool {
			v := NewViewport(DefaultViewportConfig())
			for _, in := range events {
				if in {
					v.ZoomIn()
				} else {
					v.ZoomOut()
				}
				if v.Scale < 0.5 || v.Scale > 2.0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
