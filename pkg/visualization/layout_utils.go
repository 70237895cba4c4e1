package visualization

import (
	"math"
	"math/rand"
)

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		// Canvas smaller than a node: pin to the middle
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

// RandomLayout places nodes uniformly inside the padded canvas.
// Nodes are visited in insertion order, X drawn before Y.
type RandomLayout struct {
	config LayoutConfig
	rng    *rand.Rand
}

// NewRandomLayout creates a random layout driven by rng
func NewRandomLayout(config LayoutConfig, rng *rand.Rand) *RandomLayout {
	return &RandomLayout{config: config.withDefaults(), rng: rng}
}

// ComputeLayout draws one position per node
func (rl *RandomLayout) ComputeLayout(m *Model) map[string]Position {
	positions := make(map[string]Position)
	w := rl.config.Width - 2*rl.config.Padding
	h := rl.config.Height - 2*rl.config.Padding

	for _, n := range m.Nodes() {
		positions[n.ID] = Position{
			X: rl.rng.Float64()*w + rl.config.Padding,
			Y: rl.rng.Float64()*h + rl.config.Padding,
		}
	}
	return positions
}

// normalizePositions scales positions to fit within bounds
func normalizePositions(positions map[string]Position, width, height, padding float64) map[string]Position {
	if len(positions) == 0 {
		return positions
	}

	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64

	for _, pos := range positions {
		minX = math.Min(minX, pos.X)
		maxX = math.Max(maxX, pos.X)
		minY = math.Min(minY, pos.Y)
		maxY = math.Max(maxY, pos.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY

	if rangeX < 0.01 {
		rangeX = 1
	}
	if rangeY < 0.01 {
		rangeY = 1
	}

	targetWidth := width - 2*padding
	targetHeight := height - 2*padding

	normalized := make(map[string]Position, len(positions))
	for id, pos := range positions {
		normalized[id] = Position{
			X: padding + ((pos.X-minX)/rangeX)*targetWidth,
			Y: padding + ((pos.Y-minY)/rangeY)*targetHeight,
		}
	}

	return normalized
}

// Fit returns the model's current positions rescaled to fill the padded
// canvas. View.Fit applies it before a still frame is drawn.
func Fit(m *Model) map[string]Position {
	positions := make(map[string]Position, m.Len())
	for _, n := range m.Nodes() {
		positions[n.ID] = n.Position()
	}
	cfg := m.Config()
	return normalizePositions(positions, cfg.Width, cfg.Height, cfg.Padding)
}
