package visualization

// HierarchicalLayout arranges nodes in levels following edge direction
type HierarchicalLayout struct {
	config LayoutConfig
}

// NewHierarchicalLayout creates a new hierarchical layout
func NewHierarchicalLayout(config LayoutConfig) *HierarchicalLayout {
	return &HierarchicalLayout{config: config.withDefaults()}
}

// ComputeLayout arranges nodes hierarchically
func (hl *HierarchicalLayout) ComputeLayout(m *Model) map[string]Position {
	positions := make(map[string]Position)

	nodes := m.Nodes()
	if len(nodes) == 0 {
		return positions
	}

	outgoing := make([][]int, len(nodes))
	hasIncoming := make([]bool, len(nodes))
	for _, e := range m.Edges() {
		from, to := e.Endpoints()
		if from == to {
			continue
		}
		outgoing[from] = append(outgoing[from], to)
		hasIncoming[to] = true
	}

	// Roots are nodes with no incoming edges
	roots := make([]int, 0)
	for i := range nodes {
		if !hasIncoming[i] {
			roots = append(roots, i)
		}
	}

	if len(roots) == 0 {
		// Pure cycle, start from the first node
		roots = []int{0}
	}

	// Build levels using BFS
	levels := make([][]int, 0)
	visited := make([]bool, len(nodes))
	for _, r := range roots {
		visited[r] = true
	}
	currentLevel := roots

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		nextLevel := make([]int, 0)

		for _, i := range currentLevel {
			for _, j := range outgoing[i] {
				if !visited[j] {
					visited[j] = true
					nextLevel = append(nextLevel, j)
				}
			}
		}

		currentLevel = nextLevel
	}

	// Nodes only reachable through a cycle go on the last level
	for i := range nodes {
		if !visited[i] {
			levels[len(levels)-1] = append(levels[len(levels)-1], i)
		}
	}

	levelHeight := (hl.config.Height - 2*hl.config.Padding) / float64(len(levels))
	levelWidth := hl.config.Width - 2*hl.config.Padding

	for levelIdx, level := range levels {
		y := hl.config.Padding + float64(levelIdx)*levelHeight + levelHeight/2
		spacing := levelWidth / float64(len(level)+1)

		for pos, i := range level {
			positions[nodes[i].ID] = Position{
				X: hl.config.Padding + spacing*float64(pos+1),
				Y: y,
			}
		}
	}

	return positions
}
