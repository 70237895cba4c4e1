package visualization

import "strings"

// AllKinds disables the relation kind filter
const AllKinds = "ALL"

// Filter selects what is drawn. It never removes anything from the model
// or the simulation.
type Filter struct {
	Search string `json:"search"`
	Kind   string `json:"relationKind"`
}

// Active reports whether the filter hides anything at all
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Search) != "" || f.kindActive()
}

func (f Filter) kindActive() bool {
	return f.Kind != "" && f.Kind != AllKinds
}

// Visible is the result of applying a Filter to a Model, indexed like the
// model's node and edge slices
type Visible struct {
	Nodes []bool
	Edges []bool
}

// NodeCount returns the number of visible nodes
func (v Visible) NodeCount() int {
	return countTrue(v.Nodes)
}

// EdgeCount returns the number of visible edges
func (v Visible) EdgeCount() int {
	return countTrue(v.Edges)
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// Apply evaluates the filter. Search and kind compose by intersection:
// a node is visible when it matches the search and, with a kind filter set,
// touches at least one edge of that kind. An edge is visible when both
// endpoints are visible and its kind matches.
func (f Filter) Apply(m *Model) Visible {
	vis := Visible{
		Nodes: make([]bool, len(m.nodes)),
		Edges: make([]bool, len(m.edges)),
	}

	needle := strings.ToLower(strings.TrimSpace(f.Search))
	for i := range m.nodes {
		vis.Nodes[i] = matchesSearch(&m.nodes[i], needle)
	}

	if f.kindActive() {
		touched := make([]bool, len(m.nodes))
		for _, e := range m.edges {
			if e.Kind == f.Kind {
				touched[e.from] = true
				touched[e.to] = true
			}
		}
		for i := range vis.Nodes {
			vis.Nodes[i] = vis.Nodes[i] && touched[i]
		}
	}

	for k, e := range m.edges {
		kindOK := !f.kindActive() || e.Kind == f.Kind
		vis.Edges[k] = kindOK && vis.Nodes[e.from] && vis.Nodes[e.to]
	}

	return vis
}

// ApplySnapshot evaluates the filter against a snapshot with the same
// rules as Apply; the result is indexed like the snapshot's slices.
func (f Filter) ApplySnapshot(s *Snapshot) Visible {
	vis := Visible{
		Nodes: make([]bool, len(s.Nodes)),
		Edges: make([]bool, len(s.Edges)),
	}

	index := make(map[string]int, len(s.Nodes))
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	for i := range s.Nodes {
		index[s.Nodes[i].ID] = i
		vis.Nodes[i] = matchesText(s.Nodes[i].Name, s.Nodes[i].Category, needle)
	}

	if f.kindActive() {
		touched := make([]bool, len(s.Nodes))
		for _, e := range s.Edges {
			if e.Kind != f.Kind {
				continue
			}
			if i, ok := index[e.Source]; ok {
				touched[i] = true
			}
			if i, ok := index[e.Target]; ok {
				touched[i] = true
			}
		}
		for i := range vis.Nodes {
			vis.Nodes[i] = vis.Nodes[i] && touched[i]
		}
	}

	for k, e := range s.Edges {
		src, srcOK := index[e.Source]
		dst, dstOK := index[e.Target]
		if !srcOK || !dstOK {
			continue
		}
		kindOK := !f.kindActive() || e.Kind == f.Kind
		vis.Edges[k] = kindOK && vis.Nodes[src] && vis.Nodes[dst]
	}

	return vis
}

func matchesSearch(n *Node, needle string) bool {
	return matchesText(n.Name, n.Category, needle)
}

func matchesText(name, category, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), needle) ||
		strings.Contains(strings.ToLower(category), needle)
}
