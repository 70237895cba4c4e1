package visualization

import "encoding/json"

// NodeSnapshot is the serialized form of a node
type NodeSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Status   string  `json:"status"`
	Color    string  `json:"color"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
}

// EdgeSnapshot is the serialized form of an edge
type EdgeSnapshot struct {
	ID          string `json:"id,omitempty"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Kind        string `json:"relationKind"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
}

// Snapshot is a read-only copy of the model at one instant
type Snapshot struct {
	Width         float64        `json:"width"`
	Height        float64        `json:"height"`
	Nodes         []NodeSnapshot `json:"nodes"`
	Edges         []EdgeSnapshot `json:"edges"`
	RelationKinds []string       `json:"relationKinds"`
	Stats         Stats          `json:"stats"`
	DroppedEdges  int            `json:"droppedEdges"`
}

// Snapshot copies the current model state
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		Width:         m.config.Width,
		Height:        m.config.Height,
		Nodes:         make([]NodeSnapshot, 0, len(m.nodes)),
		Edges:         make([]EdgeSnapshot, 0, len(m.edges)),
		RelationKinds: m.RelationKinds(),
		Stats:         m.Stats(),
		DroppedEdges:  m.dropped,
	}

	for i := range m.nodes {
		n := &m.nodes[i]
		s.Nodes = append(s.Nodes, NodeSnapshot{
			ID:       n.ID,
			Name:     n.Name,
			Category: n.Category,
			Status:   n.Status,
			Color:    n.Color,
			X:        n.X,
			Y:        n.Y,
			Radius:   n.Radius,
		})
	}

	for _, e := range m.edges {
		s.Edges = append(s.Edges, EdgeSnapshot{
			ID:          e.ID,
			Source:      e.Source,
			Target:      e.Target,
			Kind:        e.Kind,
			Description: e.Description,
			Color:       RelationColor(e.Kind),
		})
	}

	return s
}

// ExportJSON exports the current model state to JSON
func (m *Model) ExportJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

// Node looks up a node of the snapshot by id
func (s *Snapshot) Node(id string) (NodeSnapshot, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSnapshot{}, false
}

// Neighbors lists the neighbors of id the same way Model.Neighbors does.
// Unknown ids yield nil.
func (s *Snapshot) Neighbors(id string) []Neighbor {
	if _, ok := s.Node(id); !ok {
		return nil
	}

	byID := make(map[string]*NodeSnapshot, len(s.Nodes))
	for i := range s.Nodes {
		byID[s.Nodes[i].ID] = &s.Nodes[i]
	}

	out := make([]Neighbor, 0)
	for _, e := range s.Edges {
		switch {
		case e.Source == id:
			t := byID[e.Target]
			out = append(out, newNeighbor(t.ID, t.Name, t.Status, e.Kind, Outgoing))
		case e.Target == id:
			src := byID[e.Source]
			out = append(out, newNeighbor(src.ID, src.Name, src.Status, e.Kind, Incoming))
		}
	}
	return out
}
