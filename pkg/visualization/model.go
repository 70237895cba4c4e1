package visualization

import (
	"math"
	"math/rand"
	"time"
)

// Node is one entity in the diagram. Position and velocity are mutated in
// place by the simulation and the interaction controller; every other field
// is fixed at construction.
type Node struct {
	ID       string
	Name     string
	Category string
	Status   string
	X, Y     float64
	VX, VY   float64
	Radius   float64
	Color    string
}

// Position returns the node center
func (n *Node) Position() Position {
	return Position{X: n.X, Y: n.Y}
}

// Contains reports whether p lies within the node's radius
func (n *Node) Contains(p Position) bool {
	dx := p.X - n.X
	dy := p.Y - n.Y
	return math.Sqrt(dx*dx+dy*dy) <= n.Radius
}

// Edge is one directed relationship between two nodes of the same model
type Edge struct {
	ID          string
	Source      string
	Target      string
	Kind        string
	Description string

	from, to int
}

// Endpoints returns the arena indices of the source and target nodes
func (e *Edge) Endpoints() (from, to int) {
	return e.from, e.to
}

// Model is the node/edge arena. Nodes are addressed by stable index; the
// index of a node never changes for the lifetime of the model.
type Model struct {
	nodes   []Node
	edges   []Edge
	index   map[string]int
	kinds   []string
	dropped int
	config  LayoutConfig
}

// Builder accumulates entities and relations and resolves them into a Model.
// Entities are deduplicated by id (first occurrence wins). Relations whose
// endpoints are not known at Build time are dropped.
type Builder struct {
	opts     ModelOptions
	nodes    []Node
	index    map[string]int
	pending  []Edge
	kindSeen map[string]bool
	kinds    []string
}

// NewBuilder creates an empty model builder
func NewBuilder(opts ModelOptions) *Builder {
	opts.Layout = opts.Layout.withDefaults()
	return &Builder{
		opts:     opts,
		index:    make(map[string]int),
		kindSeen: make(map[string]bool),
	}
}

// AddEntity inserts a node for ref unless one with the same id exists.
// An entity without an id is treated as absent and reported as not added.
func (b *Builder) AddEntity(ref EntityRef) bool {
	if ref.ID == "" {
		return false
	}
	if _, exists := b.index[ref.ID]; exists {
		return false
	}

	b.index[ref.ID] = len(b.nodes)
	b.nodes = append(b.nodes, Node{
		ID:       ref.ID,
		Name:     ref.Name,
		Category: ref.Category,
		Status:   ref.Status,
		Radius:   b.opts.Layout.NodeRadius,
		Color:    StatusColor(ref.Status),
	})
	return true
}

// AddRelation queues a directed relation between two entity ids.
// Multi-edges between the same pair are kept.
func (b *Builder) AddRelation(id, kind, description, sourceID, targetID string) {
	b.pending = append(b.pending, Edge{
		ID:          id,
		Source:      sourceID,
		Target:      targetID,
		Kind:        kind,
		Description: description,
	})
}

// AddRecord adds both endpoints of a relation record and the relation itself
func (b *Builder) AddRecord(rec RelationRecord) {
	b.AddEntity(rec.Source)
	b.AddEntity(rec.Target)
	b.AddRelation(rec.ID, rec.Kind, rec.Description, rec.Source.ID, rec.Target.ID)
}

// Build resolves queued relations, seeds initial positions and returns the
// finished model. The builder must not be reused afterwards.
func (b *Builder) Build() *Model {
	m := &Model{
		nodes:  b.nodes,
		index:  b.index,
		config: b.opts.Layout,
		edges:  make([]Edge, 0, len(b.pending)),
	}

	for _, e := range b.pending {
		from, okFrom := b.index[e.Source]
		to, okTo := b.index[e.Target]
		if !okFrom || !okTo {
			m.dropped++
			continue
		}
		e.from, e.to = from, to
		m.edges = append(m.edges, e)

		if !b.kindSeen[e.Kind] {
			b.kindSeen[e.Kind] = true
			b.kinds = append(b.kinds, e.Kind)
		}
	}
	m.kinds = b.kinds

	seed := b.opts.Seed
	if seed == nil {
		rng := b.opts.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		seed = NewRandomLayout(b.opts.Layout, rng)
	}
	m.ApplyPositions(seed.ComputeLayout(m))

	return m
}

// NewModel builds a model from relation records in one pass
func NewModel(records []RelationRecord, opts ModelOptions) *Model {
	b := NewBuilder(opts)
	for _, rec := range records {
		b.AddRecord(rec)
	}
	return b.Build()
}

// Config returns the canvas configuration the model was built for
func (m *Model) Config() LayoutConfig {
	return m.config
}

// Nodes returns the node arena. Callers may mutate position and velocity.
func (m *Model) Nodes() []Node {
	return m.nodes
}

// Edges returns the resolved edges in input order
func (m *Model) Edges() []Edge {
	return m.edges
}

// Len returns the number of nodes
func (m *Model) Len() int {
	return len(m.nodes)
}

// Empty reports whether the model has no nodes
func (m *Model) Empty() bool {
	return len(m.nodes) == 0
}

// Index returns the arena index of a node id, or -1
func (m *Model) Index(id string) int {
	if i, ok := m.index[id]; ok {
		return i
	}
	return -1
}

// Node returns the node with the given id, or nil
func (m *Model) Node(id string) *Node {
	i, ok := m.index[id]
	if !ok {
		return nil
	}
	return &m.nodes[i]
}

// At returns the node at an arena index, or nil when out of range
func (m *Model) At(i int) *Node {
	if i < 0 || i >= len(m.nodes) {
		return nil
	}
	return &m.nodes[i]
}

// RelationKinds lists the distinct relation kinds in first-seen order
func (m *Model) RelationKinds() []string {
	out := make([]string, len(m.kinds))
	copy(out, m.kinds)
	return out
}

// DroppedEdges returns how many relations were dropped for a missing endpoint
func (m *Model) DroppedEdges() int {
	return m.dropped
}

// HitTest returns the index of the first node, in insertion order, whose
// center is within its radius of p. Returns -1 when nothing is hit.
func (m *Model) HitTest(p Position) int {
	for i := range m.nodes {
		if m.nodes[i].Contains(p) {
			return i
		}
	}
	return -1
}

// KineticEnergy returns the sum of squared velocities over all nodes
func (m *Model) KineticEnergy() float64 {
	var e float64
	for i := range m.nodes {
		e += m.nodes[i].VX*m.nodes[i].VX + m.nodes[i].VY*m.nodes[i].VY
	}
	return e
}

// ApplyPositions moves nodes to the given positions, clamped into the canvas,
// and zeroes their velocity. Ids not in the model are ignored.
func (m *Model) ApplyPositions(positions map[string]Position) {
	for id, pos := range positions {
		i, ok := m.index[id]
		if !ok {
			continue
		}
		n := &m.nodes[i]
		n.X = clamp(pos.X, n.Radius, m.config.Width-n.Radius)
		n.Y = clamp(pos.Y, n.Radius, m.config.Height-n.Radius)
		n.VX, n.VY = 0, 0
	}
}

// Direction tells whether a neighbor is reached over an outgoing or an
// incoming edge
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

// Neighbor is one entry of a node's adjacency list
type Neighbor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Kind      string    `json:"relationKind"`
	Direction Direction `json:"direction"`
	Label     string    `json:"label"`
}

// Neighbors lists the direct neighbors of a node in edge order: targets of
// outgoing edges and sources of incoming edges. A self-loop is listed once,
// as outgoing. Unknown ids yield nil.
func (m *Model) Neighbors(id string) []Neighbor {
	i, ok := m.index[id]
	if !ok {
		return nil
	}

	out := make([]Neighbor, 0)
	for _, e := range m.edges {
		switch {
		case e.from == i:
			t := &m.nodes[e.to]
			out = append(out, newNeighbor(t.ID, t.Name, t.Status, e.Kind, Outgoing))
		case e.to == i:
			s := &m.nodes[e.from]
			out = append(out, newNeighbor(s.ID, s.Name, s.Status, e.Kind, Incoming))
		}
	}
	return out
}

func newNeighbor(id, name, status, kind string, dir Direction) Neighbor {
	label := kind
	if dir == Incoming {
		label += " (incoming)"
	}
	return Neighbor{ID: id, Name: name, Status: status, Kind: kind, Direction: dir, Label: label}
}

// Stats holds the aggregate counts shown in the summary strip
type Stats struct {
	TotalNodes int            `json:"totalNodes"`
	TotalEdges int            `json:"totalEdges"`
	ByStatus   map[string]int `json:"byStatus"`
}

// Stats computes node, edge and per-status counts
func (m *Model) Stats() Stats {
	s := Stats{
		TotalNodes: len(m.nodes),
		TotalEdges: len(m.edges),
		ByStatus:   make(map[string]int),
	}
	for i := range m.nodes {
		s.ByStatus[m.nodes[i].Status]++
	}
	return s
}
