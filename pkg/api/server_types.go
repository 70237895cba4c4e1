package api

import (
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// ErrorResponse is the body of every non-2xx JSON answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// GraphResponse is the body of GET /api/v1/graph. With a search or kind
// filter only the visible nodes and edges are listed.
type GraphResponse struct {
	visualization.Snapshot
	State    string `json:"state"`
	Filtered bool   `json:"filtered"`
}

// StatsResponse is the body of GET /api/v1/graph/stats
type StatsResponse struct {
	visualization.Stats
	RelationKinds []string `json:"relationKinds"`
	DroppedEdges  int      `json:"droppedEdges"`
	State         string   `json:"state"`
	Frames        uint64   `json:"frames"`
	Sessions      int      `json:"sessions"`
}

// NeighborsResponse is the body of GET /api/v1/nodes/{id}/neighbors
type NeighborsResponse struct {
	ID        string                   `json:"id"`
	Neighbors []visualization.Neighbor `json:"neighbors"`
}

// ReloadResponse is the body of POST /api/v1/graph/reload
type ReloadResponse struct {
	Source     string  `json:"source"`
	Records    int     `json:"records"`
	Skipped    int     `json:"skipped"`
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	Dropped    int     `json:"droppedEdges"`
	DurationMS float64 `json:"durationMs"`
}

// NodeResponse is the body of GET /api/v1/nodes/{id}
type NodeResponse struct {
	visualization.NodeSnapshot
	Neighbors []visualization.Neighbor `json:"neighbors"`
}
