package graphql

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// ErrNoSnapshot is returned when a query runs without a graph attached
var ErrNoSnapshot = errors.New("no graph snapshot attached to the query")

type snapshotKey struct{}

// WithSnapshot attaches the graph a query resolves against
func WithSnapshot(ctx context.Context, snap *visualization.Snapshot) context.Context {
	return context.WithValue(ctx, snapshotKey{}, snap)
}

func snapshotFrom(ctx context.Context) (*visualization.Snapshot, error) {
	if ctx == nil {
		return nil, ErrNoSnapshot
	}
	snap, ok := ctx.Value(snapshotKey{}).(*visualization.Snapshot)
	if !ok || snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

func nodeField(name string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		n, ok := p.Source.(visualization.NodeSnapshot)
		if !ok {
			return nil, nil
		}
		switch name {
		case "id":
			return n.ID, nil
		case "name":
			return n.Name, nil
		case "status":
			return n.Status, nil
		case "category":
			return n.Category, nil
		case "color":
			return n.Color, nil
		case "x":
			return n.X, nil
		case "y":
			return n.Y, nil
		case "radius":
			return n.Radius, nil
		}
		return nil, fmt.Errorf("unknown node field %q", name)
	}
}

func edgeField(name string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		e, ok := p.Source.(visualization.EdgeSnapshot)
		if !ok {
			return nil, nil
		}
		switch name {
		case "id":
			return e.ID, nil
		case "relationKind":
			return e.Kind, nil
		case "description":
			return e.Description, nil
		case "color":
			return e.Color, nil
		}
		return nil, fmt.Errorf("unknown edge field %q", name)
	}
}

func neighborField(name string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		n, ok := p.Source.(visualization.Neighbor)
		if !ok {
			return nil, nil
		}
		switch name {
		case "id":
			return n.ID, nil
		case "name":
			return n.Name, nil
		case "status":
			return n.Status, nil
		case "relationKind":
			return n.Kind, nil
		case "direction":
			return string(n.Direction), nil
		case "label":
			return n.Label, nil
		}
		return nil, fmt.Errorf("unknown neighbor field %q", name)
	}
}

func resolveNode(p graphql.ResolveParams) (interface{}, error) {
	snap, err := snapshotFrom(p.Context)
	if err != nil {
		return nil, err
	}
	id, _ := p.Args["id"].(string)
	if n, ok := snap.Node(id); ok {
		return n, nil
	}
	return nil, nil
}

func resolveNodes(limits *LimitConfig) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		snap, err := snapshotFrom(p.Context)
		if err != nil {
			return nil, err
		}
		filter, err := parseNodeFilter(p.Args)
		if err != nil {
			return nil, err
		}

		nodes := filter.apply(snap)
		if filter.orderBy != "" {
			sortNodes(nodes, filter.orderBy)
		}

		limit := applyLimit(intArg(p.Args, "limit", -1), limits)
		if limit < len(nodes) {
			nodes = nodes[:limit]
		}
		return nodes, nil
	}
}

func resolveEdges(limits *LimitConfig) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		snap, err := snapshotFrom(p.Context)
		if err != nil {
			return nil, err
		}
		kind, _ := p.Args["relationKind"].(string)

		edges := make([]visualization.EdgeSnapshot, 0, len(snap.Edges))
		for _, e := range snap.Edges {
			if kind == "" || kind == visualization.AllKinds || e.Kind == kind {
				edges = append(edges, e)
			}
		}

		limit := applyLimit(intArg(p.Args, "limit", -1), limits)
		if limit < len(edges) {
			edges = edges[:limit]
		}
		return edges, nil
	}
}

func resolveNeighbors(p graphql.ResolveParams) (interface{}, error) {
	snap, err := snapshotFrom(p.Context)
	if err != nil {
		return nil, err
	}
	id, _ := p.Args["id"].(string)
	if _, ok := snap.Node(id); !ok {
		return nil, fmt.Errorf("unknown node %q", id)
	}
	return snap.Neighbors(id), nil
}

func resolveNodeNeighbors(p graphql.ResolveParams) (interface{}, error) {
	n, ok := p.Source.(visualization.NodeSnapshot)
	if !ok {
		return nil, nil
	}
	snap, err := snapshotFrom(p.Context)
	if err != nil {
		return nil, err
	}
	return snap.Neighbors(n.ID), nil
}

func resolveDegree(p graphql.ResolveParams) (interface{}, error) {
	n, ok := p.Source.(visualization.NodeSnapshot)
	if !ok {
		return nil, nil
	}
	snap, err := snapshotFrom(p.Context)
	if err != nil {
		return nil, err
	}
	degree := 0
	for _, e := range snap.Edges {
		if e.Source == n.ID {
			degree++
		}
		if e.Target == n.ID {
			degree++
		}
	}
	return degree, nil
}

func resolveEdgeEnd(source bool) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		e, ok := p.Source.(visualization.EdgeSnapshot)
		if !ok {
			return nil, nil
		}
		snap, err := snapshotFrom(p.Context)
		if err != nil {
			return nil, err
		}
		id := e.Target
		if source {
			id = e.Source
		}
		if n, ok := snap.Node(id); ok {
			return n, nil
		}
		return nil, nil
	}
}

func resolveNeighborNode(p graphql.ResolveParams) (interface{}, error) {
	nb, ok := p.Source.(visualization.Neighbor)
	if !ok {
		return nil, nil
	}
	snap, err := snapshotFrom(p.Context)
	if err != nil {
		return nil, err
	}
	if n, ok := snap.Node(nb.ID); ok {
		return n, nil
	}
	return nil, nil
}

func resolveRelationKinds(p graphql.ResolveParams) (interface{}, error) {
	snap, err := snapshotFrom(p.Context)
	if err != nil {
		return nil, err
	}
	return snap.RelationKinds, nil
}

func resolveStats(p graphql.ResolveParams) (interface{}, error) {
	snap, err := snapshotFrom(p.Context)
	if err != nil {
		return nil, err
	}

	statuses := make([]string, 0, len(snap.Stats.ByStatus))
	for status := range snap.Stats.ByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	byStatus := make([]map[string]interface{}, 0, len(statuses))
	for _, status := range statuses {
		byStatus = append(byStatus, map[string]interface{}{
			"status": status,
			"count":  snap.Stats.ByStatus[status],
		})
	}

	return map[string]interface{}{
		"totalNodes":   snap.Stats.TotalNodes,
		"totalEdges":   snap.Stats.TotalEdges,
		"droppedEdges": snap.DroppedEdges,
		"byStatus":     byStatus,
	}, nil
}

func intArg(args map[string]interface{}, name string, def int) int {
	if v, ok := args[name].(int); ok {
		return v
	}
	return def
}
