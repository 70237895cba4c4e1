package graphql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// nodeFilter is the parsed form of the nodes query arguments
type nodeFilter struct {
	view     visualization.Filter
	status   string
	category string
	orderBy  string
}

var orderFields = map[string]bool{"name": true, "status": true, "category": true, "id": true}

func nodeFilterArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"search":       &graphql.ArgumentConfig{Type: graphql.String, Description: "Case-insensitive match on name or category"},
		"relationKind": &graphql.ArgumentConfig{Type: graphql.String, Description: "Only nodes touching a relation of this kind"},
		"status":       &graphql.ArgumentConfig{Type: graphql.String},
		"category":     &graphql.ArgumentConfig{Type: graphql.String},
		"orderBy":      &graphql.ArgumentConfig{Type: graphql.String, Description: "name, status, category or id; default is model order"},
		"limit":        &graphql.ArgumentConfig{Type: graphql.Int},
	}
}

func parseNodeFilter(args map[string]interface{}) (*nodeFilter, error) {
	f := &nodeFilter{}
	f.view.Search, _ = args["search"].(string)
	f.view.Kind, _ = args["relationKind"].(string)
	f.status, _ = args["status"].(string)
	f.category, _ = args["category"].(string)
	f.orderBy, _ = args["orderBy"].(string)

	if f.orderBy != "" && !orderFields[f.orderBy] {
		return nil, fmt.Errorf("cannot order nodes by %q", f.orderBy)
	}
	return f, nil
}

// apply returns the matching nodes in snapshot order. Search and relation
// kind follow the view's filter rules; status and category are exact.
func (f *nodeFilter) apply(snap *visualization.Snapshot) []visualization.NodeSnapshot {
	vis := f.view.ApplySnapshot(snap)

	out := make([]visualization.NodeSnapshot, 0, vis.NodeCount())
	for i, n := range snap.Nodes {
		if !vis.Nodes[i] {
			continue
		}
		if f.status != "" && !strings.EqualFold(n.Status, f.status) {
			continue
		}
		if f.category != "" && !strings.EqualFold(n.Category, f.category) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func sortNodes(nodes []visualization.NodeSnapshot, field string) {
	key := func(n visualization.NodeSnapshot) string {
		switch field {
		case "status":
			return n.Status
		case "category":
			return n.Category
		case "id":
			return n.ID
		default:
			return strings.ToLower(n.Name)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return key(nodes[i]) < key(nodes[j])
	})
}
