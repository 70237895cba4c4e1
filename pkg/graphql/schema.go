// Package graphql exposes a read-only GraphQL view of the graph: nodes,
// relations, neighbors and summary counts.
package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"
)

var (
	nodeType     *graphql.Object
	edgeType     *graphql.Object
	neighborType *graphql.Object
)

var statusCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "StatusCount",
	Fields: graphql.Fields{
		"status": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"count":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var statsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Stats",
	Fields: graphql.Fields{
		"totalNodes":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"totalEdges":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"droppedEdges": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"byStatus":     &graphql.Field{Type: graphql.NewList(statusCountType)},
	},
})

func init() {
	nodeType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: nodeField("id")},
				"name":     &graphql.Field{Type: graphql.String, Resolve: nodeField("name")},
				"status":   &graphql.Field{Type: graphql.String, Resolve: nodeField("status")},
				"category": &graphql.Field{Type: graphql.String, Resolve: nodeField("category")},
				"color":    &graphql.Field{Type: graphql.String, Resolve: nodeField("color")},
				"x":        &graphql.Field{Type: graphql.Float, Resolve: nodeField("x")},
				"y":        &graphql.Field{Type: graphql.Float, Resolve: nodeField("y")},
				"radius":   &graphql.Field{Type: graphql.Float, Resolve: nodeField("radius")},
				"degree":   &graphql.Field{Type: graphql.Int, Resolve: resolveDegree},
				"neighbors": &graphql.Field{
					Type:    graphql.NewList(neighborType),
					Resolve: resolveNodeNeighbors,
				},
			}
		}),
	})

	edgeType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Edge",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":           &graphql.Field{Type: graphql.ID, Resolve: edgeField("id")},
				"relationKind": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: edgeField("relationKind")},
				"description":  &graphql.Field{Type: graphql.String, Resolve: edgeField("description")},
				"color":        &graphql.Field{Type: graphql.String, Resolve: edgeField("color")},
				"source":       &graphql.Field{Type: nodeType, Resolve: resolveEdgeEnd(true)},
				"target":       &graphql.Field{Type: nodeType, Resolve: resolveEdgeEnd(false)},
			}
		}),
	})

	neighborType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Neighbor",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":           &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: neighborField("id")},
				"name":         &graphql.Field{Type: graphql.String, Resolve: neighborField("name")},
				"status":       &graphql.Field{Type: graphql.String, Resolve: neighborField("status")},
				"relationKind": &graphql.Field{Type: graphql.String, Resolve: neighborField("relationKind")},
				"direction":    &graphql.Field{Type: graphql.String, Resolve: neighborField("direction")},
				"label":        &graphql.Field{Type: graphql.String, Resolve: neighborField("label")},
				"node":         &graphql.Field{Type: nodeType, Resolve: resolveNeighborNode},
			}
		}),
	})
}

// GenerateSchema builds the query schema. Every resolver reads the
// snapshot the executor attached to the request context.
func GenerateSchema() (graphql.Schema, error) {
	limits := DefaultLimitConfig()

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "ok", nil
				},
			},
			"node": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: resolveNode,
			},
			"nodes": &graphql.Field{
				Type:    graphql.NewList(nodeType),
				Args:    nodeFilterArgs(),
				Resolve: resolveNodes(limits),
			},
			"edges": &graphql.Field{
				Type: graphql.NewList(edgeType),
				Args: graphql.FieldConfigArgument{
					"relationKind": &graphql.ArgumentConfig{Type: graphql.String},
					"limit":        &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: resolveEdges(limits),
			},
			"neighbors": &graphql.Field{
				Type: graphql.NewList(neighborType),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: resolveNeighbors,
			},
			"relationKinds": &graphql.Field{
				Type:    graphql.NewList(graphql.String),
				Resolve: resolveRelationKinds,
			},
			"stats": &graphql.Field{
				Type:    statsType,
				Resolve: resolveStats,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}
