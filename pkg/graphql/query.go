package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// ExecuteQuery executes a query against snap
func ExecuteQuery(ctx context.Context, schema graphql.Schema, snap *visualization.Snapshot, query string) *graphql.Result {
	return ExecuteQueryWithVariables(ctx, schema, snap, query, nil)
}

// ExecuteQueryWithVariables executes a query with variables against snap
func ExecuteQueryWithVariables(ctx context.Context, schema graphql.Schema, snap *visualization.Snapshot, query string, variables map[string]any) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: variables,
		Context:        WithSnapshot(ctx, snap),
	})
}

// ExecuteWithDepthLimit validates the query depth before executing it
func ExecuteWithDepthLimit(ctx context.Context, schema graphql.Schema, snap *visualization.Snapshot, query string, maxDepth int, variables map[string]any) *graphql.Result {
	if err := ValidateQueryDepth(query, maxDepth); err != nil {
		return &graphql.Result{
			Errors: []gqlerrors.FormattedError{
				gqlerrors.FormatError(err),
			},
		}
	}
	return ExecuteQueryWithVariables(ctx, schema, snap, query, variables)
}
