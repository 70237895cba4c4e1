package graphql

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// maxRequestBytes caps a query document
const maxRequestBytes = 1 << 20

// GraphQLRequest represents a GraphQL HTTP request
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLResponse represents a GraphQL HTTP response
type GraphQLResponse struct {
	Data   any            `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message string `json:"message"`
}

// SnapshotFunc returns the graph a request resolves against
type SnapshotFunc func(ctx context.Context) (visualization.Snapshot, error)

// GraphQLHandler handles GraphQL HTTP requests. CORS is left to the
// router.
type GraphQLHandler struct {
	schema   graphql.Schema
	snapshot SnapshotFunc
	maxDepth int
	logger   logging.Logger
}

// NewGraphQLHandler creates a new GraphQL HTTP handler
func NewGraphQLHandler(schema graphql.Schema, snapshot SnapshotFunc, logger logging.Logger) *GraphQLHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GraphQLHandler{
		schema:   schema,
		snapshot: snapshot,
		maxDepth: DefaultMaxDepth,
		logger:   logger.With(logging.Component("graphql")),
	}
}

// SetMaxDepth changes the query depth limit
func (h *GraphQLHandler) SetMaxDepth(depth int) {
	if depth > 0 {
		h.maxDepth = depth
	}
}

// ServeHTTP handles HTTP requests for GraphQL queries
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GraphQLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "Missing query", http.StatusBadRequest)
		return
	}

	snap, err := h.snapshot(r.Context())
	if err != nil {
		h.logger.Warn("graph snapshot unavailable", logging.Error(err))
		writeResponse(w, http.StatusServiceUnavailable, GraphQLResponse{
			Errors: []GraphQLError{{Message: "graph unavailable"}},
		})
		return
	}

	result := ExecuteWithDepthLimit(r.Context(), h.schema, &snap, req.Query, h.maxDepth, req.Variables)

	response := GraphQLResponse{Data: result.Data}
	if result.HasErrors() {
		response.Errors = make([]GraphQLError, len(result.Errors))
		for i, err := range result.Errors {
			response.Errors[i] = GraphQLError{Message: err.Message}
		}
	}
	writeResponse(w, http.StatusOK, response)
}

func writeResponse(w http.ResponseWriter, status int, response GraphQLResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
