package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

func newTestHandler(t *testing.T) *GraphQLHandler {
	t.Helper()
	snap := testSnapshot(t)
	return NewGraphQLHandler(testSchema(t), func(ctx context.Context) (visualization.Snapshot, error) {
		return *snap, nil
	}, nil)
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) GraphQLResponse {
	t.Helper()
	var resp GraphQLResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestGraphQLHandler(t *testing.T) {
	w := post(newTestHandler(t), `{"query": "{ node(id: \"web\") { name } }"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	resp := decodeResponse(t, w)
	if len(resp.Errors) > 0 {
		t.Fatalf("Unexpected errors: %v", resp.Errors)
	}
	data := resp.Data.(map[string]interface{})
	node := data["node"].(map[string]interface{})
	if node["name"] != "Web Frontend" {
		t.Errorf("Expected Web Frontend, got %v", node["name"])
	}
}

func TestGraphQLHandlerVariables(t *testing.T) {
	body := `{"query": "query($k: String) { edges(relationKind: $k) { id } }", "variables": {"k": "RUNS_ON"}}`
	resp := decodeResponse(t, post(newTestHandler(t), body))

	edges := resp.Data.(map[string]interface{})["edges"].([]interface{})
	if len(edges) != 2 {
		t.Errorf("Expected 2 RUNS_ON edges, got %d", len(edges))
	}
}

func TestGraphQLHandlerRejectsGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	w := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
	if w.Header().Get("Allow") != http.MethodPost {
		t.Errorf("Expected Allow: POST, got %q", w.Header().Get("Allow"))
	}
}

func TestGraphQLHandlerBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query": `},
		{"missing query", `{"variables": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(newTestHandler(t), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
		})
	}
}

func TestGraphQLHandlerDepthLimit(t *testing.T) {
	h := newTestHandler(t)
	h.SetMaxDepth(2)

	resp := decodeResponse(t, post(h, `{"query": "{ node(id: \"web\") { neighbors { id } } }"}`))
	if len(resp.Errors) == 0 {
		t.Fatal("Expected depth error")
	}
	if !strings.Contains(resp.Errors[0].Message, "depth") {
		t.Errorf("Unexpected error: %s", resp.Errors[0].Message)
	}

	h.SetMaxDepth(0)
	if h.maxDepth != 2 {
		t.Errorf("Expected non-positive depth to be ignored, got %d", h.maxDepth)
	}
}

func TestGraphQLHandlerQueryError(t *testing.T) {
	resp := decodeResponse(t, post(newTestHandler(t), `{"query": "{ neighbors(id: \"ghost\") { id } }"}`))
	if len(resp.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %v", resp.Errors)
	}
	if !strings.Contains(resp.Errors[0].Message, "ghost") {
		t.Errorf("Expected error to name the node, got %s", resp.Errors[0].Message)
	}
}

func TestGraphQLHandlerSnapshotUnavailable(t *testing.T) {
	h := NewGraphQLHandler(testSchema(t), func(ctx context.Context) (visualization.Snapshot, error) {
		return visualization.Snapshot{}, errors.New("loop closed")
	}, nil)

	w := post(h, `{"query": "{ health }"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if len(resp.Errors) != 1 || resp.Errors[0].Message != "graph unavailable" {
		t.Errorf("Unexpected errors: %v", resp.Errors)
	}
}
