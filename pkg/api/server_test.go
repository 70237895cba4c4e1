package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dd0wney/cluso-graphview/pkg/config"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
	"github.com/dd0wney/cluso-graphview/pkg/source"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

type fakeSource struct {
	mu      sync.Mutex
	records []visualization.RelationRecord
	err     error
	loads   int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Load(ctx context.Context) ([]visualization.RelationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.records, f.err
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func entity(id, name, status string) visualization.EntityRef {
	return visualization.EntityRef{ID: id, Name: name, Status: status, Category: "Service"}
}

func testRecords() []visualization.RelationRecord {
	web := entity("web", "Web Frontend", "ACTIVE")
	db := entity("db", "Orders DB", "MAINTENANCE")
	host := entity("host", "Host 7", "ACTIVE")
	return []visualization.RelationRecord{
		{ID: "r1", Kind: "DEPENDS_ON", Source: web, Target: db},
		{ID: "r2", Kind: "RUNS_ON", Source: web, Target: host},
		{ID: "r3", Kind: "RUNS_ON", Source: db, Target: host},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Layout.Seed = 7
	cfg.Scheduler.FPS = 120
	cfg.Server.MaxSessions = 2
	return cfg
}

func newTestServer(t *testing.T, src *fakeSource) *Server {
	t.Helper()

	opts := Options{Config: testConfig(), Metrics: metrics.NewRegistry(), Version: "test"}
	if src != nil {
		opts.Loader = source.NewLoader(src)
	}
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func loadedServer(t *testing.T) (*Server, *fakeSource) {
	t.Helper()

	src := &fakeSource{records: testRecords()}
	srv := newTestServer(t, src)
	if _, err := srv.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return srv, src
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestGraphEndpoint(t *testing.T) {
	srv, _ := loadedServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/graph")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	resp := decode[GraphResponse](t, rec)
	if len(resp.Nodes) != 3 || len(resp.Edges) != 3 {
		t.Errorf("Expected 3 nodes and 3 edges, got %d and %d", len(resp.Nodes), len(resp.Edges))
	}
	if resp.Filtered {
		t.Error("Unfiltered request reported as filtered")
	}
	if resp.State != "running" {
		t.Errorf("State = %q, want running", resp.State)
	}
}

func TestGraphEndpointFilters(t *testing.T) {
	srv, _ := loadedServer(t)
	h := srv.Handler()

	resp := decode[GraphResponse](t, do(t, h, http.MethodGet, "/api/v1/graph?kind=DEPENDS_ON"))
	if !resp.Filtered {
		t.Error("Expected filtered response")
	}
	if len(resp.Nodes) != 2 || len(resp.Edges) != 1 {
		t.Fatalf("kind filter: got %d nodes, %d edges; want 2, 1", len(resp.Nodes), len(resp.Edges))
	}
	if resp.Stats.TotalNodes != 3 {
		t.Errorf("Stats should describe the whole graph, got %d nodes", resp.Stats.TotalNodes)
	}

	resp = decode[GraphResponse](t, do(t, h, http.MethodGet, "/api/v1/graph?search=orders"))
	if len(resp.Nodes) != 1 || resp.Nodes[0].ID != "db" {
		t.Errorf("search filter: got %+v", resp.Nodes)
	}
	if len(resp.Edges) != 0 {
		t.Errorf("Edges need both endpoints visible, got %d", len(resp.Edges))
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := loadedServer(t)

	resp := decode[StatsResponse](t, do(t, srv.Handler(), http.MethodGet, "/api/v1/graph/stats"))
	if resp.TotalNodes != 3 || resp.TotalEdges != 3 {
		t.Errorf("Stats = %+v", resp.Stats)
	}
	if resp.ByStatus["ACTIVE"] != 2 || resp.ByStatus["MAINTENANCE"] != 1 {
		t.Errorf("ByStatus = %v", resp.ByStatus)
	}
	if len(resp.RelationKinds) != 2 {
		t.Errorf("RelationKinds = %v", resp.RelationKinds)
	}
	if resp.Sessions != 0 {
		t.Errorf("Sessions = %d", resp.Sessions)
	}
}

func TestNodeEndpoints(t *testing.T) {
	srv, _ := loadedServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/nodes/web")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	node := decode[NodeResponse](t, rec)
	if node.Name != "Web Frontend" || len(node.Neighbors) != 2 {
		t.Errorf("node = %+v", node)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/nodes/host/neighbors")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	nb := decode[NeighborsResponse](t, rec)
	if nb.ID != "host" || len(nb.Neighbors) != 2 {
		t.Errorf("neighbors = %+v", nb)
	}
	for _, n := range nb.Neighbors {
		if n.Direction != visualization.Incoming {
			t.Errorf("Expected incoming neighbor, got %+v", n)
		}
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/v1/nodes/missing", http.StatusNotFound},
		{"/api/v1/nodes/missing/neighbors", http.StatusNotFound},
		{"/api/v1/nodes/" + strings.Repeat("x", 200), http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := do(t, h, http.MethodGet, tt.target)
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.want, rec.Code)
		}
		if tt.want >= 400 {
			body := decode[ErrorResponse](t, rec)
			if body.Code != tt.want {
				t.Errorf("%s: error body code = %d", tt.target, body.Code)
			}
		}
	}
}

func TestFrameEndpoints(t *testing.T) {
	srv, _ := loadedServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/graph/frame.svg?width=320&height=200")
	if rec.Code != http.StatusOK {
		t.Fatalf("svg: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("svg Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<svg") || !strings.Contains(body, `width="320"`) {
		t.Errorf("Unexpected SVG: %.200s", body)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/graph/frame.png?width=64&height=48")
	if rec.Code != http.StatusOK {
		t.Fatalf("png: expected 200, got %d", rec.Code)
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("Invalid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("PNG size = %v", b)
	}

	for _, target := range []string{
		"/api/v1/graph/frame.svg?width=0",
		"/api/v1/graph/frame.png?height=abc",
		"/api/v1/graph/frame.png?width=100000",
	} {
		if rec := do(t, h, http.MethodGet, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestReloadEndpoint(t *testing.T) {
	srv, src := loadedServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/graph/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[ReloadResponse](t, rec)
	if resp.Source != "fake" || resp.Records != 3 || resp.Nodes != 3 || resp.Edges != 3 {
		t.Errorf("reload = %+v", resp)
	}

	src.fail(errors.New("cmdb down"))
	rec = do(t, h, http.MethodPost, "/api/v1/graph/reload")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "cmdb down") {
		t.Error("Upstream error leaked to the client")
	}

	// the previous graph stays in place
	stats := decode[StatsResponse](t, do(t, h, http.MethodGet, "/api/v1/graph/stats"))
	if stats.TotalNodes != 3 {
		t.Errorf("Expected previous graph to survive a failed reload, got %d nodes", stats.TotalNodes)
	}
	state := srv.LoadState()
	if state.LastError == nil || state.LastSuccess.IsZero() {
		t.Errorf("LoadState = %+v", state)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/graph/reload"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reload: expected 405, got %d", rec.Code)
	}
}

func TestReloadWithoutSource(t *testing.T) {
	srv := newTestServer(t, nil)

	if _, err := srv.Reload(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("Expected ErrNoSource, got %v", err)
	}
	rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/graph/reload")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}

	// an empty graph is still served
	resp := decode[GraphResponse](t, do(t, srv.Handler(), http.MethodGet, "/api/v1/graph"))
	if len(resp.Nodes) != 0 {
		t.Errorf("Expected empty graph, got %d nodes", len(resp.Nodes))
	}
}

func TestHealthEndpoints(t *testing.T) {
	src := &fakeSource{records: testRecords()}
	srv := newTestServer(t, src)
	h := srv.Handler()

	if rec := do(t, h, http.MethodGet, "/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready before load: expected 503, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health/live"); rec.Code != http.StatusOK {
		t.Errorf("live: expected 200, got %d", rec.Code)
	}

	if _, err := srv.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if rec := do(t, h, http.MethodGet, "/health/ready"); rec.Code != http.StatusOK {
		t.Errorf("ready after load: expected 200, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status string                     `json:"status"`
		Checks map[string]json.RawMessage `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"source", "frame_loop", "sessions", "memory"} {
		if _, ok := body.Checks[name]; !ok {
			t.Errorf("Missing %s check", name)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := loadedServer(t)
	h := srv.Handler()

	do(t, h, http.MethodGet, "/api/v1/graph/stats")
	rec := do(t, h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "/api/v1/graph/stats") {
		t.Error("Expected request metrics labelled by route pattern")
	}
}

func TestGraphQLEndpoint(t *testing.T) {
	srv, _ := loadedServer(t)

	req := httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"query":"{ node(id: \"web\") { name neighbors { id } } }"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Web Frontend") {
		t.Errorf("Unexpected response: %s", rec.Body.String())
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv, _ := loadedServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, "/")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Missing security headers")
	}
	info := decode[map[string]any](t, rec)
	if info["version"] != "test" {
		t.Errorf("version = %v", info["version"])
	}
}

func TestCheckOrigin(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.cfg.Server.AllowedOrigins = []string{"https://ops.example.com"}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://ops.example.com", true},
		{"http://example.com", true}, // same host as the request
		{"https://evil.example.net", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := srv.checkOrigin(req); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
