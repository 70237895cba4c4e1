package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixed(status Status) CheckFunc {
	return func(context.Context) Check {
		return Check{Status: status}
	}
}

func TestNewHealthChecker(t *testing.T) {
	hc := NewHealthChecker()

	if hc.checks == nil || hc.readyChecks == nil || hc.liveChecks == nil {
		t.Fatal("check maps not initialized")
	}
	if hc.startTime.IsZero() {
		t.Error("start time not set")
	}
}

func TestRegisterChecksAreSeparate(t *testing.T) {
	hc := NewHealthChecker()

	var calls []string
	hc.RegisterCheck("all", func(context.Context) Check {
		calls = append(calls, "all")
		return Check{Status: StatusHealthy}
	})
	hc.RegisterReadinessCheck("ready", func(context.Context) Check {
		calls = append(calls, "ready")
		return Check{Status: StatusHealthy}
	})
	hc.RegisterLivenessCheck("live", func(context.Context) Check {
		calls = append(calls, "live")
		return Check{Status: StatusHealthy}
	})

	ctx := context.Background()
	if _, ok := hc.Check(ctx).Checks["all"]; !ok {
		t.Error("check result not in response")
	}
	if _, ok := hc.CheckReadiness(ctx).Checks["ready"]; !ok {
		t.Error("readiness result not in response")
	}
	if _, ok := hc.CheckLiveness(ctx).Checks["live"]; !ok {
		t.Error("liveness result not in response")
	}

	if len(calls) != 3 || calls[0] != "all" || calls[1] != "ready" || calls[2] != "live" {
		t.Errorf("expected each check to run once in its own group, got %v", calls)
	}
}

func TestCheckStatusAggregation(t *testing.T) {
	tests := []struct {
		name           string
		checkStatuses  []Status
		expectedStatus Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded, StatusHealthy}, StatusDegraded},
		{"one unhealthy", []Status{StatusHealthy, StatusUnhealthy}, StatusUnhealthy},
		{"degraded and unhealthy", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"no checks", []Status{}, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for i, status := range tt.checkStatuses {
				hc.RegisterCheck(string(rune('a'+i)), fixed(status))
			}

			resp := hc.Check(context.Background())
			if resp.Status != tt.expectedStatus {
				t.Errorf("expected status %s, got %s", tt.expectedStatus, resp.Status)
			}
		})
	}
}

func TestCheckMetadata(t *testing.T) {
	hc := NewHealthChecker()
	sleep := 10 * time.Millisecond
	hc.RegisterCheck("slow", func(context.Context) Check {
		time.Sleep(sleep)
		return Check{Status: StatusHealthy}
	})

	before := time.Now()
	resp := hc.Check(context.Background())
	after := time.Now()

	if resp.Timestamp.Before(before) || resp.Timestamp.After(after) {
		t.Errorf("timestamp %v not between %v and %v", resp.Timestamp, before, after)
	}
	check := resp.Checks["slow"]
	if check.Duration < sleep {
		t.Errorf("duration %v less than sleep time %v", check.Duration, sleep)
	}
	if check.Name != "slow" {
		t.Errorf("expected missing name to default to the key, got %q", check.Name)
	}
	if resp.Uptime < 0 {
		t.Errorf("negative uptime %v", resp.Uptime)
	}
}

func TestSimpleCheck(t *testing.T) {
	check := SimpleCheck("renderer")(context.Background())
	if check.Name != "renderer" || check.Status != StatusHealthy {
		t.Errorf("unexpected check %+v", check)
	}
}

func TestDatabaseCheck(t *testing.T) {
	healthy := DatabaseCheck(func(context.Context) error { return nil })(context.Background())
	if healthy.Status != StatusHealthy || healthy.Message != "Connected" {
		t.Errorf("unexpected healthy check %+v", healthy)
	}

	down := DatabaseCheck(func(context.Context) error { return errors.New("connection refused") })(context.Background())
	if down.Status != StatusUnhealthy || down.Message != "connection refused" {
		t.Errorf("unexpected failing check %+v", down)
	}
}

func TestFrameLoopCheck(t *testing.T) {
	responsive := func(ctx context.Context, fn func()) error {
		fn()
		return nil
	}
	wedged := func(ctx context.Context, fn func()) error {
		<-ctx.Done()
		return ctx.Err()
	}

	if c := FrameLoopCheck(responsive, time.Second)(context.Background()); c.Status != StatusHealthy {
		t.Errorf("expected healthy loop, got %+v", c)
	}

	start := time.Now()
	c := FrameLoopCheck(wedged, 20*time.Millisecond)(context.Background())
	if c.Status != StatusUnhealthy {
		t.Errorf("expected wedged loop to be unhealthy, got %+v", c)
	}
	if time.Since(start) > time.Second {
		t.Error("check did not honor its timeout")
	}
}

func TestSourceCheck(t *testing.T) {
	loaded := time.Now().Add(-time.Minute)
	tests := []struct {
		name   string
		state  LoadState
		status Status
	}{
		{"never loaded", LoadState{}, StatusUnhealthy},
		{"first load failed", LoadState{LastError: errors.New("timeout")}, StatusUnhealthy},
		{"loaded", LoadState{LastSuccess: loaded, Records: 12}, StatusHealthy},
		{"reload failed", LoadState{LastSuccess: loaded, LastError: errors.New("timeout")}, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := SourceCheck("file:rel.json", func() LoadState { return tt.state })(context.Background())
			if c.Status != tt.status {
				t.Errorf("expected %s, got %s (%s)", tt.status, c.Status, c.Message)
			}
			if c.Details["source"] != "file:rel.json" {
				t.Errorf("expected source detail, got %v", c.Details)
			}
		})
	}
}

func TestSessionsCheck(t *testing.T) {
	tests := []struct {
		active, max int
		status      Status
	}{
		{0, 10, StatusHealthy},
		{8, 10, StatusHealthy},
		{9, 10, StatusDegraded},
		{10, 10, StatusUnhealthy},
		{500, 0, StatusHealthy},
	}

	for _, tt := range tests {
		active := tt.active
		c := SessionsCheck(func() int { return active }, tt.max)(context.Background())
		if c.Status != tt.status {
			t.Errorf("%d/%d: expected %s, got %s", tt.active, tt.max, tt.status, c.Status)
		}
	}
}

func TestMemoryCheck(t *testing.T) {
	tests := []struct {
		alloc, sys uint64
		status     Status
	}{
		{50, 100, StatusHealthy},
		{95, 100, StatusDegraded},
		{10, 0, StatusHealthy},
	}

	for _, tt := range tests {
		alloc, sys := tt.alloc, tt.sys
		c := MemoryCheck(func() (uint64, uint64) { return alloc, sys })(context.Background())
		if c.Status != tt.status {
			t.Errorf("%d/%d: expected %s, got %s", tt.alloc, tt.sys, tt.status, c.Status)
		}
	}
}

func TestHTTPHandler(t *testing.T) {
	tests := []struct {
		name         string
		checkStatus  Status
		expectedCode int
	}{
		{"healthy returns 200", StatusHealthy, http.StatusOK},
		{"degraded returns 200", StatusDegraded, http.StatusOK},
		{"unhealthy returns 503", StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			hc.RegisterCheck("test", fixed(tt.checkStatus))

			rec := httptest.NewRecorder()
			hc.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.expectedCode {
				t.Errorf("expected status code %d, got %d", tt.expectedCode, rec.Code)
			}
			if rec.Header().Get("Content-Type") != "application/json" {
				t.Error("expected Content-Type application/json")
			}

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.checkStatus {
				t.Errorf("expected response status %s, got %s", tt.checkStatus, resp.Status)
			}
		})
	}
}

func TestBinaryHandlers(t *testing.T) {
	tests := []struct {
		name         string
		status       Status
		expectedCode int
	}{
		{"healthy", StatusHealthy, http.StatusOK},
		{"degraded", StatusDegraded, http.StatusServiceUnavailable},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			hc.RegisterReadinessCheck("ready", fixed(tt.status))
			hc.RegisterLivenessCheck("live", fixed(tt.status))

			ready := httptest.NewRecorder()
			hc.ReadinessHandler()(ready, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			live := httptest.NewRecorder()
			hc.LivenessHandler()(live, httptest.NewRequest(http.MethodGet, "/health/live", nil))

			if ready.Code != tt.expectedCode || live.Code != tt.expectedCode {
				t.Errorf("expected %d, got ready=%d live=%d", tt.expectedCode, ready.Code, live.Code)
			}
		})
	}
}

func TestConcurrentCheckRegistration(t *testing.T) {
	hc := NewHealthChecker()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			hc.RegisterCheck(string(rune('a'+id)), fixed(StatusHealthy))
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	for i := 0; i < 10; i++ {
		go func() {
			hc.Check(context.Background())
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if n := len(hc.Check(context.Background()).Checks); n != 10 {
		t.Errorf("expected 10 checks, got %d", n)
	}
}
