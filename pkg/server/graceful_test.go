package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func waitForServe(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server on %s never answered", addr)
}

func TestGracefulServer_ServeUntilCancelled(t *testing.T) {
	gs := NewGracefulServer("", okHandler(), nil)
	ln := listen(t)

	shutdownHooks := make(chan struct{}, 1)
	gs.RegisterOnShutdown(func() { shutdownHooks <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	waitForServe(t, ln.Addr().String())
	if gs.IsShuttingDown() {
		t.Fatal("server should not be shutting down yet")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if !gs.IsShuttingDown() {
		t.Error("expected shutdown flag after cancel")
	}
	select {
	case <-gs.ShutdownChannel():
	default:
		t.Error("shutdown channel not closed")
	}
	select {
	case <-shutdownHooks:
	case <-time.After(time.Second):
		t.Error("shutdown hook not called")
	}
}

func TestGracefulServer_SIGHUPReloads(t *testing.T) {
	gs := NewGracefulServer("", okHandler(), nil)
	ln := listen(t)

	reloaded := make(chan struct{}, 1)
	gs.SetReloadFunc(func(ctx context.Context) error {
		reloaded <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()
	waitForServe(t, ln.Addr().String())

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("Failed to send SIGHUP: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("reload function not called on SIGHUP")
	}
	if gs.IsShuttingDown() {
		t.Error("Server should not be shutting down after SIGHUP")
	}

	cancel()
	<-done
}

func TestGracefulServer_Reload(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), nil)

	if err := gs.Reload(context.Background()); err != nil {
		t.Errorf("Reload() without function error = %v", err)
	}

	wantErr := errors.New("source unavailable")
	gs.SetReloadFunc(func(context.Context) error { return wantErr })
	if err := gs.Reload(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Reload() error = %v, want %v", err, wantErr)
	}
}

func TestGracefulServer_ListenError(t *testing.T) {
	ln := listen(t)
	defer ln.Close()

	gs := NewGracefulServer(ln.Addr().String(), okHandler(), nil)
	if err := gs.Run(context.Background()); err == nil {
		t.Error("expected error when the address is taken")
	}
}

func TestGracefulServer_ShutdownIdempotent(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), nil)
	gs.SetShutdownTimeout(time.Second)

	if err := gs.Shutdown(time.Second); err != nil {
		t.Errorf("first Shutdown() error = %v", err)
	}
	if err := gs.Shutdown(time.Second); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
