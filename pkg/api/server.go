// Package api is the HTTP host of the graph view: snapshot JSON, rendered
// frames, neighbor and stats lookups, a GraphQL endpoint and websocket
// sessions that each drive their own interactive view.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/config"
	"github.com/dd0wney/cluso-graphview/pkg/graphql"
	"github.com/dd0wney/cluso-graphview/pkg/graphview"
	"github.com/dd0wney/cluso-graphview/pkg/health"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
	"github.com/dd0wney/cluso-graphview/pkg/notify"
	"github.com/dd0wney/cluso-graphview/pkg/pubsub"
	"github.com/dd0wney/cluso-graphview/pkg/render"
	"github.com/dd0wney/cluso-graphview/pkg/scheduler"
	"github.com/dd0wney/cluso-graphview/pkg/source"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// ErrNoSource is returned by Reload when the server has no relation source
var ErrNoSource = errors.New("no relation source configured")

// Options configures a Server
type Options struct {
	Config *config.Config
	// Loader feeds the graph; nil serves an empty graph and refuses reloads
	Loader  *source.Loader
	Logger  logging.Logger
	Metrics *metrics.Registry
	// Publisher mirrors view notifications onto an NNG socket when set
	Publisher *notify.Publisher
	Version   string
}

// Server owns a shared view on its own frame loop plus one view per
// websocket session. The shared view backs the JSON, frame and GraphQL
// endpoints.
type Server struct {
	cfg       *config.Config
	logger    logging.Logger
	metrics   *metrics.Registry
	loader    *source.Loader
	publisher *notify.Publisher
	version   string
	startTime time.Time

	loop   *scheduler.LoopFrames
	view   *graphview.View
	frame  *frameCache
	events *pubsub.PubSub

	sessions *sessionManager
	health   *health.HealthChecker
	graphql  *graphql.GraphQLHandler

	reloadMu  sync.Mutex
	stateMu   sync.RWMutex
	records   []visualization.RelationRecord
	loadState health.LoadState

	closeOnce sync.Once
}

// NewServer builds the server and starts the shared frame loop. Call
// Reload to load the first graph and Close to stop everything.
func NewServer(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	registry := opts.Metrics
	if registry == nil {
		registry = metrics.NewRegistry()
	}

	schema, err := graphql.GenerateSchema()
	if err != nil {
		return nil, fmt.Errorf("graphql schema: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger.With(logging.Component("api")),
		metrics:   registry,
		loader:    opts.Loader,
		publisher: opts.Publisher,
		version:   opts.Version,
		startTime: time.Now(),
		events:    pubsub.NewPubSub(),
		frame:     newFrameCache(),
		health:    health.NewHealthChecker(),
	}
	if s.version == "" {
		s.version = "dev"
	}

	s.loop = scheduler.NewLoopFrames(cfg.FrameInterval())
	s.view = graphview.New(s.loop, s.frame, s.viewOptions("api", s.logger, s.events))
	s.sessions = newSessionManager(s, cfg.Server.MaxSessions)
	s.graphql = graphql.NewGraphQLHandler(schema, s.snapshot, s.logger)

	if s.publisher != nil {
		if err := s.publisher.Forward(context.Background(), s.events, "api"); err != nil {
			s.loop.Close()
			return nil, fmt.Errorf("notify forward: %w", err)
		}
	}

	s.registerHealthChecks()
	return s, nil
}

// viewOptions derives view options from the configuration. Every view gets
// its own model options so views never share a random source.
func (s *Server) viewOptions(host string, logger logging.Logger, events *pubsub.PubSub) graphview.Options {
	return graphview.Options{
		Model:      s.cfg.ModelOptions(),
		Forces:     s.cfg.Forces,
		Viewport:   s.cfg.Viewport,
		Style:      render.DefaultStyle(),
		ShowLabels: s.cfg.Render.ShowLabels,
		AutoStart:  s.cfg.Scheduler.AutoStart,
		Host:       host,
		Surface:    "svg",
		Logger:     logger,
		Metrics:    s.metrics,
		Events:     events,
	}
}

func (s *Server) registerHealthChecks() {
	name := "none"
	if s.loader != nil {
		name = s.loader.Source().Name()
	}
	s.health.RegisterCheck("source", health.SourceCheck(name, s.LoadState))
	s.health.RegisterCheck("frame_loop", health.FrameLoopCheck(s.loop.Call, 2*time.Second))
	s.health.RegisterCheck("sessions", health.SessionsCheck(s.sessions.count, s.cfg.Server.MaxSessions))
	s.health.RegisterCheck("memory", health.MemoryCheck(memoryUsage))

	s.health.RegisterLivenessCheck("frame_loop", health.FrameLoopCheck(s.loop.Call, 2*time.Second))
	s.health.RegisterReadinessCheck("source", health.SourceCheck(name, s.LoadState))

	if pg, ok := s.sourceAs().(*source.PGSource); ok {
		s.health.RegisterCheck("database", health.DatabaseCheck(pg.Ping))
	}
}

func (s *Server) sourceAs() source.Source {
	if s.loader == nil {
		return nil
	}
	return s.loader.Source()
}

// Reload fetches the relation source and rebuilds the shared view and
// every session view. On failure the current graph stays in place.
func (s *Server) Reload(ctx context.Context) (*ReloadResponse, error) {
	if s.loader == nil {
		return nil, ErrNoSource
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	res, err := s.loader.Load(ctx)
	if err != nil {
		s.stateMu.Lock()
		s.loadState.LastError = err
		s.stateMu.Unlock()
		return nil, err
	}

	s.stateMu.Lock()
	s.records = res.Records
	s.loadState = health.LoadState{
		LastSuccess: time.Now(),
		Records:     len(res.Records),
		Skipped:     len(res.Skipped),
	}
	s.stateMu.Unlock()

	resp := &ReloadResponse{
		Source:     s.loader.Source().Name(),
		Records:    len(res.Records),
		Skipped:    len(res.Skipped),
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
	}
	err = s.loop.Call(ctx, func() {
		s.view.Load(res.Records)
		m := s.view.Model()
		resp.Nodes, resp.Edges, resp.Dropped = m.Len(), len(m.Edges()), m.DroppedEdges()
	})
	if err != nil {
		return nil, fmt.Errorf("apply reload: %w", err)
	}

	s.sessions.load(res.Records)
	return resp, nil
}

// Refresh reloads every interval until ctx is done. Failures are logged
// by the loader and retried on the next tick.
func (s *Server) Refresh(ctx context.Context, interval time.Duration) {
	if s.loader == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Reload(ctx)
		}
	}
}

// LoadState reports the most recent source load
func (s *Server) LoadState() health.LoadState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.loadState
}

// currentRecords is the record set new sessions start from
func (s *Server) currentRecords() []visualization.RelationRecord {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.records
}

// snapshot copies the shared view's model on the frame loop
func (s *Server) snapshot(ctx context.Context) (visualization.Snapshot, error) {
	var snap visualization.Snapshot
	err := s.loop.Call(ctx, func() {
		snap = s.view.Snapshot()
	})
	return snap, err
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// CloseSessions closes every websocket session. It is registered as an
// HTTP shutdown hook since hijacked connections outlive http.Server.Shutdown.
func (s *Server) CloseSessions() {
	s.sessions.closeAll()
}

// Close stops sessions, the shared view and its frame loop
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.sessions.closeAll()
		_ = s.loop.Call(context.Background(), s.view.Close)
		s.loop.Close()
		s.events.Shutdown()
		s.logger.Info("api server closed", logging.Duration("uptime", time.Since(s.startTime)))
	})
}

func memoryUsage() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
