package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dd0wney/cluso-graphview/pkg/graphview"
	"github.com/dd0wney/cluso-graphview/pkg/render"
	"github.com/dd0wney/cluso-graphview/pkg/scheduler"
	"github.com/dd0wney/cluso-graphview/pkg/validation"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// maxFrameSide bounds the width and height query parameters of frame
// endpoints
const maxFrameSide = 8192

// handleGraph serves the shared model as JSON. search and kind narrow the
// answer the same way they narrow what a view draws.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var (
		snap  visualization.Snapshot
		state scheduler.State
	)
	err := s.loop.Call(r.Context(), func() {
		snap = s.view.Snapshot()
		state = s.view.State()
	})
	if err != nil {
		s.respondLoopError(w, err)
		return
	}

	filter := visualization.Filter{
		Search: r.URL.Query().Get("search"),
		Kind:   r.URL.Query().Get("kind"),
	}
	if filter.Active() {
		snap = filterSnapshot(snap, filter)
	}

	s.respondJSON(w, http.StatusOK, GraphResponse{
		Snapshot: snap,
		State:    state.String(),
		Filtered: filter.Active(),
	})
}

// filterSnapshot keeps the visible nodes and edges. Stats and relation kinds
// still describe the whole graph.
func filterSnapshot(snap visualization.Snapshot, f visualization.Filter) visualization.Snapshot {
	vis := f.ApplySnapshot(&snap)

	nodes := make([]visualization.NodeSnapshot, 0, vis.NodeCount())
	for i, n := range snap.Nodes {
		if vis.Nodes[i] {
			nodes = append(nodes, n)
		}
	}
	edges := make([]visualization.EdgeSnapshot, 0, vis.EdgeCount())
	for k, e := range snap.Edges {
		if vis.Edges[k] {
			edges = append(edges, e)
		}
	}
	snap.Nodes, snap.Edges = nodes, edges
	return snap
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Sessions: s.sessions.count()}
	err := s.loop.Call(r.Context(), func() {
		resp.Stats = s.view.Stats()
		resp.RelationKinds = s.view.RelationKinds()
		resp.DroppedEdges = s.view.Model().DroppedEdges()
		resp.State = s.view.State().String()
		resp.Frames = s.view.Frames()
	})
	if err != nil {
		s.respondLoopError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleFrameSVG serves the last frame the loop drew. A size in the query,
// or no frame yet, renders on demand.
func (s *Server) handleFrameSVG(w http.ResponseWriter, r *http.Request) {
	width, height, err := frameSize(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame := s.frame.Frame()
	if frame == nil || width > 0 || height > 0 {
		var buf bytes.Buffer
		frame, err = s.renderOnce(r.Context(), render.NewSVGSurface(&buf), width, height, func() []byte {
			return buf.Bytes()
		})
		if err != nil {
			s.respondRenderError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame)
}

func (s *Server) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	width, height, err := frameSize(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	raster := render.NewRasterSurface()
	var buf bytes.Buffer
	png, err := s.renderOnce(r.Context(), raster, width, height, func() []byte {
		if err := raster.EncodePNG(&buf); err != nil {
			return nil
		}
		return buf.Bytes()
	})
	if err != nil {
		s.respondRenderError(w, err)
		return
	}
	if png == nil {
		s.respondInternal(w, http.StatusInternalServerError, "png encode", errors.New("empty image"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// renderOnce draws the shared view onto surface at the requested size
// without disturbing the view's own frame size
func (s *Server) renderOnce(ctx context.Context, surface render.Surface, width, height int, collect func() []byte) ([]byte, error) {
	var (
		out     []byte
		drawErr error
	)
	err := s.loop.Call(ctx, func() {
		sc := s.view.Scene()
		if width > 0 {
			sc.Width = width
		}
		if height > 0 {
			sc.Height = height
		}
		if drawErr = render.NewRenderer(render.DefaultStyle()).Render(surface, sc); drawErr == nil {
			out = collect()
		}
	})
	if err != nil {
		return nil, err
	}
	return out, drawErr
}

func frameSize(r *http.Request) (width, height int, err error) {
	parse := func(name string) (int, error) {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > maxFrameSide {
			return 0, errors.New(name + " must be between 1 and " + strconv.Itoa(maxFrameSide))
		}
		return v, nil
	}
	if width, err = parse("width"); err != nil {
		return 0, 0, err
	}
	if height, err = parse("height"); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateNodeID(id); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		resp  NodeResponse
		found bool
	)
	err := s.loop.Call(r.Context(), func() {
		n := s.view.Model().Node(id)
		if n == nil {
			return
		}
		found = true
		resp.NodeSnapshot = visualization.NodeSnapshot{
			ID:       n.ID,
			Name:     n.Name,
			Category: n.Category,
			Status:   n.Status,
			Color:    n.Color,
			X:        n.X,
			Y:        n.Y,
			Radius:   n.Radius,
		}
		resp.Neighbors, _ = s.view.Neighbors(id)
	})
	if err != nil {
		s.respondLoopError(w, err)
		return
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "node not found: "+id)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateNodeID(id); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		neighbors []visualization.Neighbor
		lookupErr error
	)
	err := s.loop.Call(r.Context(), func() {
		neighbors, lookupErr = s.view.Neighbors(id)
	})
	if err != nil {
		s.respondLoopError(w, err)
		return
	}
	if errors.Is(lookupErr, graphview.ErrUnknownNode) {
		s.respondError(w, http.StatusNotFound, "node not found: "+id)
		return
	}
	if lookupErr != nil {
		s.respondInternal(w, http.StatusInternalServerError, "neighbor lookup", lookupErr)
		return
	}
	s.respondJSON(w, http.StatusOK, NeighborsResponse{ID: id, Neighbors: neighbors})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Reload(r.Context())
	switch {
	case errors.Is(err, ErrNoSource):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		s.respondInternal(w, http.StatusBadGateway, "reload", err)
	default:
		s.respondJSON(w, http.StatusOK, resp)
	}
}

// respondLoopError maps a frame loop failure: a closed loop means the
// server is stopping, anything else is the request's own context.
func (s *Server) respondLoopError(w http.ResponseWriter, err error) {
	if errors.Is(err, scheduler.ErrLoopClosed) {
		s.respondError(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	s.respondError(w, http.StatusServiceUnavailable, "request cancelled")
}

func (s *Server) respondRenderError(w http.ResponseWriter, err error) {
	if errors.Is(err, scheduler.ErrLoopClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.respondLoopError(w, err)
		return
	}
	s.respondInternal(w, http.StatusInternalServerError, "render", err)
}
