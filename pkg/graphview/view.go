// Package graphview wires the graph model, the force simulation, the
// viewport, the interaction controller, the renderer and the scheduler into
// one interactive view.
package graphview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/interaction"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
	"github.com/dd0wney/cluso-graphview/pkg/pubsub"
	"github.com/dd0wney/cluso-graphview/pkg/render"
	"github.com/dd0wney/cluso-graphview/pkg/scheduler"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// ErrUnknownNode is returned when a node id is not in the current model
var ErrUnknownNode = errors.New("unknown node")

// Options configures a View
type Options struct {
	Model    visualization.ModelOptions
	Forces   visualization.ForceConfig
	Viewport visualization.ViewportConfig
	Style    render.Style

	ShowLabels bool
	AutoStart  bool

	// Host and Surface label metrics, e.g. "api" and "svg"
	Host    string
	Surface string

	Logger  logging.Logger
	Metrics *metrics.Registry
	Events  *pubsub.PubSub
}

// DefaultOptions returns the standard engine constants with labels on and
// auto-start enabled
func DefaultOptions() Options {
	return Options{
		Model:      visualization.ModelOptions{Layout: visualization.DefaultLayoutConfig()},
		Forces:     visualization.DefaultForceConfig(),
		Viewport:   visualization.DefaultViewportConfig(),
		Style:      render.DefaultStyle(),
		ShowLabels: true,
		AutoStart:  true,
		Host:       "local",
		Surface:    "custom",
	}
}

// Selection is the payload of a selection notification. An empty ID means
// nothing is selected.
type Selection struct {
	ID        string                   `json:"id,omitempty"`
	Name      string                   `json:"name,omitempty"`
	Category  string                   `json:"category,omitempty"`
	Status    string                   `json:"status,omitempty"`
	Neighbors []visualization.Neighbor `json:"neighbors,omitempty"`
}

// None reports whether the selection is empty
func (s Selection) None() bool { return s.ID == "" }

// SchedulerChange is the payload of a scheduler notification
type SchedulerChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// View is one interactive graph. It is single threaded: every method, and
// the frame callbacks of its frame source, must be serialized by the host
// (for example through scheduler.LoopFrames.Call or a bubbletea Update).
type View struct {
	opts   Options
	logger logging.Logger

	model      *visualization.Model
	sim        *visualization.Simulation
	viewport   *visualization.Viewport
	controller *interaction.Controller
	renderer   *render.Renderer
	surface    render.Surface
	sched      *scheduler.Scheduler

	filter     visualization.Filter
	visible    visualization.Visible
	showLabels bool

	width, height int
	renderErr     error
	onFrame       func()
}

// New creates a view that draws onto surface, driven by frames. The view
// starts with an empty model.
func New(frames scheduler.FrameSource, surface render.Surface, opts Options) *View {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Host == "" {
		opts.Host = "local"
	}
	if opts.Surface == "" {
		opts.Surface = "custom"
	}

	v := &View{
		opts:       opts,
		logger:     logger.With(logging.Component("graphview"), logging.String("host", opts.Host)),
		sim:        visualization.NewSimulation(opts.Forces),
		viewport:   visualization.NewViewport(opts.Viewport),
		renderer:   render.NewRenderer(opts.Style),
		surface:    surface,
		showLabels: opts.ShowLabels,
	}
	v.controller = interaction.NewController(v.viewport)
	v.sched = scheduler.New(frames, v, scheduler.Options{
		AutoStart:     opts.AutoStart,
		Logger:        v.logger,
		OnStateChange: v.stateChanged,
	})
	v.setModel(visualization.NewModel(nil, opts.Model))
	return v
}

// Load rebuilds the model from relation records, discarding the previous
// one, and hands it to the scheduler.
func (v *View) Load(records []visualization.RelationRecord) {
	hadSelection := v.controller.Selected() != interaction.None

	m := visualization.NewModel(records, v.opts.Model)
	v.setModel(m)

	if v.opts.Metrics != nil {
		v.opts.Metrics.RecordModel(v.opts.Host, m.Len(), len(m.Edges()), m.DroppedEdges())
	}
	v.logger.Info("graph model rebuilt",
		logging.Int("records", len(records)),
		logging.Int("nodes", m.Len()),
		logging.Int("edges", len(m.Edges())),
		logging.Int("dropped", m.DroppedEdges()))

	v.publish(pubsub.TopicModel, m.Stats())
	if hadSelection {
		v.publish(pubsub.TopicSelection, Selection{})
	}

	v.sched.Load()
}

func (v *View) setModel(m *visualization.Model) {
	v.model = m
	v.controller.SetModel(m)
	v.visible = v.filter.Apply(m)
}

// Step is one simulation tick; the scheduler calls it once per frame
func (v *View) Step() {
	start := time.Now()
	v.sim.Step(v.model, v.controller.Dragged())
	if v.opts.Metrics != nil {
		v.opts.Metrics.RecordTick(v.opts.Host, time.Since(start), v.model.KineticEnergy())
	}
}

// Render draws the current state onto the surface
func (v *View) Render() {
	start := time.Now()
	err := v.renderer.Render(v.surface, v.Scene())
	if err != nil && (v.renderErr == nil || err.Error() != v.renderErr.Error()) {
		v.logger.Warn("render failed", logging.Error(err))
	}
	v.renderErr = err

	if v.opts.Metrics != nil {
		v.opts.Metrics.RecordRender(v.opts.Host, v.opts.Surface, time.Since(start))
	}
	if v.onFrame != nil {
		v.onFrame()
	}
}

// Scene returns what the next frame will draw
func (v *View) Scene() render.Scene {
	return render.Scene{
		Model:      v.model,
		Viewport:   v.viewport,
		Visible:    &v.visible,
		Hovered:    v.controller.Hovered(),
		Selected:   v.controller.Selected(),
		ShowLabels: v.showLabels,
		Width:      v.width,
		Height:     v.height,
	}
}

// RenderTo draws the current state onto another surface without touching
// the view's own surface, e.g. for a one-off PNG export
func (v *View) RenderTo(s render.Surface) error {
	return v.renderer.Render(s, v.Scene())
}

// Err returns the error of the last render, if any
func (v *View) Err() error {
	return v.renderErr
}

// OnFrame registers a callback run after every render
func (v *View) OnFrame(fn func()) {
	v.onFrame = fn
}

// SetFrameSize sets the frame size; zero uses the canvas size
func (v *View) SetFrameSize(width, height int) {
	v.width, v.height = width, height
	v.sched.Invalidate()
}

// Settle runs ticks simulation steps synchronously and returns the kinetic
// energy left. It is meant for headless use before rendering a still frame.
// A non-positive count runs the canvas's configured iterations.
func (v *View) Settle(ticks int) float64 {
	if ticks <= 0 {
		ticks = v.model.Config().Iterations
	}
	return v.sim.Run(v.model, ticks)
}

// Fit rescales the current layout to fill the padded canvas and leaves the
// nodes at rest.
func (v *View) Fit() {
	v.model.ApplyPositions(visualization.Fit(v.model))
	v.sched.Invalidate()
}

// PointerMove forwards a pointer move in surface coordinates
func (v *View) PointerMove(sx, sy float64) {
	v.apply(v.controller.PointerMove(sx, sy))
}

// PointerDown forwards a pointer press
func (v *View) PointerDown(sx, sy float64) {
	v.apply(v.controller.PointerDown(sx, sy))
}

// PointerUp forwards a pointer release
func (v *View) PointerUp(sx, sy float64) {
	v.apply(v.controller.PointerUp(sx, sy))
}

// PointerLeave forwards the pointer leaving the surface
func (v *View) PointerLeave() {
	v.apply(v.controller.PointerLeave())
}

// Wheel forwards one discrete wheel event
func (v *View) Wheel(deltaY float64) {
	v.apply(v.controller.Wheel(deltaY))
}

// ZoomIn zooms in one step
func (v *View) ZoomIn() {
	v.Wheel(-1)
}

// ZoomOut zooms out one step
func (v *View) ZoomOut() {
	v.Wheel(1)
}

// Pan shifts the viewport by a surface-space delta
func (v *View) Pan(dx, dy float64) {
	v.viewport.Pan(dx, dy)
	v.sched.Invalidate()
}

// ResetView restores offset (0,0) and scale 1
func (v *View) ResetView() {
	v.viewport.Reset()
	v.sched.Invalidate()
}

// SetSearch sets the text search; matching is case-insensitive against
// node names and categories
func (v *View) SetSearch(search string) {
	v.setFilter(visualization.Filter{Search: search, Kind: v.filter.Kind})
}

// SetRelationFilter limits edges to one relation kind; "" or "ALL" shows all
func (v *View) SetRelationFilter(kind string) {
	v.setFilter(visualization.Filter{Search: v.filter.Search, Kind: kind})
}

func (v *View) setFilter(f visualization.Filter) {
	if f == v.filter {
		return
	}
	v.filter = f
	v.visible = f.Apply(v.model)
	v.sched.Invalidate()
}

// Filter returns the active filter
func (v *View) Filter() visualization.Filter {
	return v.filter
}

// Visible returns the result of the active filter
func (v *View) Visible() visualization.Visible {
	return v.visible
}

// SetLabels shows or hides all labels
func (v *View) SetLabels(show bool) {
	if show == v.showLabels {
		return
	}
	v.showLabels = show
	v.sched.Invalidate()
}

// ShowLabels reports whether labels are drawn
func (v *View) ShowLabels() bool {
	return v.showLabels
}

// NavigateTo selects the node with the given id, as when a neighbor entry
// is clicked in the host's detail panel
func (v *View) NavigateTo(id string) error {
	i := v.model.Index(id)
	if i < 0 {
		return fmt.Errorf("navigate to %q: %w", id, ErrUnknownNode)
	}
	v.apply(v.controller.Select(i))
	return nil
}

// ClearSelection drops the current selection
func (v *View) ClearSelection() {
	v.apply(v.controller.Select(interaction.None))
}

// Selection describes the selected node and its neighbors
func (v *View) Selection() Selection {
	n := v.model.At(v.controller.Selected())
	if n == nil {
		return Selection{}
	}
	return Selection{
		ID:        n.ID,
		Name:      n.Name,
		Category:  n.Category,
		Status:    n.Status,
		Neighbors: v.model.Neighbors(n.ID),
	}
}

// Hovered returns the id of the hovered node, or ""
func (v *View) Hovered() string {
	if n := v.model.At(v.controller.Hovered()); n != nil {
		return n.ID
	}
	return ""
}

// Neighbors lists the direct neighbors of a node
func (v *View) Neighbors(id string) ([]visualization.Neighbor, error) {
	out := v.model.Neighbors(id)
	if out == nil {
		return nil, fmt.Errorf("neighbors of %q: %w", id, ErrUnknownNode)
	}
	return out, nil
}

// Stats returns node, edge and per-status counts of the current model
func (v *View) Stats() visualization.Stats {
	return v.model.Stats()
}

// RelationKinds lists the relation kinds present, for the type filter
func (v *View) RelationKinds() []string {
	return v.model.RelationKinds()
}

// Model returns the current model. Callers must not mutate it outside the
// view's goroutine.
func (v *View) Model() *visualization.Model {
	return v.model
}

// Viewport returns the view's viewport
func (v *View) Viewport() *visualization.Viewport {
	return v.viewport
}

// Snapshot copies the current model state
func (v *View) Snapshot() visualization.Snapshot {
	return v.model.Snapshot()
}

// Start starts the simulation loop
func (v *View) Start() { v.sched.Start() }

// Pause stops the simulation loop; no tick runs after it returns
func (v *View) Pause() { v.sched.Pause() }

// Resume continues a paused loop
func (v *View) Resume() { v.sched.Resume() }

// Toggle flips between running and paused
func (v *View) Toggle() { v.sched.Toggle() }

// State returns the scheduler state
func (v *View) State() scheduler.State { return v.sched.State() }

// Frames returns how many frames the scheduler has run
func (v *View) Frames() uint64 { return v.sched.Frames() }

// Subscribe returns a subscription to one of the view's notification topics
func (v *View) Subscribe(ctx context.Context, topic pubsub.Topic) (*pubsub.Subscription, error) {
	if v.opts.Events == nil {
		return nil, errors.New("graphview: notifications disabled")
	}
	return v.opts.Events.Subscribe(ctx, topic)
}

// Close cancels any scheduled frame. The view must not be used afterwards
// except for Load, which revives it.
func (v *View) Close() {
	v.sched.Close()
}

func (v *View) apply(change interaction.Change) {
	if !change.Any() {
		return
	}
	if change.Has(interaction.ChangeSelection) {
		sel := v.Selection()
		if !sel.None() {
			v.logger.Debug("node selected", logging.NodeID(sel.ID))
		}
		v.publish(pubsub.TopicSelection, sel)
	}
	v.sched.Invalidate()
}

func (v *View) stateChanged(from, to scheduler.State) {
	if v.opts.Metrics != nil {
		v.opts.Metrics.SetSchedulerState(v.opts.Host, to.String())
	}
	v.publish(pubsub.TopicScheduler, SchedulerChange{From: from.String(), To: to.String()})
}

func (v *View) publish(topic pubsub.Topic, payload any) {
	if v.opts.Events == nil {
		return
	}
	_, dropped := v.opts.Events.Publish(topic, payload)
	if v.opts.Metrics != nil {
		v.opts.Metrics.RecordNotification(string(topic), dropped)
	}
}
