// Package scheduler drives the per-frame simulate and render loop.
package scheduler

import (
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/logging"
)

// State is the scheduler lifecycle state
type State int

const (
	// Idle means no model is loaded, or the loop was torn down
	Idle State = iota
	// Running means a frame is scheduled; each frame steps then renders
	Running
	// Paused means no frames are scheduled; renders happen on demand
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Target is what the scheduler drives
type Target interface {
	// Step advances the simulation by one tick
	Step()
	// Render draws the current state
	Render()
}

// Options configures a Scheduler
type Options struct {
	// AutoStart makes Load go straight to Running
	AutoStart bool
	Logger    logging.Logger
	// OnStateChange is called after every transition
	OnStateChange func(from, to State)
}

// Scheduler is the Idle/Running/Paused state machine. It is single threaded:
// all methods and frame callbacks must run on the same goroutine (or be
// serialized by the frame source, see LoopFrames.Post).
type Scheduler struct {
	frames FrameSource
	target Target
	opts   Options
	logger logging.Logger

	state   State
	pending FrameID
	loaded  bool
	count   uint64
}

// New creates an idle scheduler
func New(frames FrameSource, target Target, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Scheduler{
		frames: frames,
		target: target,
		opts:   opts,
		logger: logger.With(logging.Component("scheduler")),
	}
}

// State returns the current state
func (s *Scheduler) State() State {
	return s.state
}

// Frames returns how many frames have run since creation
func (s *Scheduler) Frames() uint64 {
	return s.count
}

// Load is called after the target's model was rebuilt. Any scheduled frame
// for the old model is canceled and the scheduler returns to Idle; it then
// starts running when auto-start is set, or renders the new model once.
func (s *Scheduler) Load() {
	s.cancel()
	s.transition(Idle)
	s.loaded = true

	if s.opts.AutoStart {
		s.Start()
		return
	}
	s.target.Render()
}

// Start begins running. From Paused it behaves like Resume; when running or
// with no model loaded it does nothing.
func (s *Scheduler) Start() {
	if !s.loaded || s.state == Running {
		return
	}
	s.transition(Running)
	s.schedule()
}

// Pause stops ticking. No frame runs after Pause returns.
func (s *Scheduler) Pause() {
	if s.state != Running {
		return
	}
	s.cancel()
	s.transition(Paused)
}

// Resume continues a paused scheduler
func (s *Scheduler) Resume() {
	if s.state != Paused {
		return
	}
	s.transition(Running)
	s.schedule()
}

// Toggle flips between Running and Paused; from Idle it starts
func (s *Scheduler) Toggle() {
	switch s.state {
	case Running:
		s.Pause()
	case Paused:
		s.Resume()
	default:
		s.Start()
	}
}

// Invalidate asks for a redraw after an interaction change. While running
// the next frame redraws anyway; otherwise the target renders immediately
// without a simulation step.
func (s *Scheduler) Invalidate() {
	if s.state == Running {
		return
	}
	s.target.Render()
}

// Close cancels any scheduled frame and returns to Idle. The scheduler does
// not run again until the next Load.
func (s *Scheduler) Close() {
	s.cancel()
	s.loaded = false
	s.transition(Idle)
}

func (s *Scheduler) schedule() {
	var id FrameID
	id = s.frames.RequestFrame(func(now time.Time) {
		s.frame(id, now)
	})
	s.pending = id
}

func (s *Scheduler) cancel() {
	if s.pending != 0 {
		s.frames.CancelFrame(s.pending)
		s.pending = 0
	}
}

func (s *Scheduler) frame(id FrameID, _ time.Time) {
	// a frame canceled after the source took its batch still arrives here
	if s.state != Running || id != s.pending {
		return
	}
	s.pending = 0
	s.count++

	s.target.Step()
	s.target.Render()

	// the target may have paused or closed us from within the frame
	if s.state == Running && s.pending == 0 {
		s.schedule()
	}
}

func (s *Scheduler) transition(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.logger.Debug("scheduler state changed",
		logging.String("from", from.String()),
		logging.State(to.String()))
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(from, to)
	}
}
