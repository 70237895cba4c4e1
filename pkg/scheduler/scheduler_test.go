package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTarget counts steps and renders and can run a hook inside a frame
type countingTarget struct {
	steps, renders int
	onStep         func()
}

func (c *countingTarget) Step() {
	c.steps++
	if c.onStep != nil {
		c.onStep()
	}
}

func (c *countingTarget) Render() { c.renders++ }

func newManual(t *testing.T, autoStart bool) (*Scheduler, *ManualFrames, *countingTarget) {
	t.Helper()
	frames := NewManualFrames(time.Unix(0, 0), time.Second/60)
	target := &countingTarget{}
	return New(frames, target, Options{AutoStart: autoStart}), frames, target
}

func TestIdleUntilLoaded(t *testing.T) {
	s, frames, target := newManual(t, true)

	assert.Equal(t, Idle, s.State())
	s.Start()
	assert.Equal(t, Idle, s.State(), "nothing to run without a model")
	assert.Zero(t, frames.Pending())
	assert.Zero(t, target.renders)
}

func TestLoadAutoStart(t *testing.T) {
	s, frames, target := newManual(t, true)

	s.Load()
	assert.Equal(t, Running, s.State())
	assert.Equal(t, 1, frames.Pending())

	frames.AdvanceN(10)
	assert.Equal(t, 10, target.steps)
	assert.Equal(t, 10, target.renders)
	assert.Equal(t, uint64(10), s.Frames())
	assert.Equal(t, 1, frames.Pending(), "each frame reschedules exactly once")
}

func TestLoadWithoutAutoStartRendersOnce(t *testing.T) {
	s, frames, target := newManual(t, false)

	s.Load()
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 1, target.renders)
	assert.Zero(t, frames.Pending())

	s.Start()
	frames.Advance()
	assert.Equal(t, 1, target.steps)
}

func TestPauseStopsImmediately(t *testing.T) {
	s, frames, target := newManual(t, true)
	s.Load()
	frames.AdvanceN(3)

	s.Pause()
	assert.Equal(t, Paused, s.State())
	assert.Zero(t, frames.Pending())

	frames.AdvanceN(5)
	assert.Equal(t, 3, target.steps, "no tick leaks after pause")
}

func TestPauseFromInsideFrame(t *testing.T) {
	s, frames, target := newManual(t, true)
	target.onStep = func() {
		if target.steps == 2 {
			s.Pause()
		}
	}
	s.Load()

	frames.AdvanceN(5)
	assert.Equal(t, 2, target.steps)
	assert.Equal(t, Paused, s.State())
	assert.Zero(t, frames.Pending())
}

func TestInvalidate(t *testing.T) {
	s, frames, target := newManual(t, true)
	s.Load()

	s.Invalidate()
	assert.Zero(t, target.renders, "running: the next frame renders")

	s.Pause()
	s.Invalidate()
	assert.Equal(t, 1, target.renders, "paused: render right away")
	assert.Zero(t, target.steps, "without a simulation step")
	assert.Zero(t, frames.Pending())
}

func TestToggle(t *testing.T) {
	s, frames, target := newManual(t, false)
	s.Load()

	s.Toggle()
	assert.Equal(t, Running, s.State())
	s.Toggle()
	assert.Equal(t, Paused, s.State())
	s.Toggle()
	assert.Equal(t, Running, s.State())

	frames.Advance()
	assert.Equal(t, 1, target.steps)
	assert.Equal(t, 1, frames.Pending())
}

func TestResumeOnlyFromPaused(t *testing.T) {
	s, frames, _ := newManual(t, false)
	s.Load()

	s.Resume()
	assert.Equal(t, Idle, s.State())

	s.Start()
	s.Resume()
	assert.Equal(t, 1, frames.Pending(), "resume while running schedules nothing extra")
}

func TestPauseResumeWithinOneBatch(t *testing.T) {
	s, frames, target := newManual(t, true)
	s.Load()

	s.Pause()
	s.Resume()
	frames.Advance()

	assert.Equal(t, 1, target.steps)
	assert.Equal(t, 1, frames.Pending())
}

func TestReloadReplacesPendingFrame(t *testing.T) {
	s, frames, target := newManual(t, true)
	s.Load()
	s.Load()

	assert.Equal(t, 1, frames.Pending())
	frames.Advance()
	assert.Equal(t, 1, target.steps)
}

func TestCloseCancels(t *testing.T) {
	s, frames, target := newManual(t, true)
	s.Load()

	s.Close()
	assert.Equal(t, Idle, s.State())
	assert.Zero(t, frames.Pending())

	s.Start()
	frames.AdvanceN(3)
	assert.Zero(t, target.steps, "closed scheduler stays idle until the next load")
}

func TestStateChangeHook(t *testing.T) {
	var got []string
	frames := NewManualFrames(time.Unix(0, 0), time.Millisecond)
	s := New(frames, &countingTarget{}, Options{
		AutoStart: true,
		OnStateChange: func(from, to State) {
			got = append(got, from.String()+">"+to.String())
		},
	})

	s.Load()
	s.Pause()
	s.Close()

	assert.Equal(t, []string{"idle>running", "running>paused", "paused>idle"}, got)
}

func TestManualFramesClock(t *testing.T) {
	start := time.Unix(100, 0)
	frames := NewManualFrames(start, 10*time.Millisecond)

	var seen time.Time
	id := frames.RequestFrame(func(now time.Time) { seen = now })
	other := frames.RequestFrame(func(time.Time) { t.Fatal("canceled frame ran") })
	frames.CancelFrame(other)

	assert.NotEqual(t, id, other)
	assert.Equal(t, 1, frames.Advance())
	assert.Equal(t, start.Add(10*time.Millisecond), seen)
	assert.Zero(t, frames.Advance())
}

func TestLoopFrames(t *testing.T) {
	loop := NewLoopFrames(time.Millisecond)
	defer loop.Close()

	target := &countingTarget{}
	var s *Scheduler
	ctx := context.Background()

	require.NoError(t, loop.Call(ctx, func() {
		s = New(loop, target, Options{AutoStart: true})
		s.Load()
	}))

	require.Eventually(t, func() bool {
		var steps int
		_ = loop.Call(ctx, func() { steps = target.steps })
		return steps >= 5
	}, 2*time.Second, 5*time.Millisecond)

	var after int
	require.NoError(t, loop.Call(ctx, func() {
		s.Pause()
		after = target.steps
	}))
	time.Sleep(20 * time.Millisecond)

	var final int
	require.NoError(t, loop.Call(ctx, func() { final = target.steps }))
	assert.Equal(t, after, final)
}

func TestLoopFramesClosed(t *testing.T) {
	loop := NewLoopFrames(time.Millisecond)
	loop.Close()
	loop.Close()

	assert.ErrorIs(t, loop.Post(func() {}), ErrLoopClosed)
	assert.ErrorIs(t, loop.Call(context.Background(), func() {}), ErrLoopClosed)
}

func TestLoopFramesCallContext(t *testing.T) {
	loop := NewLoopFrames(time.Millisecond)
	defer loop.Close()

	block := make(chan struct{})
	require.NoError(t, loop.Post(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, loop.Call(ctx, func() {}), context.DeadlineExceeded)
	close(block)
}
