package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FrameID identifies a requested frame callback. Zero is never issued.
type FrameID uint64

// FrameSource is the clock that drives the scheduler: it calls a requested
// callback once, at the next frame. Callbacks must not run concurrently with
// each other or with the code that owns the scheduler.
type FrameSource interface {
	RequestFrame(fn func(now time.Time)) FrameID
	CancelFrame(id FrameID)
}

type frameRequest struct {
	id FrameID
	fn func(now time.Time)
}

// frameQueue is the bookkeeping shared by the frame sources
type frameQueue struct {
	mu      sync.Mutex
	next    FrameID
	pending []frameRequest
}

func (q *frameQueue) request(fn func(time.Time)) FrameID {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	q.pending = append(q.pending, frameRequest{id: q.next, fn: fn})
	return q.next
}

func (q *frameQueue) cancel(id FrameID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, r := range q.pending {
		if r.id == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// take removes and returns the callbacks requested so far. Callbacks that
// request another frame while running land in the next batch.
func (q *frameQueue) take() []frameRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.pending
	q.pending = nil
	return batch
}

func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ManualFrames is a deterministic FrameSource for tests and headless
// rendering: frames happen only when Advance is called, on a fixed timestep.
type ManualFrames struct {
	queue    frameQueue
	now      time.Time
	interval time.Duration
}

// NewManualFrames creates a manual clock starting at start
func NewManualFrames(start time.Time, interval time.Duration) *ManualFrames {
	return &ManualFrames{now: start, interval: interval}
}

func (m *ManualFrames) RequestFrame(fn func(now time.Time)) FrameID {
	return m.queue.request(fn)
}

func (m *ManualFrames) CancelFrame(id FrameID) {
	m.queue.cancel(id)
}

// Pending returns the number of callbacks waiting for the next frame
func (m *ManualFrames) Pending() int {
	return m.queue.len()
}

// Now returns the time of the last frame
func (m *ManualFrames) Now() time.Time {
	return m.now
}

// Advance moves the clock one interval and runs the callbacks that were
// pending. Returns how many ran.
func (m *ManualFrames) Advance() int {
	m.now = m.now.Add(m.interval)
	batch := m.queue.take()
	for _, r := range batch {
		r.fn(m.now)
	}
	return len(batch)
}

// AdvanceN runs n frames and returns the total number of callbacks run
func (m *ManualFrames) AdvanceN(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += m.Advance()
	}
	return total
}

// ErrLoopClosed is returned when posting to a closed frame loop
var ErrLoopClosed = errors.New("frame loop closed")

// LoopFrames runs frames on a dedicated goroutine at a fixed interval. Work
// that touches the scheduler's target from other goroutines must be handed
// to the loop with Post or Call so it never overlaps a frame.
type LoopFrames struct {
	queue    frameQueue
	interval time.Duration
	tasks    chan func()
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// NewLoopFrames starts a frame loop. Close must be called to stop it.
func NewLoopFrames(interval time.Duration) *LoopFrames {
	if interval <= 0 {
		interval = time.Second / 60
	}
	l := &LoopFrames{
		interval: interval,
		tasks:    make(chan func(), 64),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *LoopFrames) RequestFrame(fn func(now time.Time)) FrameID {
	return l.queue.request(fn)
}

func (l *LoopFrames) CancelFrame(id FrameID) {
	l.queue.cancel(id)
}

// Post queues fn to run on the loop goroutine
func (l *LoopFrames) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Call runs fn on the loop goroutine and waits for it to finish
func (l *LoopFrames) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.stopped:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop and waits for the current frame or task to finish.
// Pending frames never run.
func (l *LoopFrames) Close() {
	l.once.Do(func() {
		close(l.done)
	})
	<-l.stopped
}

func (l *LoopFrames) run() {
	defer close(l.stopped)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case fn := <-l.tasks:
			fn()
		case now := <-ticker.C:
			for _, r := range l.queue.take() {
				r.fn(now)
			}
		}
	}
}
