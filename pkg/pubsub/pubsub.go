package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Topic names a stream of view notifications
type Topic string

const (
	// TopicSelection carries the selected node (or none) after every change
	TopicSelection Topic = "selection"
	// TopicModel carries the stats of a freshly rebuilt model
	TopicModel Topic = "model"
	// TopicScheduler carries scheduler state transitions
	TopicScheduler Topic = "scheduler"
)

// DefaultBuffer is the per-subscription channel capacity
const DefaultBuffer = 100

// ErrShutdown is returned when subscribing to a PubSub that was shut down
var ErrShutdown = errors.New("pubsub: shut down")

// Event is one published notification
type Event struct {
	Topic   Topic
	Seq     uint64
	Payload any
}

// PubSub fans notifications out to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type PubSub struct {
	subscribers map[Topic]map[*Subscription]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	isShutdown  atomic.Bool
	seq         atomic.Uint64
	buffer      int
}

// Subscription represents a subscription to a topic
type Subscription struct {
	topic   Topic
	channel chan Event
	ps      *PubSub
	cancel  context.CancelFunc

	// guards channel against send-after-close
	mu     sync.Mutex
	closed bool
}

// NewPubSub creates a new PubSub instance
func NewPubSub() *PubSub {
	return NewPubSubWithBuffer(DefaultBuffer)
}

// NewPubSubWithBuffer creates a PubSub whose subscriptions buffer n events
func NewPubSubWithBuffer(n int) *PubSub {
	if n < 1 {
		n = 1
	}
	return &PubSub{
		subscribers: make(map[Topic]map[*Subscription]struct{}),
		shutdown:    make(chan struct{}),
		buffer:      n,
	}
}

// Subscribe creates a new subscription to a topic. The subscription ends
// when ctx is canceled, on Unsubscribe or on Shutdown; its channel is then
// closed.
func (ps *PubSub) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	if ps.isShutdown.Load() {
		return nil, ErrShutdown
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan Event, ps.buffer),
		ps:      ps,
		cancel:  cancel,
	}

	ps.mu.Lock()
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[*Subscription]struct{})
	}
	ps.subscribers[topic][sub] = struct{}{}
	ps.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish sends a payload to all subscribers of a topic and returns how many
// received it and how many were skipped because their buffer was full.
func (ps *PubSub) Publish(topic Topic, payload any) (delivered, dropped int) {
	if ps.isShutdown.Load() {
		return 0, 0
	}

	// Snapshot under the read lock, send outside it
	ps.mu.RLock()
	subs := make([]*Subscription, 0, len(ps.subscribers[topic]))
	for sub := range ps.subscribers[topic] {
		subs = append(subs, sub)
	}
	ps.mu.RUnlock()

	if len(subs) == 0 {
		return 0, 0
	}

	ev := Event{Topic: topic, Seq: ps.seq.Add(1), Payload: payload}
	for _, sub := range subs {
		if sub.offer(ev) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// GetSubscriberCount returns the number of subscribers for a topic
func (ps *PubSub) GetSubscriberCount(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}

// Shutdown closes all subscriptions. Later publishes are ignored and later
// subscribes fail with ErrShutdown.
func (ps *PubSub) Shutdown() {
	if !ps.isShutdown.CompareAndSwap(false, true) {
		return
	}
	close(ps.shutdown)

	ps.mu.Lock()
	for topic, subs := range ps.subscribers {
		for sub := range subs {
			sub.close()
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Channel returns the subscription's event channel
func (s *Subscription) Channel() <-chan Event {
	return s.channel
}

// Unsubscribe removes the subscription and closes its channel
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	if subs := s.ps.subscribers[s.topic]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.ps.subscribers, s.topic)
		}
	}
	s.ps.mu.Unlock()

	s.close()
}

func (s *Subscription) offer(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.channel <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}
