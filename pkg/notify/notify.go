// Package notify publishes view notifications on an NNG pub socket so that
// detail panels and other processes can follow the selection.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
	"github.com/dd0wney/cluso-graphview/pkg/pubsub"
)

// ErrClosed is returned by a closed publisher
var ErrClosed = errors.New("notify: publisher closed")

// Message is the body of one wire notification. On the wire it is
// prefixed with the topic and a space so subscribers can filter by topic.
type Message struct {
	Topic   string          `json:"topic"`
	Seq     uint64          `json:"seq"`
	Session string          `json:"session,omitempty"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// Encode frames a notification for the wire
func Encode(topic pubsub.Topic, seq uint64, session string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}
	msg, err := json.Marshal(Message{
		Topic:   string(topic),
		Seq:     seq,
		Session: session,
		Time:    time.Now().UTC(),
		Payload: body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", topic, err)
	}

	out := make([]byte, 0, len(topic)+1+len(msg))
	out = append(out, topic...)
	out = append(out, ' ')
	return append(out, msg...), nil
}

// Decode parses a wire notification
func Decode(data []byte) (*Message, error) {
	i := bytes.IndexByte(data, ' ')
	if i <= 0 {
		return nil, errors.New("notify: missing topic prefix")
	}
	var msg Message
	if err := json.Unmarshal(data[i+1:], &msg); err != nil {
		return nil, fmt.Errorf("notify: malformed message: %w", err)
	}
	if msg.Topic != string(data[:i]) {
		return nil, fmt.Errorf("notify: topic prefix %q does not match message topic %q", data[:i], msg.Topic)
	}
	return &msg, nil
}

// Publisher forwards pubsub notifications to an NNG pub socket
type Publisher struct {
	sock    mangos.Socket
	addr    string
	logger  logging.Logger
	metrics *metrics.Registry

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPublisher creates a pub socket listening on address, for example
// tcp://127.0.0.1:40899 or inproc://graphview.
func NewPublisher(address string, logger logging.Logger, registry *metrics.Registry) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.Listen(address); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("failed to bind PUB socket: %w", err)
	}

	logger = logger.With(logging.Component("notify"))
	logger.Info("notification publisher bound", logging.String("address", address))

	return &Publisher{
		sock:    sock,
		addr:    address,
		logger:  logger,
		metrics: registry,
	}, nil
}

// Address returns the listen address
func (p *Publisher) Address() string {
	return p.addr
}

// Send publishes one notification. Pub sockets never block: with no
// subscriber connected the message is discarded.
func (p *Publisher) Send(topic pubsub.Topic, seq uint64, session string, payload any) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := Encode(topic, seq, session, payload)
	if err != nil {
		return err
	}
	if err := p.sock.Send(data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	if p.metrics != nil {
		p.metrics.RecordNotification("nng_"+string(topic), 0)
	}
	return nil
}

// Forward relays the given topics of events, tagged with session, until
// ctx is done or the publisher closes.
func (p *Publisher) Forward(ctx context.Context, events *pubsub.PubSub, session string, topics ...pubsub.Topic) error {
	if len(topics) == 0 {
		topics = []pubsub.Topic{pubsub.TopicSelection, pubsub.TopicModel, pubsub.TopicScheduler}
	}

	subs := make([]*pubsub.Subscription, 0, len(topics))
	for _, topic := range topics {
		s, err := events.Subscribe(ctx, topic)
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		subs = append(subs, s)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		for _, s := range subs {
			s.Unsubscribe()
		}
		return ErrClosed
	}
	p.wg.Add(len(subs))
	p.mu.Unlock()

	for _, s := range subs {
		go p.relay(s, session)
	}
	return nil
}

func (p *Publisher) relay(s *pubsub.Subscription, session string) {
	defer p.wg.Done()
	for ev := range s.Channel() {
		if err := p.Send(ev.Topic, ev.Seq, session, ev.Payload); err != nil {
			if errors.Is(err, ErrClosed) {
				s.Unsubscribe()
				return
			}
			p.logger.Warn("failed to forward notification",
				logging.String("topic", string(ev.Topic)),
				logging.Session(session),
				logging.Error(err))
		}
	}
}

// Close closes the socket. Relays stop once their subscriptions end.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.sock.Close()
	if err != nil {
		p.logger.Warn("failed to close publisher", logging.Error(err))
	}
	return err
}

// Wait blocks until every relay started by Forward has returned
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// Subscriber receives notifications from a Publisher
type Subscriber struct {
	sock mangos.Socket
}

// NewSubscriber dials address and subscribes to topics; no topics means all
func NewSubscriber(address string, topics ...pubsub.Topic) (*Subscriber, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	if len(topics) == 0 {
		err = sock.SetOption(mangos.OptionSubscribe, []byte{})
	}
	for _, topic := range topics {
		if err = sock.SetOption(mangos.OptionSubscribe, []byte(string(topic)+" ")); err != nil {
			break
		}
	}
	if err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	if err := sock.Dial(address); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	return &Subscriber{sock: sock}, nil
}

// Recv waits up to timeout for the next notification. A zero timeout
// waits forever.
func (s *Subscriber) Recv(timeout time.Duration) (*Message, error) {
	if err := s.sock.SetOption(mangos.OptionRecvDeadline, timeout); err != nil {
		return nil, err
	}
	data, err := s.sock.Recv()
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Close closes the socket
func (s *Subscriber) Close() error {
	return s.sock.Close()
}
