package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-graphview/pkg/graphview"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/pubsub"
	"github.com/dd0wney/cluso-graphview/pkg/scheduler"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

type outbound struct {
	msgType string
	data    []byte
}

// session is one websocket client driving its own view. Commands are
// applied on the session's frame loop; frames and notifications are
// written by writePump.
type session struct {
	id     string
	server *Server
	conn   *websocket.Conn
	logger logging.Logger

	loop   *scheduler.LoopFrames
	view   *graphview.View
	frame  *frameCache
	events *pubsub.PubSub

	// send carries replies and notifications; frames holds only the newest
	// frame so a slow client skips frames instead of queueing them
	send   chan outbound
	frames chan []byte
	seq    atomic.Uint64

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newSession(srv *Server, conn *websocket.Conn) *session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	logger := srv.logger.With(logging.Session(id))

	s := &session{
		id:     id,
		server: srv,
		conn:   conn,
		logger: logger,
		loop:   scheduler.NewLoopFrames(srv.cfg.FrameInterval()),
		frame:  newFrameCache(),
		events: pubsub.NewPubSub(),
		send:   make(chan outbound, sendBufferSize),
		frames: make(chan []byte, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	s.view = graphview.New(s.loop, s.frame, srv.viewOptions("session", logger, s.events))
	return s
}

// start loads the current graph, wires notifications and runs the pumps
func (s *session) start(records []visualization.RelationRecord) {
	for _, topic := range []pubsub.Topic{pubsub.TopicSelection, pubsub.TopicModel, pubsub.TopicScheduler} {
		sub, err := s.events.Subscribe(s.ctx, topic)
		if err != nil {
			s.logger.Warn("failed to subscribe", logging.String("topic", string(topic)), logging.Error(err))
			continue
		}
		go s.relay(sub)
	}
	if p := s.server.publisher; p != nil {
		if err := p.Forward(s.ctx, s.events, s.id); err != nil {
			s.logger.Warn("notify forward failed", logging.Error(err))
		}
	}

	_ = s.loop.Post(func() {
		s.view.OnFrame(s.onFrame)
		s.queue(msgHello, helloData{
			Session:  s.id,
			Version:  s.server.version,
			State:    s.view.State().String(),
			Interval: s.server.cfg.FrameInterval().String(),
		})
		if len(records) > 0 {
			s.view.Load(records)
		}
	})

	go s.writePump()
	go s.readPump()
}

// load replaces the session's graph; called when the server reloads
func (s *session) load(records []visualization.RelationRecord) {
	_ = s.loop.Post(func() {
		s.view.Load(records)
	})
}

func (s *session) relay(sub *pubsub.Subscription) {
	for ev := range sub.Channel() {
		s.queue(string(ev.Topic), ev.Payload)
	}
}

// onFrame runs on the loop after each render
func (s *session) onFrame() {
	data, err := s.encode(msgFrame, frameData{
		Frame: s.view.Frames(),
		SVG:   string(s.frame.Frame()),
	})
	if err != nil {
		s.logger.Warn("failed to encode frame", logging.Error(err))
		return
	}

	// drop the unsent frame, if any, for the new one
	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- data:
	default:
	}
}

func (s *session) encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(outMessage{Type: msgType, Seq: s.seq.Add(1), Data: payload})
}

// queue sends a message without blocking; a full buffer drops it
func (s *session) queue(msgType string, payload any) {
	data, err := s.encode(msgType, payload)
	if err != nil {
		s.logger.Warn("failed to encode message", logging.String("type", msgType), logging.Error(err))
		return
	}
	select {
	case s.send <- outbound{msgType: msgType, data: data}:
	case <-s.ctx.Done():
	default:
		s.logger.Warn("send buffer full, message dropped", logging.String("type", msgType))
	}
}

func (s *session) queueError(request string, err error) {
	s.queue(msgError, errorData{Request: request, Message: err.Error()})
}

func (s *session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", logging.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			s.queueError("", errors.New("binary messages are not supported"))
			continue
		}

		msg, err := decodeMessage(data)
		if err != nil {
			s.queueError(msg.Type, err)
			continue
		}
		s.server.metrics.RecordSessionMessage("in", msg.Type)

		if err := s.loop.Post(func() { s.handle(msg) }); err != nil {
			return
		}
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	write := func(data []byte) bool {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug("websocket write failed", logging.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case <-s.ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
			return

		case msg := <-s.send:
			if !write(msg.data) {
				return
			}
			s.server.metrics.RecordSessionMessage("out", msg.msgType)

		case data := <-s.frames:
			if !write(data) {
				return
			}
			s.server.metrics.RecordSessionMessage("out", msgFrame)

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle applies one command. It runs on the session loop.
func (s *session) handle(msg inMessage) {
	v := s.view
	switch msg.Type {
	case msgPointerMove:
		v.PointerMove(msg.X, msg.Y)
	case msgPointerDown:
		v.PointerDown(msg.X, msg.Y)
	case msgPointerUp:
		v.PointerUp(msg.X, msg.Y)
	case msgPointerLeave:
		v.PointerLeave()
	case msgWheel:
		v.Wheel(msg.DeltaY)
	case msgZoomIn:
		v.ZoomIn()
	case msgZoomOut:
		v.ZoomOut()
	case msgPan:
		v.Pan(msg.DX, msg.DY)
	case msgReset:
		v.ResetView()
	case msgSearch:
		v.SetSearch(msg.Text)
	case msgFilter:
		v.SetRelationFilter(msg.Kind)
	case msgLabels:
		show := !v.ShowLabels()
		if msg.Show != nil {
			show = *msg.Show
		}
		v.SetLabels(show)
	case msgSelect, msgNavigate:
		if err := v.NavigateTo(msg.ID); err != nil {
			s.queueError(msg.Type, err)
		}
	case msgClear:
		v.ClearSelection()
	case msgStart:
		v.Start()
	case msgPause:
		v.Pause()
	case msgResume:
		v.Resume()
	case msgToggle:
		v.Toggle()
	case msgResize:
		v.SetFrameSize(msg.Width, msg.Height)
	case msgNeighbors:
		neighbors, err := v.Neighbors(msg.ID)
		if err != nil {
			s.queueError(msg.Type, err)
			return
		}
		s.queue(msgNeighbors, NeighborsResponse{ID: msg.ID, Neighbors: neighbors})
	case msgStats:
		s.queue(msgStats, StatsResponse{
			Stats:         v.Stats(),
			RelationKinds: v.RelationKinds(),
			DroppedEdges:  v.Model().DroppedEdges(),
			State:         v.State().String(),
			Frames:        v.Frames(),
			Sessions:      s.server.sessions.count(),
		})
	}
}

// close tears the session down; safe to call from any goroutine
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.loop.Call(context.Background(), s.view.Close)
		s.loop.Close()
		s.events.Shutdown()
		_ = s.conn.Close()
		s.server.sessions.remove(s.id)
		s.logger.Info("session closed")
	})
}
