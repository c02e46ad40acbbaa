package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/videolabel/server/labeling"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Sent by the server over the websocket, always as a TEXT frame.
// SYNC-LABELING-SOCKET-MESSAGE
type socketSendMessage struct {
	Type  string          `json:"type"` // "state" or "error"
	State *labeling.State `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Maximum number of error messages that we'll hold for a slow client, before dropping them
const socketErrorBacklog = 20

var nextSessionSocketID atomic.Int64

// sessionSocket connects one websocket to one session.
// Client messages are forwarded to the session in order. In the other direction we only
// ever send the latest state, so a slow client skips intermediate states instead of
// holding up the session loop.
type sessionSocket struct {
	log           logs.Log
	socketID      int64
	session       *labeling.Session
	fromWebSocket chan labeling.Message
	wake          chan struct{}
	closed        chan struct{}

	pendingLock  sync.Mutex
	pendingState *labeling.State
	pendingErrs  []string
}

func (s *Server) httpSessionWebSocket(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.getSession(params)
	c, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("websocket upgrade failed: %v", err)
		return
	}
	s.sockets.Add(1)
	defer s.sockets.Done()
	if !s.sessions.attach(sess.ID) {
		c.Close()
		return
	}
	defer s.sessions.detach(sess.ID)
	runSessionSocket(s.Log, c, sess)
}

func runSessionSocket(logger logs.Log, conn *websocket.Conn, sess *labeling.Session) {
	ss := &sessionSocket{
		log:           logger,
		socketID:      nextSessionSocketID.Add(1),
		session:       sess,
		fromWebSocket: make(chan labeling.Message, 1),
		wake:          make(chan struct{}, 1),
		closed:        make(chan struct{}),
	}
	ss.run(conn)
}

func (s *sessionSocket) run(conn *websocket.Conn) {
	defer conn.Close()

	sub := s.session.Subscribe(s.onState)
	defer sub.Close()

	// The client needs a full state to start with, even if nothing changes for a while
	initial, err := s.session.State()
	if err != nil {
		s.log.Infof("Session %v socket %v: %v", s.session.ID, s.socketID, err)
		return
	}
	s.onState(initial)

	go s.webSocketReader(conn)
	go s.webSocketWriter(conn)

	s.log.Infof("Session %v socket %v connected", s.session.ID, s.socketID)

loop:
	for {
		select {
		case msg, ok := <-s.fromWebSocket:
			if !ok {
				break loop
			}
			if err := s.session.Handle(msg); err != nil {
				if errors.Is(err, labeling.ErrClosed) {
					break loop
				}
				s.onError(err)
			}
		case <-s.session.Done():
			break loop
		}
	}
	close(s.closed)
	s.log.Infof("Session %v socket %v closed", s.session.ID, s.socketID)
}

// onState runs on the session loop, so it must not block
func (s *sessionSocket) onState(st labeling.State) {
	s.pendingLock.Lock()
	s.pendingState = &st
	s.pendingLock.Unlock()
	s.signal()
}

func (s *sessionSocket) onError(err error) {
	s.pendingLock.Lock()
	if len(s.pendingErrs) < socketErrorBacklog {
		s.pendingErrs = append(s.pendingErrs, err.Error())
	}
	s.pendingLock.Unlock()
	s.signal()
}

func (s *sessionSocket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *sessionSocket) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// take returns everything that is waiting to be sent, and clears it
func (s *sessionSocket) take() (*labeling.State, []string) {
	s.pendingLock.Lock()
	defer s.pendingLock.Unlock()
	st, errs := s.pendingState, s.pendingErrs
	s.pendingState = nil
	s.pendingErrs = nil
	return st, errs
}

// Read from the websocket and post to our own channel, so that the main loop
// can stop when either the client or the session goes away.
func (s *sessionSocket) webSocketReader(conn *websocket.Conn) {
	defer close(s.fromWebSocket)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		msg := labeling.Message{}
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Infof("Session %v socket %v failed to decode JSON: %v", s.session.ID, s.socketID, err)
			s.onError(err)
			continue
		}
		select {
		case s.fromWebSocket <- msg:
		case <-s.closed:
			return
		}
	}
}

// Run a thread that is responsible for writing to the websocket, so that a slow
// client never blocks the session.
func (s *sessionSocket) webSocketWriter(conn *websocket.Conn) {
	for {
		select {
		case <-s.closed:
			return
		case <-s.wake:
		}
		st, errs := s.take()
		for _, e := range errs {
			if !s.write(conn, &socketSendMessage{Type: "error", Error: e}) {
				return
			}
		}
		if st != nil {
			if !s.write(conn, &socketSendMessage{Type: "state", State: st}) {
				return
			}
		}
	}
}

func (s *sessionSocket) write(conn *websocket.Conn, msg *socketSendMessage) bool {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorf("Session %v socket %v failed to encode %v message: %v", s.session.ID, s.socketID, msg.Type, err)
		return true
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		if !s.isClosed() {
			s.log.Infof("Session %v socket %v write failed: %v", s.session.ID, s.socketID, err)
		}
		// Unblock the reader, which ends the main loop
		conn.Close()
		return false
	}
	return true
}
