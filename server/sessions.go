package server

import (
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/videolabel/server/labeling"
	"github.com/google/uuid"
)

// sessionRegistry holds every open labeling session, keyed by a random id.
// A session that has had a websocket attached is closed when its last socket detaches.
type sessionRegistry struct {
	log      logs.Log
	lock     sync.Mutex
	sessions map[string]*labeling.Session
	sockets  map[string]int // Number of attached websockets per session
}

func newSessionRegistry(log logs.Log) *sessionRegistry {
	return &sessionRegistry{
		log:      log,
		sessions: map[string]*labeling.Session{},
		sockets:  map[string]int{},
	}
}

func (r *sessionRegistry) open(backend labeling.Backend, cfg labeling.Config, key labeling.Key) (*labeling.Session, error) {
	id := uuid.NewString()
	s, err := labeling.NewSession(id, r.log, backend, cfg, key)
	if err != nil {
		return nil, err
	}
	r.lock.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.lock.Unlock()
	r.log.Infof("Session %v opened on %v (%v open)", id, key, n)
	return s, nil
}

// get returns nil if the session doesn't exist
func (r *sessionRegistry) get(id string) *labeling.Session {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.sessions[id]
}

// close removes and closes the session. Returns false if it doesn't exist.
func (r *sessionRegistry) close(id string) bool {
	r.lock.Lock()
	s := r.sessions[id]
	delete(r.sessions, id)
	delete(r.sockets, id)
	r.lock.Unlock()
	if s == nil {
		return false
	}
	s.Close()
	return true
}

// attach records a websocket on the session. Returns false if the session is gone.
func (r *sessionRegistry) attach(id string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.sessions[id] == nil {
		return false
	}
	r.sockets[id]++
	return true
}

// detach is the counterpart of attach. The session is closed when its last socket leaves.
func (r *sessionRegistry) detach(id string) {
	r.lock.Lock()
	s := r.sessions[id]
	if s == nil {
		r.lock.Unlock()
		return
	}
	r.sockets[id]--
	if r.sockets[id] > 0 {
		r.lock.Unlock()
		return
	}
	delete(r.sockets, id)
	delete(r.sessions, id)
	n := len(r.sessions)
	r.lock.Unlock()
	r.log.Infof("Session %v has no more sockets. Closing (%v open)", id, n)
	s.Close()
}

func (r *sessionRegistry) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.sessions)
}

func (r *sessionRegistry) closeAll() {
	r.lock.Lock()
	all := r.sessions
	r.sessions = map[string]*labeling.Session{}
	r.sockets = map[string]int{}
	r.lock.Unlock()
	for _, s := range all {
		s.Close()
	}
}
