package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/cyclopcam/videolabel/server/labeling"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Time     int64 `json:"time"`
		Sessions int   `json:"sessions"`
	}
	ping := &pingJSON{
		Time:     time.Now().Unix(),
		Sessions: s.sessions.count(),
	}
	www.SendJSON(w, ping)
}

// checkSession panics with an HTTP error that matches a session error
func checkSession(err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, labeling.ErrBusy):
		www.Panic(http.StatusConflict, err.Error())
	case errors.Is(err, labeling.ErrClosed):
		www.Panic(http.StatusNotFound, err.Error())
	case errors.Is(err, labeling.ErrNoFrame):
		www.Panic(http.StatusNotFound, err.Error())
	default:
		www.PanicBadRequestf("%v", err)
	}
}

func (s *Server) getSession(params httprouter.Params) *labeling.Session {
	id := params.ByName("id")
	sess := s.sessions.get(id)
	if sess == nil {
		www.Panic(http.StatusNotFound, "Session not found")
	}
	return sess
}

func (s *Server) sendSessionState(w http.ResponseWriter, sess *labeling.Session) {
	st, err := sess.State()
	checkSession(err)
	www.SendJSON(w, &st)
}

func (s *Server) httpSessionCreate(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type createJSON struct {
		Video  string  `json:"video"`
		Frame  string  `json:"frame"`
		Width  float64 `json:"width"`  // Overlay size in screen pixels. May be zero, and sent later as a "resize" message.
		Height float64 `json:"height"` //
	}
	req := createJSON{}
	www.ReadJSON(w, r, &req, 1024*1024)
	key := labeling.Key{Video: req.Video, Frame: req.Frame}
	if !key.Valid() {
		www.Panic(http.StatusNotFound, "Frame not found: video and frame are required")
	}
	sess, err := s.sessions.open(s.backend, s.Config.SessionConfig(s.fallbackClasses), key)
	checkSession(err)
	if req.Width > 0 && req.Height > 0 {
		checkSession(sess.Handle(labeling.Message{Type: "resize", Width: req.Width, Height: req.Height}))
	}
	type responseJSON struct {
		ID string `json:"id"`
	}
	www.SendJSON(w, &responseJSON{ID: sess.ID})
}

func (s *Server) httpSessionGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.sendSessionState(w, s.getSession(params))
}

func (s *Server) httpSessionDelete(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if !s.sessions.close(params.ByName("id")) {
		www.Panic(http.StatusNotFound, "Session not found")
	}
	www.SendOK(w)
}

func (s *Server) httpSessionAnalyse(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.getSession(params)
	checkSession(sess.Analyse())
	s.sendSessionState(w, sess)
}

func (s *Server) httpSessionSave(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.getSession(params)
	checkSession(sess.Save())
	s.sendSessionState(w, sess)
}

func (s *Server) httpSessionUndo(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.getSession(params)
	checkSession(sess.Undo())
	s.sendSessionState(w, sess)
}

func (s *Server) httpSessionResetView(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.getSession(params)
	checkSession(sess.ResetView())
	s.sendSessionState(w, sess)
}

func (s *Server) httpSessionNavigate(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.getSession(params)
	key := labeling.Key{}
	www.ReadJSON(w, r, &key, 1024*1024)
	checkSession(sess.Navigate(key))
	s.sendSessionState(w, sess)
}

func (s *Server) httpFrameImage(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	video := params.ByName("video")
	frame := params.ByName("frame")
	http.Redirect(w, r, s.backend.ImageURL(video, frame), http.StatusFound)
}
