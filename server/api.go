package server

import (
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) setupHttpRoutes() error {
	logEveryRequest := false
	router := httprouter.New()

	// unprotected creates an HTTP handler that is accessible without authentication
	unprotected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			if logEveryRequest {
				s.Log.Infof("HTTP %v %v", method, r.URL.Path)
			}
			handle(w, r, params)
		})
	}

	// rateLimited is for routes that call the backend model or write to the dataset.
	// Each route gets its own budget.
	rateLimited := func(method, route string, handle httprouter.Handle) {
		limiter := httprate.Limit(s.Config.RateLimit.Requests, s.Config.rateLimitWindow(), httprate.WithKeyFuncs(httprate.KeyByIP))
		unprotected(method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	unprotected("GET", "/api/ping", s.httpPing)

	unprotected("POST", "/api/sessions", s.httpSessionCreate)
	unprotected("GET", "/api/sessions/:id", s.httpSessionGet)
	unprotected("DELETE", "/api/sessions/:id", s.httpSessionDelete)
	rateLimited("POST", "/api/sessions/:id/analyse", s.httpSessionAnalyse)
	rateLimited("POST", "/api/sessions/:id/save", s.httpSessionSave)
	unprotected("POST", "/api/sessions/:id/undo", s.httpSessionUndo)
	unprotected("POST", "/api/sessions/:id/resetView", s.httpSessionResetView)
	unprotected("POST", "/api/sessions/:id/navigate", s.httpSessionNavigate)
	unprotected("GET", "/api/sessions/:id/ws", s.httpSessionWebSocket)

	unprotected("GET", "/api/frames/:video/:frame/image", s.httpFrameImage)

	s.httpRouter = router
	return nil
}
