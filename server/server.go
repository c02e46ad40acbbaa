package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/videolabel/pkg/labelapi"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

type Server struct {
	Log    logs.Log
	Config Config

	signalIn        chan os.Signal
	httpServer      *http.Server
	httpRouter      *httprouter.Router
	wsUpgrader      websocket.Upgrader
	backend         *labelapi.Client
	sessions        *sessionRegistry
	fallbackClasses []string
	sockets         sync.WaitGroup
	shutdownStarted chan bool
	shutdownDone    chan bool
}

// NewServer creates a server. The caller owns logger until Shutdown, which closes it.
func NewServer(logger logs.Log, cfg Config) (*Server, error) {
	cfg.applyDefaults()
	var fallbackClasses []string
	if cfg.ClassFile != "" {
		classes, err := labelapi.LoadClassFile(cfg.ClassFile)
		if err != nil {
			return nil, fmt.Errorf("Error loading class file: %w", err)
		}
		logger.Infof("Loaded %v fallback classes from %v", len(classes), cfg.ClassFile)
		fallbackClasses = classes
	}

	s := &Server{
		Log:             logger,
		Config:          cfg,
		backend:         labelapi.NewClient(cfg.BackendURL, nil),
		sessions:        newSessionRegistry(logger),
		fallbackClasses: fallbackClasses,
		shutdownStarted: make(chan bool),
		shutdownDone:    make(chan bool),
	}
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler exposes the router, for tests and for embedding in another server
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// ListenHTTP blocks until the server is shut down.
// port example: ":8082"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		// Wait for Shutdown() to finish closing the sessions
		<-s.shutdownDone
		return nil
	}
	return err
}

func (s *Server) ListenForKillSignals() {
	s.Log.Infof("ListenForKillSignals starting")
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig, ok := <-s.signalIn:
			if ok {
				s.Log.Infof("Received OS signal '%v'. ListenForKillSignals will exit after shutdown", sig.String())
				s.Shutdown()
			} else {
				// Shutdown() was called by something other than ourselves, and closed the signalIn channel.
				s.Log.Infof("signalIn closed. ListenForKillSignals will exit now")
			}
		}
	}()
}

// Shutdown closes the HTTP server and every open session
func (s *Server) Shutdown() {
	select {
	case <-s.shutdownStarted:
		return
	default:
		close(s.shutdownStarted)
	}
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
	}
	if s.httpServer != nil {
		s.Log.Infof("Closing HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := s.httpServer.Shutdown(ctx)
		cancel()
		if err != nil {
			s.Log.Warnf("HTTP server shutdown error: %v", err)
		}
	}
	s.Log.Infof("Closing %v sessions", s.sessions.count())
	s.sessions.closeAll()
	s.sockets.Wait()
	s.Log.Infof("Shutdown complete")
	close(s.shutdownDone)
	s.Log.Close()
}
