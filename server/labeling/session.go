package labeling

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/videolabel/pkg/annotate"
	"github.com/cyclopcam/videolabel/pkg/event"
	"github.com/cyclopcam/videolabel/pkg/idgen"
	"github.com/cyclopcam/videolabel/pkg/labelapi"
)

var (
	ErrBusy    = errors.New("a request of this kind is already in progress")
	ErrClosed  = errors.New("session is closed")
	ErrNoFrame = errors.New("video and frame are required")
)

// Backend is the dataset server. *labelapi.Client implements it.
type Backend interface {
	AnalyseFrame(ctx context.Context, video, frame string) (*labelapi.AnalysisResult, error)
	Classes(ctx context.Context) ([]string, error)
	LoadMask(ctx context.Context, video, frame string) ([]labelapi.MaskDetection, bool, error)
	SaveMask(ctx context.Context, video, frame string, dets []labelapi.MaskDetection) error
}

// Key identifies a frame
type Key struct {
	Video string `json:"video"`
	Frame string `json:"frame"`
}

func (k Key) Valid() bool {
	return k.Video != "" && k.Frame != ""
}

func (k Key) String() string {
	return k.Video + "/" + k.Frame
}

type Config struct {
	Engine annotate.Options

	// How long the "saved" flag stays up after a successful save
	SaveSuccessDuration time.Duration

	// Used when the backend can't give us its class list
	FallbackClasses []string
}

const DefaultSaveSuccessDuration = 3 * time.Second

// Session hosts the annotation engine of one open frame.
//
// All engine state is owned by a single goroutine (run). Public methods post a closure to
// that goroutine and wait for it. Backend calls run on their own goroutines, and post their
// completion back to the loop, tagged with the frame that was active when they were issued.
// A completion for a frame that is no longer current is discarded.
type Session struct {
	ID      string
	log     logs.Log
	backend Backend
	cfg     Config
	ids     *idgen.Allocator

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan func()
	done   chan struct{}
	closed atomic.Bool

	// Everything below is owned by the run loop
	key            Key
	frameGen       uint64
	engine         *annotate.Engine
	engineSub      *event.Subscription
	dirty          bool
	analysing      bool
	saving         bool
	loadingMask    bool
	loadingClasses bool
	saveSuccess    bool
	saveSuccessGen uint64
	analysisError  string
	saveError      string
	classesError   string
	classes        []string
	listeners      event.Sender
}

// frameToken is attached to every backend request, so that stale completions can be recognized
type frameToken struct {
	key Key
	gen uint64
}

// NewSession opens a frame and starts loading its saved annotations and the class list
func NewSession(id string, logger logs.Log, backend Backend, cfg Config, key Key) (*Session, error) {
	if !key.Valid() {
		return nil, ErrNoFrame
	}
	if cfg.SaveSuccessDuration <= 0 {
		cfg.SaveSuccessDuration = DefaultSaveSuccessDuration
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:      id,
		log:     logger,
		backend: backend,
		cfg:     cfg,
		ids:     &idgen.Allocator{},
		ctx:     ctx,
		cancel:  cancel,
		cmds:    make(chan func()),
		done:    make(chan struct{}),
	}
	s.openFrame(key, annotate.Viewport{})
	s.startLoadClasses()
	go s.run()
	return s, nil
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.cmds:
			fn()
			if s.dirty {
				s.dirty = false
				s.listeners.SendEvent(s.state())
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// do runs fn on the session loop, and waits for it to finish
func (s *Session) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case s.cmds <- func() {
		defer close(finished)
		fn()
	}:
	case <-s.ctx.Done():
		return ErrClosed
	}
	<-finished
	return nil
}

// post queues fn on the session loop, without waiting. fn is dropped if the session closes.
func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.ctx.Done():
	}
}

// Close stops the loop, and cancels all backend requests that are in flight
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.cancel()
	<-s.done
	s.engineSub.Close()
	s.log.Infof("Session %v closed", s.ID)
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed when the session loop exits
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) markDirty() {
	s.dirty = true
}

func (s *Session) current(t frameToken) bool {
	return t.key == s.key && t.gen == s.frameGen
}

// openFrame replaces the engine with a fresh one for key.
// The overlay size and vocabulary carry over, but zoom and pan do not.
func (s *Session) openFrame(key Key, prevView annotate.Viewport) {
	if s.engineSub != nil {
		s.engineSub.Close()
	}
	s.key = key
	s.frameGen++
	s.engine = annotate.NewEngine(s.cfg.Engine, s.ids)
	s.engine.SetOverlaySize(prevView.Width, prevView.Height)
	if s.classes != nil {
		s.engine.SetVocabulary(s.classes)
	}
	s.engineSub = s.engine.Subscribe(func(c annotate.Change) { s.markDirty() })
	s.analysing = false
	s.saving = false
	s.saveSuccess = false
	s.analysisError = ""
	s.saveError = ""
	s.markDirty()
	s.log.Infof("Session %v opened frame %v", s.ID, key)
	s.startLoadMask()
}

func (s *Session) token() frameToken {
	return frameToken{key: s.key, gen: s.frameGen}
}

func (s *Session) startLoadMask() {
	tok := s.token()
	s.loadingMask = true
	go func() {
		dets, found, err := s.backend.LoadMask(s.ctx, tok.key.Video, tok.key.Frame)
		s.post(func() {
			if !s.current(tok) {
				return
			}
			s.loadingMask = false
			s.markDirty()
			if err != nil {
				// A frame that was never saved is the normal case, so this is not shown to the user
				s.log.Warnf("Session %v: no saved annotations for %v: %v", s.ID, tok.key, err)
				return
			}
			if found {
				s.engine.LoadSaved(dets)
			}
		})
	}()
}

func (s *Session) startLoadClasses() {
	s.loadingClasses = true
	s.classesError = ""
	go func() {
		classes, err := s.backend.Classes(s.ctx)
		s.post(func() {
			s.loadingClasses = false
			s.markDirty()
			if err != nil {
				s.log.Errorf("Session %v: failed to load classes: %v", s.ID, err)
				s.classesError = err.Error()
				if len(s.cfg.FallbackClasses) == 0 {
					return
				}
				classes = s.cfg.FallbackClasses
			}
			s.classes = classes
			s.engine.SetVocabulary(classes)
		})
	}()
}

func (s *Session) startAnalyse() error {
	if s.analysing {
		return ErrBusy
	}
	tok := s.token()
	s.analysing = true
	s.analysisError = ""
	s.markDirty()
	go func() {
		res, err := s.backend.AnalyseFrame(s.ctx, tok.key.Video, tok.key.Frame)
		s.post(func() {
			if !s.current(tok) {
				return
			}
			s.analysing = false
			s.markDirty()
			if err != nil {
				s.log.Errorf("Session %v: analyse %v failed: %v", s.ID, tok.key, err)
				s.analysisError = err.Error()
				return
			}
			s.log.Infof("Session %v: %v detections on %v", s.ID, len(res.Detections), tok.key)
			s.engine.ApplyDetections(res.Detections)
		})
	}()
	return nil
}

func (s *Session) startSave() error {
	if s.saving {
		return ErrBusy
	}
	tok := s.token()
	dets := s.engine.MaskDetections()
	s.saving = true
	s.saveError = ""
	s.saveSuccess = false
	s.markDirty()
	go func() {
		err := s.backend.SaveMask(s.ctx, tok.key.Video, tok.key.Frame, dets)
		s.post(func() {
			if !s.current(tok) {
				return
			}
			s.saving = false
			s.markDirty()
			if err != nil {
				s.log.Errorf("Session %v: save %v failed: %v", s.ID, tok.key, err)
				s.saveError = err.Error()
				return
			}
			s.log.Infof("Session %v: saved %v boxes on %v", s.ID, len(dets), tok.key)
			s.saveSuccess = true
			s.saveSuccessGen++
			gen := s.saveSuccessGen
			time.AfterFunc(s.cfg.SaveSuccessDuration, func() {
				s.post(func() {
					if s.saveSuccessGen == gen && s.saveSuccess {
						s.saveSuccess = false
						s.markDirty()
					}
				})
			})
		})
	}()
	return nil
}

// dismiss clears one of the error banners: "analysis", "save" or "classes"
func (s *Session) dismiss(which string) error {
	switch which {
	case "analysis":
		s.analysisError = ""
	case "save":
		s.saveError = ""
	case "classes":
		s.classesError = ""
	default:
		return fmt.Errorf("unknown error kind '%v'", which)
	}
	s.markDirty()
	return nil
}

// Analyse runs the detection model on the current frame, and replaces the model boxes
// with the result. It returns as soon as the request is issued.
func (s *Session) Analyse() error {
	var err error
	if e := s.do(func() { err = s.startAnalyse() }); e != nil {
		return e
	}
	return err
}

// Save sends every box of the current frame to the backend.
// It returns as soon as the request is issued.
func (s *Session) Save() error {
	var err error
	if e := s.do(func() { err = s.startSave() }); e != nil {
		return e
	}
	return err
}

func (s *Session) Undo() error {
	return s.do(func() { s.engine.Undo() })
}

func (s *Session) ResetView() error {
	return s.do(func() { s.engine.ResetView() })
}

// Navigate switches the session to another frame. Requests that are still in flight
// for the previous frame will have no effect.
func (s *Session) Navigate(key Key) error {
	if !key.Valid() {
		return ErrNoFrame
	}
	return s.do(func() { s.navigate(key) })
}

func (s *Session) navigate(key Key) {
	if key == s.key {
		return
	}
	s.openFrame(key, s.engine.Viewport())
}

// Key returns the current frame
func (s *Session) Key() (Key, error) {
	var k Key
	err := s.do(func() { k = s.key })
	return k, err
}

// State returns a snapshot of the session
func (s *Session) State() (State, error) {
	var st State
	err := s.do(func() { st = s.state() })
	return st, err
}

// Subscribe registers fn to receive a fresh State after every change.
// fn runs on the session loop, so it must not block, and must not call back into the session.
func (s *Session) Subscribe(fn func(st State)) *event.Subscription {
	return s.listeners.SubscribeFunc(func(sender *event.Sender, ev any) {
		fn(ev.(State))
	})
}

// Handle applies a client message
func (s *Session) Handle(msg Message) error {
	var err error
	if e := s.do(func() { err = s.handle(msg) }); e != nil {
		return e
	}
	return err
}
