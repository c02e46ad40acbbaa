package annotate

import (
	"slices"

	"github.com/cyclopcam/videolabel/pkg/event"
	"github.com/cyclopcam/videolabel/pkg/idgen"
	"github.com/cyclopcam/videolabel/pkg/labelapi"
)

// Options are the tunables of an Engine. Zero values are replaced by defaults.
type Options struct {
	HistoryLimit   int
	MinZoom        float64
	MaxZoom        float64
	HandleSizePx   float64
	MinBoxSize     float64
	MaxSuggestions int
}

func DefaultOptions() Options {
	return Options{
		HistoryLimit:   DefaultHistoryLimit,
		MinZoom:        DefaultMinZoom,
		MaxZoom:        DefaultMaxZoom,
		HandleSizePx:   DefaultHandleSizePx,
		MinBoxSize:     DefaultMinBoxSize,
		MaxSuggestions: DefaultMaxSuggestions,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = d.HistoryLimit
	}
	if o.MinZoom <= 0 {
		o.MinZoom = d.MinZoom
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = d.MaxZoom
	}
	if o.HandleSizePx <= 0 {
		o.HandleSizePx = d.HandleSizePx
	}
	if o.MinBoxSize <= 0 {
		o.MinBoxSize = d.MinBoxSize
	}
	if o.MaxSuggestions <= 0 {
		o.MaxSuggestions = d.MaxSuggestions
	}
	return o
}

// Change is a bitmask describing what an engine mutation touched.
// It is the event sent to subscribers.
type Change int

const (
	ChangeBoxes Change = 1 << iota
	ChangeSelection
	ChangeView
	ChangeGesture
	ChangeVocabulary
)

// Engine is the annotation state of a single frame.
// It is not safe for concurrent use. The host must serialize all calls.
type Engine struct {
	opts        Options
	store       *Store
	history     *History
	view        Viewport
	ids         *idgen.Allocator
	vocab       *Vocabulary
	selected    string
	picker      string
	highlighted []string
	gesture     gesture
	changes     event.Sender
}

// NewEngine creates an empty engine. If ids is nil, the engine gets its own allocator.
func NewEngine(opts Options, ids *idgen.Allocator) *Engine {
	opts = opts.withDefaults()
	if ids == nil {
		ids = &idgen.Allocator{}
	}
	return &Engine{
		opts:    opts,
		store:   NewStore(),
		history: NewHistory(opts.HistoryLimit),
		view:    NewViewport(opts.MinZoom, opts.MaxZoom),
		ids:     ids,
		vocab:   NewVocabulary(nil),
	}
}

// Subscribe registers fn to be called with a Change after every mutation.
// The caller must Close the subscription when it is done.
func (e *Engine) Subscribe(fn func(c Change)) *event.Subscription {
	return e.changes.SubscribeFunc(func(sender *event.Sender, ev any) {
		fn(ev.(Change))
	})
}

func (e *Engine) emit(c Change) {
	e.changes.SendEvent(c)
}

func (e *Engine) Options() Options {
	return e.opts
}

// Boxes returns a copy of all boxes, in z-order
func (e *Engine) Boxes() []Box {
	return e.store.All()
}

func (e *Engine) Box(id string) (Box, bool) {
	return e.store.Get(id)
}

func (e *Engine) HistoryLen() int {
	return e.history.Len()
}

func (e *Engine) Viewport() Viewport {
	return e.view
}

func (e *Engine) Selected() string {
	return e.selected
}

func (e *Engine) Picker() string {
	return e.picker
}

func (e *Engine) Highlighted() []string {
	return slices.Clone(e.highlighted)
}

func (e *Engine) Gesture() GestureKind {
	return e.gesture.kind
}

// Ghost is the rectangle being drawn, if any
func (e *Engine) Ghost() (Rect, bool) {
	if e.gesture.kind != GestureDrawing {
		return Rect{}, false
	}
	return NormalizeRect(Rect{e.gesture.start.X, e.gesture.start.Y, e.gesture.cur.X, e.gesture.cur.Y}), true
}

// LoadSaved replaces the store with previously saved annotations.
// This is not an undoable step.
func (e *Engine) LoadSaved(dets []labelapi.MaskDetection) {
	e.store.Reset(MaskBoxes(dets, e.ids))
	e.dropStaleIDs()
	e.emit(ChangeBoxes)
}

// ApplyDetections replaces all model boxes with a fresh model result, as one undo step
func (e *Engine) ApplyDetections(dets []labelapi.Detection) {
	Reconcile(e.store, e.history, ModelBoxes(dets, e.ids))
	e.dropStaleIDs()
	e.emit(ChangeBoxes)
}

// MaskDetections serializes every box for saving
func (e *Engine) MaskDetections() []labelapi.MaskDetection {
	return MaskDetections(e.store.All(), e.vocab)
}

func (e *Engine) SetVocabulary(classes []string) {
	e.vocab = NewVocabulary(classes)
	e.emit(ChangeVocabulary)
}

func (e *Engine) Vocabulary() *Vocabulary {
	return e.vocab
}

// SetOverlaySize tells the engine the pixel size of the image at zoom 1
func (e *Engine) SetOverlaySize(width, height float64) {
	e.view.SetOverlaySize(width, height)
	e.emit(ChangeView)
}

// ResetView returns to zoom 1 with no pan, and stops any pan in progress
func (e *Engine) ResetView() {
	e.view.Reset()
	if e.gesture.kind == GesturePanning {
		e.gesture = gesture{}
	}
	e.emit(ChangeView | ChangeGesture)
}

// Select makes id the selected box, and opens its label picker
func (e *Engine) Select(id string) bool {
	if !e.store.Has(id) {
		return false
	}
	e.selected = id
	e.picker = id
	e.emit(ChangeSelection)
	return true
}

func (e *Engine) ClearSelection() {
	e.selected = ""
	e.emit(ChangeSelection)
}

// OpenPicker opens the label suggestion list for a box, without selecting it
func (e *Engine) OpenPicker(id string) bool {
	if !e.store.Has(id) {
		return false
	}
	e.picker = id
	e.emit(ChangeSelection)
	return true
}

func (e *Engine) ClosePicker() {
	e.picker = ""
	e.emit(ChangeSelection)
}

// PickerSuggestions are the vocabulary suggestions for the label of the picker box
func (e *Engine) PickerSuggestions() []string {
	b, ok := e.store.Get(e.picker)
	if !ok || e.vocab.Len() == 0 {
		return []string{}
	}
	return e.vocab.Suggestions(b.ClassName, e.opts.MaxSuggestions)
}

// Size of the suggestion popup, used to keep it inside the overlay
const (
	pickerWidthPx  = 200
	pickerHeightPx = 160
	pickerMarginPx = 8
)

// PickerPosition is where the suggestion popup goes, in overlay pixels at zoom 1.
// It is anchored at the top-right corner of the picker box.
func (e *Engine) PickerPosition() (Point, bool) {
	b, ok := e.store.Get(e.picker)
	if !ok || !e.view.HasSize() {
		return Point{}, false
	}
	maxLeft := max(e.view.Width-pickerWidthPx, pickerMarginPx)
	maxTop := max(e.view.Height-pickerHeightPx, pickerMarginPx)
	return Point{
		X: min(max(b.X2*e.view.Width+pickerMarginPx, pickerMarginPx), maxLeft),
		Y: min(max(b.Y1*e.view.Height-pickerMarginPx, pickerMarginPx), maxTop),
	}, true
}

// ToggleHighlight flips the highlighted state of a box
func (e *Engine) ToggleHighlight(id string) bool {
	if i := slices.Index(e.highlighted, id); i != -1 {
		e.highlighted = slices.Delete(e.highlighted, i, i+1)
	} else if e.store.Has(id) {
		e.highlighted = append(e.highlighted, id)
	} else {
		return false
	}
	e.emit(ChangeSelection)
	return true
}

// SetLabel changes the class name of a box. Setting the same text is a no-op
// and creates no undo point.
func (e *Engine) SetLabel(id, text string) bool {
	b, ok := e.store.Get(id)
	if !ok || b.ClassName == text {
		return false
	}
	e.history.Push(e.store.All())
	e.store.Update(id, func(b *Box) {
		b.ClassName = text
		// The old id belongs to the old name
		b.ClassID = nil
		if cid, ok := e.vocab.ClassID(text); ok {
			b.ClassID = &cid
		}
	})
	e.emit(ChangeBoxes)
	return true
}

// ChooseSuggestion sets the label of a box to a class from the vocabulary, and closes the picker
func (e *Engine) ChooseSuggestion(id, class string) bool {
	changed := e.SetLabel(id, class)
	if e.picker != "" {
		e.picker = ""
		e.emit(ChangeSelection)
		changed = true
	}
	return changed
}

// Delete removes a box. Deleting an unknown id is a no-op.
func (e *Engine) Delete(id string) bool {
	if !deleteBox(e.store, e.history, id) {
		return false
	}
	e.afterDelete(id)
	return true
}

func (e *Engine) afterDelete(id string) {
	e.highlighted = slices.DeleteFunc(e.highlighted, func(x string) bool { return x == id })
	if e.selected == id {
		e.selected = ""
	}
	if e.picker == id {
		e.picker = ""
	}
	if e.gesture.boxID == id {
		e.gesture = gesture{}
	}
	e.emit(ChangeBoxes | ChangeSelection)
}

// Undo rolls back the most recent undoable change. Undo on an empty log is a no-op.
func (e *Engine) Undo() bool {
	if !e.history.Undo(e.store) {
		return false
	}
	e.afterUndo()
	return true
}

func (e *Engine) afterUndo() {
	e.selected = ""
	if e.gesture.kind == GestureMoving || e.gesture.kind == GestureResizing {
		e.gesture = gesture{}
	}
	e.dropStaleIDs()
	e.emit(ChangeBoxes | ChangeSelection)
}

// dropStaleIDs forgets transient references to boxes that no longer exist
func (e *Engine) dropStaleIDs() {
	e.highlighted = slices.DeleteFunc(e.highlighted, func(id string) bool { return !e.store.Has(id) })
	if e.selected != "" && !e.store.Has(e.selected) {
		e.selected = ""
	}
	if e.picker != "" && !e.store.Has(e.picker) {
		e.picker = ""
	}
}

// HandleKey runs the keyboard bindings against the engine's current state
func (e *Engine) HandleKey(ev KeyEvent) bool {
	res := HandleKey(ev, KeyDeps{
		Store:    e.store,
		History:  e.history,
		Selected: e.selected,
	})
	if res.Deleted != "" {
		e.afterDelete(res.Deleted)
	}
	if res.Undone {
		e.afterUndo()
	}
	return res.Consumed
}

// State is a snapshot of everything a client needs to render the frame
type State struct {
	Boxes             []Box       `json:"boxes"`
	Selected          string      `json:"selected"`
	Picker            string      `json:"picker"`
	PickerSuggestions []string    `json:"pickerSuggestions"`
	PickerPosition    *Point      `json:"pickerPosition"`
	Highlighted       []string    `json:"highlighted"`
	Viewport          Viewport    `json:"viewport"`
	ZoomPercent       int         `json:"zoomPercent"`
	Gesture           GestureKind `json:"gesture"`
	Ghost             *Rect       `json:"ghost"`
	HistoryLen        int         `json:"historyLen"`
	TotalModel        int         `json:"totalModel"`
	TotalUser         int         `json:"totalUser"`
}

func (e *Engine) State() State {
	s := State{
		Boxes:             e.store.All(),
		Selected:          e.selected,
		Picker:            e.picker,
		PickerSuggestions: e.PickerSuggestions(),
		Highlighted:       e.Highlighted(),
		Viewport:          e.view,
		ZoomPercent:       e.view.ZoomPercent(),
		Gesture:           e.gesture.kind,
		HistoryLen:        e.history.Len(),
		TotalModel:        e.store.Count(SourceModel),
		TotalUser:         e.store.Count(SourceUser),
	}
	if s.Highlighted == nil {
		s.Highlighted = []string{}
	}
	if p, ok := e.PickerPosition(); ok {
		s.PickerPosition = &p
	}
	if g, ok := e.Ghost(); ok {
		s.Ghost = &g
	}
	return s
}
