package annotate

const (
	DefaultHandleSizePx = 10.0
	DefaultMinBoxSize   = 0.005
)

// Pointer buttons, as numbered by the browser
const (
	ButtonPrimary = 0
	ButtonMiddle  = 1
)

// PointerEvent is a mouse event. X,Y are screen pixels relative to the image container.
type PointerEvent struct {
	Button int     `json:"button"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (ev PointerEvent) Screen() Point {
	return Point{ev.X, ev.Y}
}

// WheelEvent is a mouse wheel event. Zooming only happens while shift is held.
type WheelEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
	Shift  bool    `json:"shift"`
}

type GestureKind int

const (
	GestureNone GestureKind = iota
	GestureDrawing
	GestureMoving
	GestureResizing
	GesturePanning
)

func (k GestureKind) String() string {
	switch k {
	case GestureNone:
		return "none"
	case GestureDrawing:
		return "drawing"
	case GestureMoving:
		return "moving"
	case GestureResizing:
		return "resizing"
	case GesturePanning:
		return "panning"
	}
	return ""
}

func (k GestureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// gesture is the single pointer interaction in progress
type gesture struct {
	kind GestureKind

	// Drawing, normalized
	start Point
	cur   Point

	// Moving and resizing
	boxID      string
	handle     Handle
	startMouse Point // normalized for drags, screen pixels for panning
	startBox   Rect
	// Set when a drag starts. The store is pushed to history on the first real
	// change, so a click without movement leaves no undo point.
	pendingUndo bool

	// Panning
	startPan Point
}

// PointerDown starts a gesture. Returns true if any state changed.
func (e *Engine) PointerDown(ev PointerEvent) bool {
	if ev.Button == ButtonMiddle {
		e.gesture = gesture{
			kind:       GesturePanning,
			startMouse: ev.Screen(),
			startPan:   e.view.Pan,
		}
		e.emit(ChangeGesture)
		return true
	}
	if ev.Button != ButtonPrimary || e.gesture.kind == GesturePanning {
		return false
	}
	pos := e.view.ToNormalized(ev.Screen())

	if sel, ok := e.store.Get(e.selected); ok {
		if h := NearHandle(pos, sel.Rect, e.view.Width, e.view.Height, e.opts.HandleSizePx, e.view.Zoom); h != HandleNone {
			e.startDrag(GestureResizing, sel, h, pos)
			return true
		}
		if sel.Contains(pos) {
			e.startDrag(GestureMoving, sel, HandleNone, pos)
			return true
		}
	}

	if id, ok := e.store.TopmostAt(pos); ok {
		e.gesture = gesture{}
		e.selected = id
		e.picker = id
		e.emit(ChangeSelection)
		return true
	}

	e.selected = ""
	e.picker = ""
	e.gesture = gesture{
		kind:  GestureDrawing,
		start: pos,
		cur:   pos,
	}
	e.emit(ChangeSelection | ChangeGesture)
	return true
}

func (e *Engine) startDrag(kind GestureKind, b Box, h Handle, pos Point) {
	e.gesture = gesture{
		kind:        kind,
		boxID:       b.ID,
		handle:      h,
		startMouse:  pos,
		startBox:    b.Rect,
		pendingUndo: true,
	}
	e.emit(ChangeGesture)
}

// PointerMove advances the current gesture. Returns true if any state changed.
func (e *Engine) PointerMove(ev PointerEvent) bool {
	switch e.gesture.kind {
	case GesturePanning:
		d := ev.Screen().Sub(e.gesture.startMouse)
		pan := e.gesture.startPan.Add(d)
		if pan == e.view.Pan {
			return false
		}
		e.view.Pan = pan
		e.emit(ChangeView)
		return true
	case GestureDrawing:
		pos := e.view.ToNormalized(ev.Screen())
		if pos == e.gesture.cur {
			return false
		}
		e.gesture.cur = pos
		e.emit(ChangeGesture)
		return true
	case GestureMoving, GestureResizing:
		pos := e.view.ToNormalized(ev.Screen())
		var r Rect
		if e.gesture.kind == GestureMoving {
			r = moveRect(e.gesture.startBox, pos.Sub(e.gesture.startMouse))
		} else {
			r = resizeRect(e.gesture.startBox, e.gesture.handle, pos.Sub(e.gesture.startMouse))
		}
		cur, ok := e.store.Get(e.gesture.boxID)
		if !ok {
			e.gesture = gesture{}
			return false
		}
		if cur.Rect == r {
			return false
		}
		if e.gesture.pendingUndo {
			e.history.Push(e.store.All())
			e.gesture.pendingUndo = false
		}
		e.store.Update(e.gesture.boxID, func(b *Box) { b.Rect = r })
		e.emit(ChangeBoxes)
		return true
	}
	return false
}

// PointerUp finishes the current gesture. Returns true if any state changed.
func (e *Engine) PointerUp(ev PointerEvent) bool {
	if ev.Button == ButtonMiddle {
		if e.gesture.kind == GesturePanning {
			e.gesture = gesture{}
			e.emit(ChangeGesture)
			return true
		}
		return false
	}
	if ev.Button != ButtonPrimary {
		return false
	}
	switch e.gesture.kind {
	case GestureDrawing:
		pos := e.view.ToNormalized(ev.Screen())
		r := NormalizeRect(Rect{e.gesture.start.X, e.gesture.start.Y, pos.X, pos.Y})
		e.gesture = gesture{}
		if r.Width() > e.opts.MinBoxSize && r.Height() > e.opts.MinBoxSize {
			e.history.Push(e.store.All())
			b := Box{
				ID:     e.ids.New("user"),
				Rect:   r,
				Source: SourceUser,
			}
			e.store.Add(b)
			e.selected = b.ID
			e.picker = b.ID
			e.emit(ChangeBoxes | ChangeSelection | ChangeGesture)
		} else {
			e.emit(ChangeGesture)
		}
		return true
	case GestureMoving, GestureResizing:
		e.gesture = gesture{}
		e.emit(ChangeGesture)
		return true
	}
	return false
}

// Wheel zooms around the cursor while shift is held
func (e *Engine) Wheel(ev WheelEvent) bool {
	if !ev.Shift {
		return false
	}
	if !e.view.ZoomAt(Point{ev.X, ev.Y}, WheelFactor(ev.DeltaY)) {
		return false
	}
	e.emit(ChangeView)
	return true
}

// moveRect translates r by d, keeping the whole rectangle inside the unit square
func moveRect(r Rect, d Point) Rect {
	w := r.Width()
	h := r.Height()
	x1 := Clamp(r.X1+d.X, 0, 1-w)
	y1 := Clamp(r.Y1+d.Y, 0, 1-h)
	return Rect{x1, y1, x1 + w, y1 + h}
}

// resizeRect moves the edges of r selected by the handle. Each edge is clamped on its own,
// and the result is renormalized, so dragging an edge past its opposite flips the box.
func resizeRect(r Rect, h Handle, d Point) Rect {
	if h.MovesLeft() {
		r.X1 = Clamp(r.X1+d.X, 0, 1)
	}
	if h.MovesRight() {
		r.X2 = Clamp(r.X2+d.X, 0, 1)
	}
	if h.MovesTop() {
		r.Y1 = Clamp(r.Y1+d.Y, 0, 1)
	}
	if h.MovesBottom() {
		r.Y2 = Clamp(r.Y2+d.Y, 0, 1)
	}
	return NormalizeRect(r)
}
