package annotate

import "math"

// Point is a position. Depending on context it is either in normalized image
// coordinates [0..1] or in screen pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(b Point) Point {
	return Point{p.X - b.X, p.Y - b.Y}
}

func (p Point) Add(b Point) Point {
	return Point{p.X + b.X, p.Y + b.Y}
}

// Rect is an axis-aligned rectangle.
// Rectangles inside the store are always normalized (X1 <= X2, Y1 <= Y2).
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// NormalizeRect swaps coordinates so that X1 <= X2 and Y1 <= Y2
func NormalizeRect(r Rect) Rect {
	return Rect{
		X1: math.Min(r.X1, r.X2),
		Y1: math.Min(r.Y1, r.Y2),
		X2: math.Max(r.X1, r.X2),
		Y2: math.Max(r.Y1, r.Y2),
	}
}

// Contains is an inclusive bounds test
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}

func (r Rect) Width() float64 {
	return r.X2 - r.X1
}

func (r Rect) Height() float64 {
	return r.Y2 - r.Y1
}

// Clamped returns the rectangle normalized and clamped to the unit square
func (r Rect) Clamped() Rect {
	r = NormalizeRect(r)
	return Rect{
		X1: Clamp(r.X1, 0, 1),
		Y1: Clamp(r.Y1, 0, 1),
		X2: Clamp(r.X2, 0, 1),
		Y2: Clamp(r.Y2, 0, 1),
	}
}

func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{r.X1 + dx, r.Y1 + dy, r.X2 + dx, r.Y2 + dy}
}

// Handle is one of the 8 resize control points of a box
type Handle int

const (
	HandleNone Handle = iota
	HandleNW
	HandleNE
	HandleSW
	HandleSE
	HandleN
	HandleS
	HandleW
	HandleE
)

// Corners are hit-tested before edges, so that a small box's corners are never
// shadowed by its edge midpoints.
var handleSearchOrder = [8]Handle{HandleNW, HandleNE, HandleSW, HandleSE, HandleN, HandleS, HandleW, HandleE}

func (h Handle) String() string {
	switch h {
	case HandleNW:
		return "nw"
	case HandleNE:
		return "ne"
	case HandleSW:
		return "sw"
	case HandleSE:
		return "se"
	case HandleN:
		return "n"
	case HandleS:
		return "s"
	case HandleW:
		return "w"
	case HandleE:
		return "e"
	}
	return ""
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// MovesLeft is true if dragging the handle moves the X1 edge
func (h Handle) MovesLeft() bool {
	return h == HandleNW || h == HandleSW || h == HandleW
}

// MovesRight is true if dragging the handle moves the X2 edge
func (h Handle) MovesRight() bool {
	return h == HandleNE || h == HandleSE || h == HandleE
}

// MovesTop is true if dragging the handle moves the Y1 edge
func (h Handle) MovesTop() bool {
	return h == HandleNW || h == HandleNE || h == HandleN
}

// MovesBottom is true if dragging the handle moves the Y2 edge
func (h Handle) MovesBottom() bool {
	return h == HandleSW || h == HandleSE || h == HandleS
}

// position returns the handle location in normalized coordinates
func (h Handle) position(r Rect) Point {
	cx := (r.X1 + r.X2) / 2
	cy := (r.Y1 + r.Y2) / 2
	switch h {
	case HandleNW:
		return Point{r.X1, r.Y1}
	case HandleNE:
		return Point{r.X2, r.Y1}
	case HandleSW:
		return Point{r.X1, r.Y2}
	case HandleSE:
		return Point{r.X2, r.Y2}
	case HandleN:
		return Point{cx, r.Y1}
	case HandleS:
		return Point{cx, r.Y2}
	case HandleW:
		return Point{r.X1, cy}
	case HandleE:
		return Point{r.X2, cy}
	}
	return Point{cx, cy}
}

// NearHandle returns the handle of r that is within reach of the normalized point p.
// The test is done in overlay pixels (overlayW x overlayH at zoom 1), and the tolerance
// is handlePx/zoom, so that the touch target has a constant size on screen.
// Returns HandleNone if nothing is close enough, or if the overlay size is unknown.
func NearHandle(p Point, r Rect, overlayW, overlayH, handlePx, zoom float64) Handle {
	if overlayW <= 0 || overlayH <= 0 || zoom <= 0 {
		return HandleNone
	}
	tolerance := handlePx / zoom
	px := p.X * overlayW
	py := p.Y * overlayH
	for _, h := range handleSearchOrder {
		hp := h.position(r)
		if math.Abs(px-hp.X*overlayW) <= tolerance && math.Abs(py-hp.Y*overlayH) <= tolerance {
			return h
		}
	}
	return HandleNone
}
