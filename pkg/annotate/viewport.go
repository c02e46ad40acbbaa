package annotate

const (
	DefaultMinZoom = 0.5
	DefaultMaxZoom = 3.0
)

// Viewport is the zoom/pan transform of the image, plus the pixel size of the
// overlay at zoom 1. Screen coordinates are relative to the top-left of the image container.
//
//	screen = pan + normalized * overlaySize * zoom
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	Pan     Point   `json:"pan"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	MinZoom float64 `json:"-"`
	MaxZoom float64 `json:"-"`
}

func NewViewport(minZoom, maxZoom float64) Viewport {
	if minZoom <= 0 {
		minZoom = DefaultMinZoom
	}
	if maxZoom < minZoom {
		maxZoom = max(DefaultMaxZoom, minZoom)
	}
	return Viewport{
		Zoom:    1,
		MinZoom: minZoom,
		MaxZoom: maxZoom,
	}
}

// ZoomAt multiplies the zoom by factor, keeping the world point under screen fixed.
// Returns false if the zoom was already at its limit.
func (v *Viewport) ZoomAt(screen Point, factor float64) bool {
	next := Clamp(v.Zoom*factor, v.MinZoom, v.MaxZoom)
	if next == v.Zoom {
		return false
	}
	worldX := (screen.X - v.Pan.X) / v.Zoom
	worldY := (screen.Y - v.Pan.Y) / v.Zoom
	v.Pan = Point{
		X: screen.X - worldX*next,
		Y: screen.Y - worldY*next,
	}
	v.Zoom = next
	return true
}

func (v *Viewport) PanBy(dx, dy float64) {
	v.Pan.X += dx
	v.Pan.Y += dy
}

// Reset returns to zoom 1 with no pan
func (v *Viewport) Reset() {
	v.Zoom = 1
	v.Pan = Point{}
}

func (v *Viewport) SetOverlaySize(width, height float64) {
	v.Width = max(width, 0)
	v.Height = max(height, 0)
}

func (v *Viewport) HasSize() bool {
	return v.Width > 0 && v.Height > 0
}

// ToScreen converts a normalized image coordinate to screen pixels
func (v *Viewport) ToScreen(p Point) Point {
	return Point{
		X: v.Pan.X + p.X*v.Width*v.Zoom,
		Y: v.Pan.Y + p.Y*v.Height*v.Zoom,
	}
}

// ToNormalized converts a screen pixel to a normalized image coordinate, clamped to [0,1].
// If the overlay size is unknown, the result is the origin.
func (v *Viewport) ToNormalized(screen Point) Point {
	if !v.HasSize() || v.Zoom <= 0 {
		return Point{}
	}
	return Point{
		X: Clamp((screen.X-v.Pan.X)/v.Zoom/v.Width, 0, 1),
		Y: Clamp((screen.Y-v.Pan.Y)/v.Zoom/v.Height, 0, 1),
	}
}

// ZoomPercent is the zoom level, rounded to a whole percentage
func (v *Viewport) ZoomPercent() int {
	return int(v.Zoom*100 + 0.5)
}

// WheelFactor is the zoom multiplier for one wheel notch.
// Scrolling down (positive delta) zooms out.
func WheelFactor(deltaY float64) float64 {
	if deltaY > 0 {
		return 0.9
	}
	return 1.1
}
