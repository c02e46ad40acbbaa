package annotate

import (
	flatbush "github.com/bmharper/flatbush-go"
)

// Normalized coordinates are quantized to this many steps per unit before they go into
// the integer spatial index. Candidates are re-checked against the exact rectangles,
// so quantization never produces a false hit.
const spatialScale = 1 << 20

// spatialIndex accelerates point queries over the boxes of a Store.
// It is rebuilt lazily, on the first query after a mutation.
type spatialIndex struct {
	fb    *flatbush.Flatbush[int32]
	valid bool
}

func (s *spatialIndex) invalidate() {
	s.valid = false
}

func quantize(v float64) int32 {
	return int32(Clamp(v, 0, 1) * spatialScale)
}

func (s *spatialIndex) build(boxes []Box) {
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(boxes))
	for i := range boxes {
		r := &boxes[i].Rect
		fb.Add(quantize(r.X1), quantize(r.Y1), quantize(r.X2), quantize(r.Y2))
	}
	fb.Finish()
	s.fb = fb
	s.valid = true
}

// topmost returns the index in boxes of the last box that contains p, or -1
func (s *spatialIndex) topmost(boxes []Box, p Point) int {
	if len(boxes) == 0 {
		return -1
	}
	if !s.valid {
		s.build(boxes)
	}
	// Widen the query by one quantization step so that points on an edge are never lost
	qx := quantize(p.X)
	qy := quantize(p.Y)
	best := -1
	for _, i := range s.fb.Search(qx-1, qy-1, qx+1, qy+1) {
		if i > best && i < len(boxes) && boxes[i].Contains(p) {
			best = i
		}
	}
	return best
}
