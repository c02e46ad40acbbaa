package annotate

import (
	"github.com/cyclopcam/videolabel/pkg/idgen"
	"github.com/cyclopcam/videolabel/pkg/labelapi"
)

func rectFromBBox(b labelapi.BBox) Rect {
	return Rect{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3]}.Clamped()
}

// ModelBoxes converts detections into model boxes.
// Ids are "model-<index>-<seq>", where index is the position of the detection.
func ModelBoxes(dets []labelapi.Detection, ids *idgen.Allocator) []Box {
	boxes := make([]Box, 0, len(dets))
	for i, d := range dets {
		classID := d.ClassID
		confidence := d.Confidence
		boxes = append(boxes, Box{
			ID:         ids.NewIndexed("model", i),
			Rect:       rectFromBBox(d.BBox),
			ClassName:  d.ClassName,
			ClassID:    &classID,
			Confidence: &confidence,
			Source:     SourceModel,
		})
	}
	return boxes
}

// MaskBoxes converts the detections of a saved mask into user boxes.
// Everything in a saved mask has been reviewed by a human, so it belongs to the user.
func MaskBoxes(dets []labelapi.MaskDetection, ids *idgen.Allocator) []Box {
	boxes := make([]Box, 0, len(dets))
	for i, d := range dets {
		classID := d.ClassID
		boxes = append(boxes, Box{
			ID:        ids.NewIndexed("mask", i),
			Rect:      rectFromBBox(d.BBox),
			ClassName: d.ClassName,
			ClassID:   &classID,
			Source:    SourceUser,
		})
	}
	return boxes
}

// MaskDetections serializes boxes of both sources for saving.
// A box without a class id takes the vocabulary index of its label, or 0.
func MaskDetections(boxes []Box, vocab *Vocabulary) []labelapi.MaskDetection {
	dets := make([]labelapi.MaskDetection, 0, len(boxes))
	for _, b := range boxes {
		classID := 0
		if b.ClassID != nil {
			classID = *b.ClassID
		} else if id, ok := vocab.ClassID(b.ClassName); ok {
			classID = id
		}
		dets = append(dets, labelapi.MaskDetection{
			BBox:      labelapi.BBox{b.X1, b.Y1, b.X2, b.Y2},
			ClassID:   classID,
			ClassName: b.ClassName,
		})
	}
	return dets
}

// Reconcile replaces the model partition of store with fresh, as a single undo step.
// User boxes are never touched.
func Reconcile(store *Store, history *History, fresh []Box) {
	history.Push(store.All())
	store.ReplacePartition(SourceModel, fresh)
}
