package annotate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cyclopcam/videolabel/pkg/idgen"
	"github.com/cyclopcam/videolabel/pkg/labelapi"
	"github.com/stretchr/testify/require"
)

func detections(n int) []labelapi.Detection {
	dets := []labelapi.Detection{}
	for i := 0; i < n; i++ {
		x := float64(i) * 0.1
		dets = append(dets, labelapi.Detection{
			BBox:       labelapi.BBox{x, 0.1, x + 0.05, 0.2},
			Confidence: 0.5,
			ClassID:    i,
			ClassName:  "car",
		})
	}
	return dets
}

func TestSuggestions(t *testing.T) {
	v := NewVocabulary([]string{"person", "bicycle", "car", "motorcycle", "bus", "truck", "Cat"})
	require.Equal(t, []string{"bicycle", "motorcycle"}, v.Suggestions("  CYCLE ", 5))
	require.Equal(t, []string{"car", "Cat"}, v.Suggestions("ca", 5))
	// Empty query, and a query with no match, both give the start of the list
	require.Equal(t, []string{"person", "bicycle", "car", "motorcycle", "bus"}, v.Suggestions("", 5))
	require.Equal(t, []string{"person", "bicycle", "car", "motorcycle", "bus"}, v.Suggestions("zebra", 5))
	require.Equal(t, []string{"person", "bicycle"}, v.Suggestions("", 2))
	require.Len(t, v.Suggestions("", 0), DefaultMaxSuggestions)

	require.Equal(t, []string{}, NewVocabulary(nil).Suggestions("car", 5))

	id, ok := v.ClassID("car")
	require.True(t, ok)
	require.Equal(t, 2, id)
	_, ok = v.ClassID("Car")
	require.False(t, ok)
}

func TestPickerSuggestionsFollowLabel(t *testing.T) {
	e := newTestEngine()
	e.SetVocabulary([]string{"person", "bicycle", "car"})
	drag(e, 100, 100, 200, 200)
	id := e.Picker()
	require.NotEmpty(t, id)
	require.Equal(t, []string{"person", "bicycle", "car"}, e.PickerSuggestions())

	e.SetLabel(id, "bi")
	require.Equal(t, []string{"bicycle"}, e.PickerSuggestions())

	require.True(t, e.ChooseSuggestion(id, "bicycle"))
	require.Equal(t, "", e.Picker())
	b, _ := e.Box(id)
	require.Equal(t, "bicycle", b.ClassName)
	require.Empty(t, e.PickerSuggestions())
}

func TestSetLabelUndoPoints(t *testing.T) {
	e := newTestEngine()
	drag(e, 100, 100, 200, 200)
	id := e.Selected()
	n := e.HistoryLen()

	require.True(t, e.SetLabel(id, "dog"))
	require.Equal(t, n+1, e.HistoryLen())
	// Same text: no-op, no undo point
	require.False(t, e.SetLabel(id, "dog"))
	require.Equal(t, n+1, e.HistoryLen())
	require.False(t, e.SetLabel("missing", "dog"))

	require.True(t, e.Undo())
	b, _ := e.Box(id)
	require.Equal(t, "", b.ClassName)
}

func TestReconcilePreservesUserBoxes(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < 3; i++ {
		e.store.Add(Box{ID: e.ids.New("user"), Rect: Rect{0.1, 0.1, 0.9, 0.9}, Source: SourceUser})
	}
	e.ApplyDetections(detections(2))
	require.Equal(t, 3, e.store.Count(SourceUser))
	require.Equal(t, 2, e.store.Count(SourceModel))
	users := e.Boxes()[:3]

	e.ApplyDetections(detections(5))
	all := e.Boxes()
	require.Len(t, all, 8)
	require.Equal(t, users, all[:3])
	for i, b := range all[3:] {
		require.Equal(t, SourceModel, b.Source)
		require.True(t, strings.HasPrefix(b.ID, "model-"), b.ID)
		require.Equal(t, i, *b.ClassID)
		require.Equal(t, 0.5, *b.Confidence)
	}

	// One undo step per reconciliation
	require.True(t, e.Undo())
	require.Equal(t, 2, e.store.Count(SourceModel))
	require.Equal(t, 3, e.store.Count(SourceUser))
}

func TestModelBoxIDsAreUnique(t *testing.T) {
	ids := &idgen.Allocator{}
	seen := map[string]bool{}
	for round := 0; round < 3; round++ {
		for _, b := range ModelBoxes(detections(4), ids) {
			require.False(t, seen[b.ID], b.ID)
			seen[b.ID] = true
		}
	}
}

func TestLoadSavedAndSerialize(t *testing.T) {
	e := newTestEngine()
	e.SetVocabulary([]string{"person", "dog"})
	e.LoadSaved([]labelapi.MaskDetection{
		{BBox: labelapi.BBox{0.3, 0.3, 0.1, 0.1}, ClassID: 7, ClassName: "tree"},
	})
	require.Equal(t, 0, e.HistoryLen())
	boxes := e.Boxes()
	require.Len(t, boxes, 1)
	require.Equal(t, SourceUser, boxes[0].Source)
	require.True(t, strings.HasPrefix(boxes[0].ID, "mask-0-"))
	require.Equal(t, Rect{0.1, 0.1, 0.3, 0.3}, boxes[0].Rect)

	// A drawn box has no class id, so it takes its vocabulary index (or 0)
	drag(e, 500, 500, 600, 600)
	e.SetLabel(e.Selected(), "dog")
	drag(e, 700, 700, 800, 800)
	e.SetLabel(e.Selected(), "unknown")

	dets := e.MaskDetections()
	require.Len(t, dets, 3)
	require.Equal(t, labelapi.MaskDetection{BBox: labelapi.BBox{0.1, 0.1, 0.3, 0.3}, ClassID: 7, ClassName: "tree"}, dets[0])
	require.Equal(t, 1, dets[1].ClassID)
	require.Equal(t, "dog", dets[1].ClassName)
	require.Equal(t, 0, dets[2].ClassID)
}

func TestDelete(t *testing.T) {
	e := newTestEngine()
	drag(e, 100, 100, 200, 200)
	id := e.Selected()
	require.True(t, e.ToggleHighlight(id))
	require.Equal(t, []string{id}, e.Highlighted())

	require.True(t, e.Delete(id))
	require.Empty(t, e.Boxes())
	require.Equal(t, "", e.Selected())
	require.Equal(t, "", e.Picker())
	require.Empty(t, e.Highlighted())

	n := e.HistoryLen()
	require.False(t, e.Delete(id))
	require.Equal(t, n, e.HistoryLen())
}

func TestKeyboard(t *testing.T) {
	e := newTestEngine()
	// Nothing to undo, so the chord is not consumed
	require.False(t, e.HandleKey(KeyEvent{Key: "z", Ctrl: true}))

	drag(e, 100, 100, 200, 200)
	drag(e, 300, 300, 400, 400)
	second := e.Selected()
	require.Len(t, e.Boxes(), 2)

	require.False(t, e.HandleKey(KeyEvent{Key: "z"}))
	require.True(t, e.HandleKey(KeyEvent{Key: "Delete"}))
	require.Len(t, e.Boxes(), 1)
	_, ok := e.Box(second)
	require.False(t, ok)
	// Nothing selected any more
	require.False(t, e.HandleKey(KeyEvent{Key: "Delete"}))

	require.True(t, e.HandleKey(KeyEvent{Key: "Z", Meta: true}))
	require.Len(t, e.Boxes(), 2)
	require.Equal(t, "", e.Selected())
}

func TestHandleKeyUsesCallerState(t *testing.T) {
	store := NewStore()
	history := NewHistory(10)
	store.Add(userBox("a", 0, 0, 0.1, 0.1))
	store.Add(userBox("b", 0.2, 0.2, 0.3, 0.3))

	res := HandleKey(KeyEvent{Key: "Delete"}, KeyDeps{Store: store, History: history, Selected: "b"})
	require.Equal(t, KeyResult{Consumed: true, Deleted: "b"}, res)
	require.Equal(t, 1, history.Len())

	res = HandleKey(KeyEvent{Key: "z", Ctrl: true}, KeyDeps{Store: store, History: history})
	require.Equal(t, KeyResult{Consumed: true, Undone: true}, res)
	require.True(t, store.Has("b"))
}

func TestUndoRoundTrip(t *testing.T) {
	e := newTestEngine()
	e.LoadSaved([]labelapi.MaskDetection{{BBox: labelapi.BBox{0.6, 0.6, 0.7, 0.7}, ClassName: "a"}})
	original := e.Boxes()

	mutations := []func(){
		func() { drag(e, 100, 100, 200, 200) },
		func() { e.SetLabel(e.Selected(), "x") },
		func() { drag(e, 150, 150, 180, 180) }, // move
		func() { drag(e, 230, 230, 300, 250) }, // resize via se
		func() { e.ApplyDetections(detections(3)) },
		func() { e.Delete(original[0].ID) },
		func() { e.SetLabel(e.Boxes()[0].ID, "y") },
	}
	for _, m := range mutations {
		m()
	}
	require.Equal(t, len(mutations), e.HistoryLen())
	for range mutations {
		require.True(t, e.Undo())
	}
	require.Equal(t, original, e.Boxes())
	require.False(t, e.Undo())
}

func TestUndoRoundTripFromEmpty(t *testing.T) {
	e := newTestEngine()
	mutations := []func(){
		func() { drag(e, 100, 100, 200, 200) },
		func() { e.SetLabel(e.Selected(), "x") },
		func() { drag(e, 150, 150, 180, 180) },
		func() { e.ApplyDetections(detections(3)) },
		func() { e.Delete(e.Boxes()[0].ID) },
	}
	for _, m := range mutations {
		m()
	}
	require.Equal(t, len(mutations), e.HistoryLen())
	for range mutations {
		require.True(t, e.Undo())
	}
	require.Empty(t, e.Boxes())
	require.False(t, e.Undo())
}

func TestSetLabelFollowsVocabulary(t *testing.T) {
	e := newTestEngine()
	e.SetVocabulary([]string{"person", "car", "dog"})
	e.ApplyDetections(detections(2))
	model := e.Boxes()[1]
	require.Equal(t, 1, *model.ClassID)

	require.True(t, e.SetLabel(model.ID, "dog"))
	b, _ := e.Box(model.ID)
	require.Equal(t, 2, *b.ClassID)

	// A name outside the vocabulary has no id of its own
	require.True(t, e.SetLabel(model.ID, "tree"))
	b, _ = e.Box(model.ID)
	require.Nil(t, b.ClassID)
	dets := e.MaskDetections()
	require.Equal(t, "tree", dets[1].ClassName)
	require.Equal(t, 0, dets[1].ClassID)
}

func TestUndoDropsStaleReferences(t *testing.T) {
	e := newTestEngine()
	e.LoadSaved([]labelapi.MaskDetection{{BBox: labelapi.BBox{0.6, 0.6, 0.7, 0.7}}})
	drag(e, 100, 100, 200, 200)
	id := e.Selected()
	e.ToggleHighlight(id)
	require.True(t, e.Undo())
	require.Len(t, e.Boxes(), 1)
	require.Empty(t, e.Highlighted())
	require.Equal(t, "", e.Selected())
	require.Equal(t, "", e.Picker())
}

func TestHighlightToggle(t *testing.T) {
	e := newTestEngine()
	require.False(t, e.ToggleHighlight("nope"))
	drag(e, 100, 100, 200, 200)
	id := e.Selected()
	n := e.HistoryLen()
	require.True(t, e.ToggleHighlight(id))
	require.True(t, e.ToggleHighlight(id))
	require.Empty(t, e.Highlighted())
	// Highlights never create undo points
	require.Equal(t, n, e.HistoryLen())
}

func TestSubscribe(t *testing.T) {
	e := newTestEngine()
	var got []Change
	sub := e.Subscribe(func(c Change) { got = append(got, c) })
	drag(e, 100, 100, 200, 200)
	require.NotEmpty(t, got)
	last := Change(0)
	for _, c := range got {
		last |= c
	}
	require.NotZero(t, last&ChangeBoxes)
	require.NotZero(t, last&ChangeSelection)

	sub.Close()
	n := len(got)
	e.ResetView()
	require.Len(t, got, n)
}

func TestPickerPosition(t *testing.T) {
	e := newTestEngine()
	drag(e, 100, 100, 200, 200)
	p, ok := e.PickerPosition()
	require.True(t, ok)
	require.InDelta(t, 208, p.X, 1e-9)
	require.InDelta(t, 92, p.Y, 1e-9)

	// Near the right edge, it is pushed back inside
	e.store.Add(userBox("edge", 0.9, 0, 1, 0.1))
	e.OpenPicker("edge")
	p, _ = e.PickerPosition()
	require.Equal(t, Point{800, 8}, p)

	e.ClosePicker()
	_, ok = e.PickerPosition()
	require.False(t, ok)
}

func TestStateJSON(t *testing.T) {
	e := newTestEngine()
	e.SetVocabulary([]string{"car"})
	e.ApplyDetections(detections(1))
	down(e, 700, 700)
	move(e, 800, 750)

	raw, err := json.Marshal(e.State())
	require.NoError(t, err)
	m := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Equal(t, "drawing", m["gesture"])
	require.Equal(t, 1.0, m["totalModel"])
	require.Equal(t, 0.0, m["totalUser"])
	require.Equal(t, 100.0, m["zoomPercent"])
	require.NotNil(t, m["ghost"])
	boxes := m["boxes"].([]any)
	require.Equal(t, "model", boxes[0].(map[string]any)["source"])
}
