package labeling

import (
	"fmt"

	"github.com/cyclopcam/videolabel/pkg/annotate"
)

// Message is a command sent by a client.
// Only the fields relevant to Type are used.
// SYNC-LABELING-CLIENT-MESSAGE
type Message struct {
	Type   string  `json:"type"`
	Button int     `json:"button"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
	Key    string  `json:"key"`
	Shift  bool    `json:"shift"`
	Ctrl   bool    `json:"ctrl"`
	Meta   bool    `json:"meta"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Error  string  `json:"error"`
	Video  string  `json:"video"`
	Frame  string  `json:"frame"`
}

func (m *Message) pointer() annotate.PointerEvent {
	return annotate.PointerEvent{Button: m.Button, X: m.X, Y: m.Y}
}

// handle runs on the session loop
func (s *Session) handle(m Message) error {
	e := s.engine
	switch m.Type {
	case "pointerDown":
		e.PointerDown(m.pointer())
	case "pointerMove":
		e.PointerMove(m.pointer())
	case "pointerUp":
		e.PointerUp(m.pointer())
	case "wheel":
		e.Wheel(annotate.WheelEvent{X: m.X, Y: m.Y, DeltaY: m.DeltaY, Shift: m.Shift})
	case "key":
		e.HandleKey(annotate.KeyEvent{Key: m.Key, Ctrl: m.Ctrl, Meta: m.Meta, Shift: m.Shift})
	case "resize":
		e.SetOverlaySize(m.Width, m.Height)
	case "label":
		e.SetLabel(m.ID, m.Text)
	case "suggest":
		e.ChooseSuggestion(m.ID, m.Text)
	case "select":
		if m.ID == "" {
			e.ClearSelection()
		} else {
			e.Select(m.ID)
		}
	case "picker":
		if m.ID == "" {
			e.ClosePicker()
		} else {
			e.OpenPicker(m.ID)
		}
	case "highlight":
		e.ToggleHighlight(m.ID)
	case "delete":
		id := m.ID
		if id == "" {
			id = e.Selected()
		}
		e.Delete(id)
	case "undo":
		e.Undo()
	case "resetView":
		e.ResetView()
	case "analyse":
		return s.startAnalyse()
	case "save":
		return s.startSave()
	case "dismiss":
		return s.dismiss(m.Error)
	case "navigate":
		k := Key{Video: m.Video, Frame: m.Frame}
		if !k.Valid() {
			return ErrNoFrame
		}
		s.navigate(k)
	default:
		return fmt.Errorf("unknown message type '%v'", m.Type)
	}
	return nil
}
