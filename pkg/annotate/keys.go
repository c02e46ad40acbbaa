package annotate

// KeyEvent is a key press, with the names used by browser KeyboardEvent.key
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
}

// KeyDeps is the state a key binding operates on.
// It is assembled by the caller at the moment the key arrives, never captured ahead of time.
type KeyDeps struct {
	Store    *Store
	History  *History
	Selected string
}

// KeyResult describes what HandleKey did
type KeyResult struct {
	Consumed bool
	Deleted  string // id of the deleted box
	Undone   bool
}

func isUndoChord(ev KeyEvent) bool {
	return (ev.Ctrl || ev.Meta) && (ev.Key == "z" || ev.Key == "Z")
}

// HandleKey applies the keyboard bindings:
// Delete removes the selected box, and Ctrl+Z (Cmd+Z on Mac) undoes.
func HandleKey(ev KeyEvent, deps KeyDeps) KeyResult {
	switch {
	case ev.Key == "Delete":
		if deps.Selected != "" && deleteBox(deps.Store, deps.History, deps.Selected) {
			return KeyResult{Consumed: true, Deleted: deps.Selected}
		}
	case isUndoChord(ev):
		if deps.History.Undo(deps.Store) {
			return KeyResult{Consumed: true, Undone: true}
		}
	}
	return KeyResult{}
}

func deleteBox(store *Store, history *History, id string) bool {
	if !store.Has(id) {
		return false
	}
	history.Push(store.All())
	return store.Remove(id)
}
