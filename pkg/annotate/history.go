package annotate

const DefaultHistoryLimit = 50

// History is a bounded stack of store snapshots.
// There is no redo. Each entry is a rollback point.
type History struct {
	capacity  int
	entries   [][]Box
	restoring bool
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &History{capacity: capacity}
}

// Push records a deep copy of snapshot, dropping the oldest entry when full.
// It does nothing while a restore is in progress.
// An empty snapshot is a valid rollback point.
func (h *History) Push(snapshot []Box) {
	if h.restoring {
		return
	}
	if len(h.entries) >= h.capacity {
		// Copy down instead of reslicing, so that the backing array doesn't grow forever
		n := copy(h.entries, h.entries[len(h.entries)-h.capacity+1:])
		clear(h.entries[n:])
		h.entries = h.entries[:n]
	}
	h.entries = append(h.entries, cloneBoxes(snapshot))
}

// Undo pops the latest snapshot and restores it into store.
// Returns false if the log is empty.
func (h *History) Undo(store *Store) bool {
	if len(h.entries) == 0 {
		return false
	}
	last := h.entries[len(h.entries)-1]
	h.entries[len(h.entries)-1] = nil
	h.entries = h.entries[:len(h.entries)-1]
	h.restoring = true
	store.Reset(last)
	h.restoring = false
	return true
}

func (h *History) Len() int {
	return len(h.entries)
}
