package annotate

// Store holds the boxes of one frame.
// Boxes are kept in insertion order, which is also their z-order (last drawn is on top).
// Every mutation keeps coordinates normalized and clamped to [0,1].
// The store knows nothing about undo. The Engine pushes history before undoable mutations.
type Store struct {
	boxes []Box
	index spatialIndex
}

func NewStore() *Store {
	return &Store{}
}

func sanitize(b Box) Box {
	b.Rect = b.Rect.Clamped()
	return b
}

func (s *Store) find(id string) int {
	for i := range s.boxes {
		if s.boxes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) changed() {
	s.index.invalidate()
}

// Add appends a box on top of the z-order
func (s *Store) Add(b Box) {
	s.boxes = append(s.boxes, sanitize(b.Clone()))
	s.changed()
}

// Update applies fn to the box with the given id.
// The id and source of the box are immutable, so changes to those are ignored.
// Returns false if the box does not exist.
func (s *Store) Update(id string, fn func(b *Box)) bool {
	i := s.find(id)
	if i == -1 {
		return false
	}
	b := s.boxes[i].Clone()
	fn(&b)
	b.ID = s.boxes[i].ID
	b.Source = s.boxes[i].Source
	s.boxes[i] = sanitize(b)
	s.changed()
	return true
}

// Remove deletes a box. Returns false if the box does not exist.
func (s *Store) Remove(id string) bool {
	i := s.find(id)
	if i == -1 {
		return false
	}
	s.boxes = append(s.boxes[:i], s.boxes[i+1:]...)
	s.changed()
	return true
}

// ReplacePartition drops every box with the given source, and appends newBoxes.
// Boxes of the other source keep their relative order.
func (s *Store) ReplacePartition(source Source, newBoxes []Box) {
	kept := make([]Box, 0, len(s.boxes)+len(newBoxes))
	for _, b := range s.boxes {
		if b.Source != source {
			kept = append(kept, b)
		}
	}
	for _, b := range newBoxes {
		b = sanitize(b.Clone())
		b.Source = source
		kept = append(kept, b)
	}
	s.boxes = kept
	s.changed()
}

// Reset replaces the entire content of the store
func (s *Store) Reset(boxes []Box) {
	s.boxes = cloneBoxes(boxes)
	for i := range s.boxes {
		s.boxes[i] = sanitize(s.boxes[i])
	}
	s.changed()
}

// Get returns a copy of the box
func (s *Store) Get(id string) (Box, bool) {
	i := s.find(id)
	if i == -1 {
		return Box{}, false
	}
	return s.boxes[i].Clone(), true
}

func (s *Store) Has(id string) bool {
	return s.find(id) != -1
}

// All returns a copy of all boxes, in z-order
func (s *Store) All() []Box {
	return cloneBoxes(s.boxes)
}

// Clone returns a deep copy of the store
func (s *Store) Clone() *Store {
	return &Store{boxes: cloneBoxes(s.boxes)}
}

func (s *Store) Len() int {
	return len(s.boxes)
}

// Count returns the number of boxes with the given source
func (s *Store) Count(source Source) int {
	n := 0
	for i := range s.boxes {
		if s.boxes[i].Source == source {
			n++
		}
	}
	return n
}

// TopmostAt returns the id of the highest box (in z-order) that contains p
func (s *Store) TopmostAt(p Point) (string, bool) {
	i := s.index.topmost(s.boxes, p)
	if i == -1 {
		return "", false
	}
	return s.boxes[i].ID, true
}

func cloneBoxes(boxes []Box) []Box {
	c := make([]Box, len(boxes))
	for i := range boxes {
		c[i] = boxes[i].Clone()
	}
	return c
}
