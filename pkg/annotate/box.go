package annotate

import (
	"fmt"
)

// Source is the provenance of a box. It never changes after the box is created.
type Source int

const (
	SourceUser Source = iota
	SourceModel
)

func (s Source) String() string {
	switch s {
	case SourceUser:
		return "user"
	case SourceModel:
		return "model"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

func (s Source) MarshalText() ([]byte, error) {
	switch s {
	case SourceUser, SourceModel:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid box source %d", int(s))
}

func (s *Source) UnmarshalText(b []byte) error {
	switch string(b) {
	case "user":
		*s = SourceUser
	case "model":
		*s = SourceModel
	default:
		return fmt.Errorf("invalid box source %q", string(b))
	}
	return nil
}

// Box is a single annotation
type Box struct {
	ID string `json:"id"`
	Rect
	ClassName  string   `json:"class_name"`
	ClassID    *int     `json:"class_id,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Source     Source   `json:"source"`
}

// Clone returns a deep copy of the box
func (b Box) Clone() Box {
	c := b
	if b.ClassID != nil {
		v := *b.ClassID
		c.ClassID = &v
	}
	if b.Confidence != nil {
		v := *b.Confidence
		c.Confidence = &v
	}
	return c
}

// Equal compares the content of two boxes, following pointers
func (b Box) Equal(o Box) bool {
	if b.ID != o.ID || b.Rect != o.Rect || b.ClassName != o.ClassName || b.Source != o.Source {
		return false
	}
	if (b.ClassID == nil) != (o.ClassID == nil) || (b.ClassID != nil && *b.ClassID != *o.ClassID) {
		return false
	}
	if (b.Confidence == nil) != (o.Confidence == nil) || (b.Confidence != nil && *b.Confidence != *o.Confidence) {
		return false
	}
	return true
}
