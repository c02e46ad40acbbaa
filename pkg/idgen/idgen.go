package idgen

import (
	"strconv"
	"sync/atomic"
)

// Uint64 returns values 1,2,3...
// Zero is never generated, and a value is never handed out twice.
type Uint64 struct {
	next atomic.Uint64
}

func (u *Uint64) Next() uint64 {
	return u.next.Add(1)
}

// Last returns the most recently generated value, or zero if Next has never been called.
func (u *Uint64) Last() uint64 {
	return u.next.Load()
}

// Allocator hands out string identifiers for annotation boxes.
// Every ID carries the allocator's sequence number, so two IDs from the same
// allocator can never collide, even if the caller reuses a prefix and index.
type Allocator struct {
	seq Uint64
}

// New returns an ID of the form "<prefix>-<seq>", eg "user-12"
func (a *Allocator) New(prefix string) string {
	return prefix + "-" + strconv.FormatUint(a.seq.Next(), 10)
}

// NewIndexed returns an ID of the form "<prefix>-<index>-<seq>", eg "model-3-41".
// The index is informational (for example the position of a detection in a model result).
func (a *Allocator) NewIndexed(prefix string, index int) string {
	return prefix + "-" + strconv.Itoa(index) + "-" + strconv.FormatUint(a.seq.Next(), 10)
}
