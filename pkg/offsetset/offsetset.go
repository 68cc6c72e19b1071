// Package offsetset provides the compressed offset-set type used to
// record which page offsets changed at a given LSN (§3 "Commit" entity,
// §6 "Compressed-offset bitmap" contract). It stands in for the
// out-of-scope "splinter" crate named in spec.md §1: the core only needs
// to build a set from offsets, serialize it, iterate it, and query its
// cardinality/range, all of which github.com/RoaringBitmap/roaring/v2
// provides directly over a conventional compressed-bitmap encoding.
package offsetset

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/graft-kv/graft/pkg/graft"
)

// Set is a compressed set of page offsets.
type Set struct {
	bm *roaring.Bitmap
}

// New returns an empty offset set.
func New() Set {
	return Set{bm: roaring.New()}
}

// FromOffsets builds a set containing exactly the given offsets.
func FromOffsets(offsets []graft.PageOffset) Set {
	s := New()
	for _, o := range offsets {
		s.Add(o)
	}
	return s
}

// Add inserts an offset into the set.
func (s Set) Add(offset graft.PageOffset) {
	s.bm.Add(uint32(offset))
}

// Contains reports whether offset is a member of the set.
func (s Set) Contains(offset graft.PageOffset) bool {
	return s.bm.Contains(uint32(offset))
}

// Cardinality returns the number of offsets in the set.
func (s Set) Cardinality() uint64 {
	return s.bm.GetCardinality()
}

// Offsets returns every offset in the set, in ascending order.
func (s Set) Offsets() []graft.PageOffset {
	raw := s.bm.ToArray()
	out := make([]graft.PageOffset, len(raw))
	for i, v := range raw {
		out[i] = graft.PageOffset(v)
	}
	return out
}

// MaxOffset returns the largest offset in the set and true, or (0, false)
// if the set is empty.
func (s Set) MaxOffset() (graft.PageOffset, bool) {
	if s.bm.IsEmpty() {
		return 0, false
	}
	return graft.PageOffset(s.bm.Maximum()), true
}

// Serialize encodes the set to its compressed wire/storage representation,
// the value stored in the commits partition (§3) and shipped to the
// metastore on push.
func (s Set) Serialize() ([]byte, error) {
	return s.bm.ToBytes()
}

// Deserialize parses a set from its compressed representation.
func Deserialize(b []byte) (Set, error) {
	bm := roaring.New()
	if err := bm.UnmarshalBinary(b); err != nil {
		return Set{}, graft.NewCorruptError(graft.CorruptCommitValue, "offset bitmap: %v", err)
	}
	return Set{bm: bm}, nil
}
