package graft

import (
	"fmt"

	"github.com/google/uuid"
)

// PageSize is the fixed size, in bytes, of every page stored by a volume.
const PageSize = 4096

// VolumeId uniquely identifies a volume. It is a 16-byte value so that it
// lays out directly inside the fixed-width keys described by the schema
// (§4.2/§6 of the specification).
type VolumeId [16]byte

// NewVolumeId generates a random volume id.
func NewVolumeId() VolumeId {
	return VolumeId(uuid.New())
}

// ParseVolumeId parses a 16-byte slice into a VolumeId.
func ParseVolumeId(b []byte) (VolumeId, error) {
	var vid VolumeId
	if len(b) != len(vid) {
		return vid, fmt.Errorf("volume id must be %d bytes, got %d", len(vid), len(b))
	}
	copy(vid[:], b)
	return vid, nil
}

func (v VolumeId) String() string {
	return uuid.UUID(v).String()
}

// Bytes returns the raw 16-byte encoding of the volume id.
func (v VolumeId) Bytes() []byte {
	out := make([]byte, len(v))
	copy(out, v[:])
	return out
}

// LSN is a 1-indexed, monotonically increasing log sequence number.
// LSN(0) is reserved to mean "no snapshot exists yet".
type LSN uint64

// NoLSN is the reserved zero value meaning "no snapshot".
const NoLSN LSN = 0

// Next returns the successor LSN. It panics on overflow: an LSN overflow
// is an unrecoverable invariant violation (§7 "Propagation policy").
func (l LSN) Next() LSN {
	if l == ^LSN(0) {
		panic("graft: lsn overflow")
	}
	return l + 1
}

// IsZero reports whether this LSN is the reserved "no snapshot" value.
func (l LSN) IsZero() bool { return l == NoLSN }

// FirstLSN returns the LSN following NoLSN, i.e. 1.
const FirstLSN LSN = 1

// PageOffset addresses a single page within a volume.
type PageOffset uint32

// PageCount returns the number of pages needed to cover offsets
// 0..=offset, i.e. offset+1.
func (o PageOffset) PageCount() uint32 { return uint32(o) + 1 }

// PageValueKind discriminates the three states a read can observe for a
// page at a given LSN: it was never written (Empty), it was written and
// is available locally (Available), or it is known to exist remotely but
// has not yet been fetched (Pending).
type PageValueKind uint8

const (
	// PageEmpty is produced only by the read path when no key exists; it
	// is never itself persisted.
	PageEmpty PageValueKind = iota
	PageAvailable
	PagePending
)

func (k PageValueKind) String() string {
	switch k {
	case PageEmpty:
		return "empty"
	case PageAvailable:
		return "available"
	case PagePending:
		return "pending"
	default:
		return "unknown"
	}
}

// PageValue is the tagged result of a page lookup.
type PageValue struct {
	Kind PageValueKind
	Data []byte // only meaningful when Kind == PageAvailable, always PageSize bytes
}

// Empty returns the sentinel Empty page value.
func Empty() PageValue { return PageValue{Kind: PageEmpty} }

// Pending returns the sentinel Pending page value.
func Pending() PageValue { return PageValue{Kind: PagePending} }

// Available wraps a page's bytes as an Available page value. data must be
// exactly PageSize bytes.
func Available(data []byte) PageValue {
	return PageValue{Kind: PageAvailable, Data: data}
}

// ZeroPage returns a PageSize page filled with zero bytes, used as the
// result of reading an offset in a volume that has no snapshot yet.
func ZeroPage() []byte {
	return make([]byte, PageSize)
}
