package schema

import (
	"encoding/binary"

	"github.com/graft-kv/graft/pkg/graft"
)

// VolumeStateTag discriminates the four kinds of per-volume state record
// that share the volume-state partition.
type VolumeStateTag byte

const (
	TagConfig     VolumeStateTag = 1
	TagSnapshot   VolumeStateTag = 2
	TagWatermarks VolumeStateTag = 3
	TagStatus     VolumeStateTag = 4
)

// VolumeStateKeyLen is the encoded length of a VolumeStateKey: vid(16) || tag(1).
const VolumeStateKeyLen = 17

// VolumeStateKey identifies one tagged state record for a volume. A
// prefix scan over the volume-state partition by vid enumerates every
// tagged record for that volume.
type VolumeStateKey struct {
	Vid graft.VolumeId
	Tag VolumeStateTag
}

// Encode writes the 17-byte key layout: vid || tag.
func (k VolumeStateKey) Encode() []byte {
	buf := make([]byte, VolumeStateKeyLen)
	copy(buf, k.Vid[:])
	buf[16] = byte(k.Tag)
	return buf
}

// VolumeStatePrefix returns the 16-byte volume-id prefix used to scan all
// tagged state for a volume.
func VolumeStatePrefix(vid graft.VolumeId) []byte {
	return vid.Bytes()
}

// DecodeVolumeStateKey parses a 17-byte VolumeStateKey, validating length.
func DecodeVolumeStateKey(b []byte) (VolumeStateKey, error) {
	if len(b) != VolumeStateKeyLen {
		return VolumeStateKey{}, graft.NewCorruptError(graft.CorruptKey,
			"volume state key: want %d bytes, got %d", VolumeStateKeyLen, len(b))
	}
	vid, err := graft.ParseVolumeId(b[:16])
	if err != nil {
		return VolumeStateKey{}, graft.NewCorruptError(graft.CorruptKey, "%v", err)
	}
	return VolumeStateKey{Vid: vid, Tag: VolumeStateTag(b[16])}, nil
}

// PageKeyLen is the encoded length of a PageKey: vid(16) || offset_be32(4) || lsn_be64(8).
const PageKeyLen = 28

// PageKey identifies a single page version: the page written to `Offset`
// at `LSN`. Keys are big-endian on offset/lsn so that, for a fixed
// (vid, offset), lexicographic key order matches ascending LSN order —
// this is what lets the read path find "the most recent page at or below
// a target LSN" with a bounded range scan (§4.2 Rationale).
type PageKey struct {
	Vid    graft.VolumeId
	Offset graft.PageOffset
	LSN    graft.LSN
}

// Encode writes the 28-byte key layout.
func (k PageKey) Encode() []byte {
	buf := make([]byte, PageKeyLen)
	copy(buf, k.Vid[:])
	binary.BigEndian.PutUint32(buf[16:20], uint32(k.Offset))
	binary.BigEndian.PutUint64(buf[20:28], uint64(k.LSN))
	return buf
}

// PageOffsetPrefix returns the vid||offset_be32 prefix (20 bytes) used to
// bound a range scan over all LSN versions of one offset.
func PageOffsetPrefix(vid graft.VolumeId, offset graft.PageOffset) []byte {
	buf := make([]byte, 20)
	copy(buf, vid.Bytes())
	binary.BigEndian.PutUint32(buf[16:20], uint32(offset))
	return buf
}

// DecodePageKey parses a 28-byte PageKey, validating length.
func DecodePageKey(b []byte) (PageKey, error) {
	if len(b) != PageKeyLen {
		return PageKey{}, graft.NewCorruptError(graft.CorruptKey,
			"page key: want %d bytes, got %d", PageKeyLen, len(b))
	}
	vid, err := graft.ParseVolumeId(b[:16])
	if err != nil {
		return PageKey{}, graft.NewCorruptError(graft.CorruptKey, "%v", err)
	}
	offset := graft.PageOffset(binary.BigEndian.Uint32(b[16:20]))
	lsn := graft.LSN(binary.BigEndian.Uint64(b[20:28]))
	return PageKey{Vid: vid, Offset: offset, LSN: lsn}, nil
}

// CommitKeyLen is the encoded length of a CommitKey: vid(16) || lsn_be64(8).
const CommitKeyLen = 24

// CommitKey identifies the commit record at a given LSN for a volume. A
// prefix scan by vid enumerates commits in LSN order.
type CommitKey struct {
	Vid graft.VolumeId
	LSN graft.LSN
}

// Encode writes the 24-byte key layout.
func (k CommitKey) Encode() []byte {
	buf := make([]byte, CommitKeyLen)
	copy(buf, k.Vid[:])
	binary.BigEndian.PutUint64(buf[16:24], uint64(k.LSN))
	return buf
}

// DecodeCommitKey parses a 24-byte CommitKey, validating length.
func DecodeCommitKey(b []byte) (CommitKey, error) {
	if len(b) != CommitKeyLen {
		return CommitKey{}, graft.NewCorruptError(graft.CorruptKey,
			"commit key: want %d bytes, got %d", CommitKeyLen, len(b))
	}
	vid, err := graft.ParseVolumeId(b[:16])
	if err != nil {
		return CommitKey{}, graft.NewCorruptError(graft.CorruptKey, "%v", err)
	}
	lsn := graft.LSN(binary.BigEndian.Uint64(b[16:24]))
	return CommitKey{Vid: vid, LSN: lsn}, nil
}
