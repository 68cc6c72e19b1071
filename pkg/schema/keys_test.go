package schema

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-kv/graft/pkg/graft"
)

func testVid(b byte) graft.VolumeId {
	var vid graft.VolumeId
	for i := range vid {
		vid[i] = b
	}
	return vid
}

func TestKeyLengthsAreBitExact(t *testing.T) {
	vid := testVid(0x11)
	assert.Len(t, VolumeStateKey{Vid: vid, Tag: TagSnapshot}.Encode(), VolumeStateKeyLen)
	assert.Len(t, PageKey{Vid: vid, Offset: 7, LSN: 3}.Encode(), PageKeyLen)
	assert.Len(t, CommitKey{Vid: vid, LSN: 3}.Encode(), CommitKeyLen)
}

// PageKey ordering is the load-bearing property the read path relies on
// (§4.2 rationale): for a fixed (vid, offset), encoded keys must sort in
// ascending LSN order, and keys for a lower offset must sort before keys
// for a higher one regardless of LSN.
func TestPageKeyOrdering(t *testing.T) {
	vid := testVid(0x01)

	lower := PageKey{Vid: vid, Offset: 5, LSN: 100}.Encode()
	higher := PageKey{Vid: vid, Offset: 5, LSN: 101}.Encode()
	assert.Negative(t, bytes.Compare(lower, higher), "ascending lsn must sort after lower lsn at the same offset")

	offset0Hi := PageKey{Vid: vid, Offset: 0, LSN: graft.LSN(^uint64(0))}.Encode()
	offset1Lo := PageKey{Vid: vid, Offset: 1, LSN: 0}.Encode()
	assert.Negative(t, bytes.Compare(offset0Hi, offset1Lo), "any lsn at a lower offset must sort before any lsn at a higher offset")
}

func TestVolumeStatePrefixScansOneVolume(t *testing.T) {
	vidA := testVid(0xAA)
	vidB := testVid(0xBB)

	keyA := VolumeStateKey{Vid: vidA, Tag: TagConfig}.Encode()
	keyB := VolumeStateKey{Vid: vidB, Tag: TagConfig}.Encode()

	assert.True(t, bytes.HasPrefix(keyA, VolumeStatePrefix(vidA)))
	assert.False(t, bytes.HasPrefix(keyB, VolumeStatePrefix(vidA)))
}

func TestDecodeKeysRejectWrongLength(t *testing.T) {
	_, err := DecodeVolumeStateKey([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = DecodePageKey([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = DecodeCommitKey([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestPageKeyEncodeDecodePreservesFields(t *testing.T) {
	vid := testVid(0x42)
	k := PageKey{Vid: vid, Offset: 9000, LSN: 123456789}
	decoded, err := DecodePageKey(k.Encode())
	require.NoError(t, err)
	assert.Equal(t, k, decoded)
}
