package schema

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-kv/graft/pkg/graft"
)

func TestSnapshotByteLayout(t *testing.T) {
	s := Snapshot{LocalLSN: 9, RemoteLSN: 5, RemotePresent: true, Pages: 3}
	b := s.Encode()
	require.Len(t, b, SnapshotValueLen)

	assert.Equal(t, uint64(9), binary.LittleEndian.Uint64(b[0:8]))
	assert.Equal(t, uint64(5), binary.LittleEndian.Uint64(b[8:16]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[16:20]))
	assert.Equal(t, byte(1), b[20])
}

func TestSnapshotRemoteAbsent(t *testing.T) {
	s := Snapshot{LocalLSN: 1, Pages: 1}
	decoded, err := DecodeSnapshot(s.Encode())
	require.NoError(t, err)
	assert.False(t, decoded.RemotePresent)
	assert.Nil(t, decoded.RemoteLSNPtr())
}

func TestSnapshotRemotePresent(t *testing.T) {
	s := Snapshot{LocalLSN: 2, RemoteLSN: 7, RemotePresent: true, Pages: 2}
	decoded, err := DecodeSnapshot(s.Encode())
	require.NoError(t, err)
	require.NotNil(t, decoded.RemoteLSNPtr())
	assert.Equal(t, graft.LSN(7), *decoded.RemoteLSNPtr())
}

func TestWatermarksFlags(t *testing.T) {
	tests := []struct {
		name string
		w    Watermarks
	}{
		{"both absent", Watermarks{}},
		{"last only", Watermarks{LastSync: 4, LastSyncPresent: true}},
		{"both present", Watermarks{LastSync: 4, LastSyncPresent: true, PendingSync: 6, PendingSyncPresent: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeWatermarks(tt.w.Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.w, decoded)
		})
	}
}

func TestHasPendingPush(t *testing.T) {
	assert.False(t, Watermarks{}.HasPendingPush())
	assert.True(t, Watermarks{PendingSync: 1, PendingSyncPresent: true}.HasPendingPush())
	assert.False(t, Watermarks{
		LastSync: 5, LastSyncPresent: true,
		PendingSync: 5, PendingSyncPresent: true,
	}.HasPendingPush())
	assert.True(t, Watermarks{
		LastSync: 5, LastSyncPresent: true,
		PendingSync: 6, PendingSyncPresent: true,
	}.HasPendingPush())
}

func TestSyncDirectionMatches(t *testing.T) {
	assert.True(t, SyncBoth.Matches(SyncPush))
	assert.True(t, SyncBoth.Matches(SyncPull))
	assert.False(t, SyncBoth.Matches(SyncDisabled))
	assert.True(t, SyncPush.Matches(SyncPush))
	assert.False(t, SyncPush.Matches(SyncPull))
}

func TestPageValueRoundTripDisambiguatesByLength(t *testing.T) {
	page := make([]byte, graft.PageSize)
	for i := range page {
		page[i] = byte(i)
	}

	avEncoded := EncodePageValue(graft.Available(page))
	decoded, err := DecodePageValue(avEncoded)
	require.NoError(t, err)
	assert.Equal(t, graft.PageAvailable, decoded.Kind)
	assert.Equal(t, page, decoded.Data)

	pendingEncoded := EncodePageValue(graft.Pending())
	assert.Len(t, pendingEncoded, 1)
	decodedPending, err := DecodePageValue(pendingEncoded)
	require.NoError(t, err)
	assert.Equal(t, graft.PagePending, decodedPending.Kind)
}

func TestEncodePageValuePanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { EncodePageValue(graft.Empty()) })
}

func TestDecodePageValueRejectsBadLength(t *testing.T) {
	_, err := DecodePageValue(make([]byte, 17))
	assert.Error(t, err)
}
