package schema

import (
	"encoding/binary"

	"github.com/graft-kv/graft/pkg/graft"
)

// SyncDirection controls whether a volume automatically pushes, pulls,
// both, or neither.
type SyncDirection byte

const (
	SyncDisabled SyncDirection = 0
	SyncPush     SyncDirection = 1
	SyncPull     SyncDirection = 2
	SyncBoth     SyncDirection = 3
)

// Matches reports whether this filter direction should include a volume
// configured with the given direction. SyncBoth used as a filter matches
// any configured direction except Disabled; used as a volume's own
// configuration it means "push and pull are both permitted".
func (filter SyncDirection) Matches(configured SyncDirection) bool {
	if filter == SyncBoth {
		return configured != SyncDisabled
	}
	return filter == configured
}

// VolumeConfigLen is the encoded length of a VolumeConfig value.
const VolumeConfigLen = 1

// VolumeConfig is the per-volume sync configuration (§3).
type VolumeConfig struct {
	Sync SyncDirection
}

func (c VolumeConfig) Encode() []byte {
	return []byte{byte(c.Sync)}
}

func DecodeVolumeConfig(b []byte) (VolumeConfig, error) {
	if len(b) != VolumeConfigLen {
		return VolumeConfig{}, graft.NewCorruptError(graft.CorruptVolumeConfig,
			"want %d bytes, got %d", VolumeConfigLen, len(b))
	}
	return VolumeConfig{Sync: SyncDirection(b[0])}, nil
}

// SnapshotValueLen is the encoded length of a Snapshot value:
// local_lsn:u64 || remote_lsn:u64 || pages:u32 || remote_present:u8.
const SnapshotValueLen = 8 + 8 + 4 + 1

// Snapshot identifies a point-in-time volume state (§3).
type Snapshot struct {
	LocalLSN      graft.LSN
	RemoteLSN     graft.LSN // meaningful only if RemotePresent
	RemotePresent bool
	Pages         uint32
}

// RemoteLSNPtr returns a pointer to RemoteLSN if present, else nil —
// convenient for call sites that model remote_lsn as Option<LSN>.
func (s Snapshot) RemoteLSNPtr() *graft.LSN {
	if !s.RemotePresent {
		return nil
	}
	v := s.RemoteLSN
	return &v
}

func (s Snapshot) Encode() []byte {
	buf := make([]byte, SnapshotValueLen)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(s.LocalLSN))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(s.RemoteLSN))
	binary.LittleEndian.PutUint32(buf[16:20], s.Pages)
	if s.RemotePresent {
		buf[20] = 1
	}
	return buf
}

func DecodeSnapshot(b []byte) (Snapshot, error) {
	if len(b) != SnapshotValueLen {
		return Snapshot{}, graft.NewCorruptError(graft.CorruptSnapshotValue,
			"want %d bytes, got %d", SnapshotValueLen, len(b))
	}
	return Snapshot{
		LocalLSN:      graft.LSN(binary.LittleEndian.Uint64(b[0:8])),
		RemoteLSN:     graft.LSN(binary.LittleEndian.Uint64(b[8:16])),
		Pages:         binary.LittleEndian.Uint32(b[16:20]),
		RemotePresent: b[20] != 0,
	}, nil
}

// WatermarksValueLen is the encoded length of a Watermarks value:
// last_sync:u64 || pending_sync:u64 || flags:u8.
const WatermarksValueLen = 8 + 8 + 1

const (
	flagLastSyncPresent    byte = 1 << 0
	flagPendingSyncPresent byte = 1 << 1
)

// Watermarks tracks push progress for a volume (§3).
type Watermarks struct {
	LastSync           graft.LSN
	LastSyncPresent    bool
	PendingSync        graft.LSN
	PendingSyncPresent bool
}

func (w Watermarks) Encode() []byte {
	buf := make([]byte, WatermarksValueLen)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(w.LastSync))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(w.PendingSync))
	var flags byte
	if w.LastSyncPresent {
		flags |= flagLastSyncPresent
	}
	if w.PendingSyncPresent {
		flags |= flagPendingSyncPresent
	}
	buf[16] = flags
	return buf
}

func DecodeWatermarks(b []byte) (Watermarks, error) {
	if len(b) != WatermarksValueLen {
		return Watermarks{}, graft.NewCorruptError(graft.CorruptVolumeState,
			"watermarks: want %d bytes, got %d", WatermarksValueLen, len(b))
	}
	flags := b[16]
	return Watermarks{
		LastSync:           graft.LSN(binary.LittleEndian.Uint64(b[0:8])),
		LastSyncPresent:    flags&flagLastSyncPresent != 0,
		PendingSync:        graft.LSN(binary.LittleEndian.Uint64(b[8:16])),
		PendingSyncPresent: flags&flagPendingSyncPresent != 0,
	}, nil
}

// HasPendingPush reports whether a push is currently in flight
// (pending_sync > last_sync, §3 LSN invariants).
func (w Watermarks) HasPendingPush() bool {
	if !w.PendingSyncPresent {
		return false
	}
	if !w.LastSyncPresent {
		return true
	}
	return w.PendingSync > w.LastSync
}

// Status enumerates the volume's error/conflict status (§3).
type Status byte

const (
	StatusOk             Status = 0
	StatusConflict       Status = 1
	StatusRejectedCommit Status = 2
)

// StatusValueLen is the encoded length of a Status value.
const StatusValueLen = 1

func (s Status) Encode() []byte { return []byte{byte(s)} }

func DecodeStatus(b []byte) (Status, error) {
	if len(b) != StatusValueLen {
		return 0, graft.NewCorruptError(graft.CorruptVolumeState,
			"status: want %d bytes, got %d", StatusValueLen, len(b))
	}
	return Status(b[0]), nil
}

// pendingMarker is the single sentinel byte stored in the pages
// partition to denote a Pending page (§3, §6). Its value is arbitrary;
// PageValue decoding disambiguates purely by stored length.
const pendingMarker = 0xFF

// EncodePageValue serializes a PageValue the way it is persisted: the
// raw page bytes verbatim for Available, or a single sentinel byte for
// Pending. Empty is never stored; encoding it is a programming error.
func EncodePageValue(v graft.PageValue) []byte {
	switch v.Kind {
	case graft.PageAvailable:
		out := make([]byte, len(v.Data))
		copy(out, v.Data)
		return out
	case graft.PagePending:
		return []byte{pendingMarker}
	default:
		panic("graft: cannot encode an Empty page value")
	}
}

// DecodePageValue parses a persisted page value, disambiguating Available
// vs. Pending purely by length as spec.md §6 requires.
func DecodePageValue(b []byte) (graft.PageValue, error) {
	switch len(b) {
	case graft.PageSize:
		data := make([]byte, graft.PageSize)
		copy(data, b)
		return graft.Available(data), nil
	case 1:
		return graft.Pending(), nil
	default:
		return graft.PageValue{}, graft.NewCorruptError(graft.CorruptPageValue,
			"page value: want %d or 1 bytes, got %d", graft.PageSize, len(b))
	}
}
