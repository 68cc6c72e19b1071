package store

import (
	"github.com/graft-kv/graft/internal/kv"
	"github.com/graft-kv/graft/pkg/graft"
	"github.com/graft-kv/graft/pkg/metrics"
	"github.com/graft-kv/graft/pkg/offsetset"
	"github.com/graft-kv/graft/pkg/schema"
)

// RemoteSnapshot describes a commit as reported by the remote
// metastore: its remote LSN and total page count (§6).
type RemoteSnapshot struct {
	LSN   graft.LSN
	Pages uint32
}

// ReceiveRemoteCommit applies a commit pulled from the metastore (§4.4).
// changedOffsets marks every offset the remote commit touched; each is
// recorded locally as Pending until fetched.
func (s *VolumeStore) ReceiveRemoteCommit(vid graft.VolumeId, remote RemoteSnapshot, changedOffsets offsetset.Set) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	var cfg schema.VolumeConfig
	var current *schema.Snapshot
	var wm schema.Watermarks
	var status schema.Status
	err := s.substrate.View(func(r kv.Reader) error {
		var err error
		cfg, current, wm, status, err = readVolumeState(r, vid)
		return err
	})
	if err != nil {
		return err
	}

	state := VolumeState{Vid: vid, Config: cfg, Snapshot: current, Watermarks: wm, Status: status}
	if state.NeedsRecovery() {
		return graft.ErrVolumeNeedsRecovery
	}
	if state.HasPendingCommits() {
		if setErr := s.substrate.Update(func(w kv.Writer) error {
			putStatus(w, vid, schema.StatusConflict)
			return nil
		}); setErr != nil {
			return graft.WrapSubstrateErr("record remote conflict status", setErr)
		}
		metrics.RemoteConflictsTotal.Inc()
		return graft.ErrRemoteConflict
	}

	return s.applyRemoteCommit(vid, current, remote, changedOffsets)
}

// applyRemoteCommit builds and applies the remote-apply batch described
// in §4.4 steps 4-6. Callers must already hold commitMu. The new
// watermarks are set to (last_sync=pending_sync=local_lsn) unconditionally
// — this is what prevents the pulled commit from ever being pushed back.
func (s *VolumeStore) applyRemoteCommit(vid graft.VolumeId, current *schema.Snapshot, remote RemoteSnapshot, changedOffsets offsetset.Set) error {
	localLSN := graft.FirstLSN
	if current != nil {
		localLSN = current.LocalLSN.Next()
	}

	newSnapshot := schema.Snapshot{
		LocalLSN:      localLSN,
		RemoteLSN:     remote.LSN,
		RemotePresent: true,
		Pages:         remote.Pages,
	}
	newWatermarks := schema.Watermarks{
		LastSync:           localLSN,
		LastSyncPresent:    true,
		PendingSync:        localLSN,
		PendingSyncPresent: true,
	}

	err := s.substrate.Update(func(w kv.Writer) error {
		putSnapshot(w, vid, newSnapshot)
		putWatermarks(w, vid, newWatermarks)
		for _, offset := range changedOffsets.Offsets() {
			pageKey := schema.PageKey{Vid: vid, Offset: offset, LSN: localLSN}.Encode()
			w.Put(kv.PartitionPages, pageKey, schema.EncodePageValue(graft.Pending()))
		}
		return nil
	})
	if err != nil {
		return graft.WrapSubstrateErr("apply remote commit", err)
	}

	metrics.RemoteCommitsTotal.Inc()
	s.notifier.PublishRemote(vid)
	storeLog.Debug().Str("volume_id", vid.String()).Uint64("lsn", uint64(localLSN)).Msg("remote commit applied")
	return nil
}
