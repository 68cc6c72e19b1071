package store

import (
	"fmt"

	"github.com/graft-kv/graft/internal/kv"
	"github.com/graft-kv/graft/pkg/graft"
	"github.com/graft-kv/graft/pkg/metrics"
	"github.com/graft-kv/graft/pkg/offsetset"
	"github.com/graft-kv/graft/pkg/schema"
)

// PendingPush describes a prepared push: the snapshot it was prepared
// from, the inclusive LSN range to ship, and the commits themselves in
// ascending LSN order. The caller (an external sync task) ships these to
// the metastore, then calls CompleteSyncToRemote or RollbackSyncToRemote.
type PendingPush struct {
	Snapshot schema.Snapshot
	StartLSN graft.LSN
	EndLSN   graft.LSN
	Commits  []PreparedCommit
}

// PreparedCommit is one commit record included in a push.
type PreparedCommit struct {
	LSN     graft.LSN
	Offsets offsetset.Set
}

// PrepareSyncToRemote selects the LSN range strictly above last_sync up
// to the current local LSN, advances pending_sync to local_lsn, and
// returns the prepared commit list (§4.5 "Push").
func (s *VolumeStore) PrepareSyncToRemote(vid graft.VolumeId) (PendingPush, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	var current *schema.Snapshot
	var wm schema.Watermarks
	var status schema.Status
	err := s.substrate.View(func(r kv.Reader) error {
		var err error
		_, current, wm, status, err = readVolumeState(r, vid)
		return err
	})
	if err != nil {
		return PendingPush{}, err
	}

	state := VolumeState{Vid: vid, Snapshot: current, Watermarks: wm, Status: status}
	if state.NeedsRecovery() {
		return PendingPush{}, graft.ErrVolumeNeedsRecovery
	}
	if !state.HasPendingCommits() {
		panic("graft: prepare_sync_to_remote called with no pending commits")
	}

	start := graft.FirstLSN
	if wm.LastSyncPresent {
		start = wm.LastSync.Next()
	}
	end := current.LocalLSN

	commits, err := s.loadCommitRange(vid, start, end)
	if err != nil {
		return PendingPush{}, err
	}

	newWatermarks := wm
	newWatermarks.PendingSync = end
	newWatermarks.PendingSyncPresent = true
	err = s.substrate.Update(func(w kv.Writer) error {
		putWatermarks(w, vid, newWatermarks)
		return nil
	})
	if err != nil {
		return PendingPush{}, graft.WrapSubstrateErr("persist pending_sync", err)
	}

	return PendingPush{Snapshot: *current, StartLSN: start, EndLSN: end, Commits: commits}, nil
}

// loadCommitRange scans the commits partition over [start, end] and
// asserts contiguity: each commit's LSN must equal its predecessor's + 1.
// A gap is an unrecoverable on-disk-corruption or code-bug signal (§9
// "Commit iterator contiguity") and aborts the process.
func (s *VolumeStore) loadCommitRange(vid graft.VolumeId, start, end graft.LSN) ([]PreparedCommit, error) {
	startKey := schema.CommitKey{Vid: vid, LSN: start}.Encode()
	endKey := schema.CommitKey{Vid: vid, LSN: end}.Encode()

	var rows []kv.KV
	err := s.substrate.View(func(r kv.Reader) error {
		var err error
		rows, err = r.ScanRange(kv.PartitionCommits, startKey, endKey)
		return err
	})
	if err != nil {
		return nil, graft.WrapSubstrateErr("scan commit range", err)
	}

	out := make([]PreparedCommit, 0, len(rows))
	expected := start
	for _, row := range rows {
		key, err := schema.DecodeCommitKey(row.Key)
		if err != nil {
			return nil, err
		}
		if key.LSN != expected {
			panic(fmt.Sprintf("graft: commit range contiguity violation for volume %s: expected lsn %d, found %d", vid, expected, key.LSN))
		}
		offsets, err := offsetset.Deserialize(row.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, PreparedCommit{LSN: key.LSN, Offsets: offsets})
		expected = expected.Next()
	}
	if graft.LSN(len(out)) != end-start+1 {
		panic(fmt.Sprintf("graft: commit range contiguity violation for volume %s: expected %d commits in [%d,%d], found %d", vid, end-start+1, start, end, len(out)))
	}
	return out, nil
}

// LoadCommitRangeForInspection exposes the commit-range loader used by
// push preparation to read-only inspection tools. It takes no lock:
// callers must tolerate racing with concurrent commits since it is meant
// for debugging, not for driving a push.
func (s *VolumeStore) LoadCommitRangeForInspection(vid graft.VolumeId, start, end graft.LSN) ([]PreparedCommit, error) {
	return s.loadCommitRange(vid, start, end)
}

// CompleteSyncToRemote finishes a push that the metastore accepted:
// the snapshot's remote LSN advances, pending_sync becomes last_sync,
// and every synced commit record is removed (§4.5).
func (s *VolumeStore) CompleteSyncToRemote(vid graft.VolumeId, syncStart schema.Snapshot, remote RemoteSnapshot, syncedLSNs []graft.LSN) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	var current *schema.Snapshot
	var wm schema.Watermarks
	err := s.substrate.View(func(r kv.Reader) error {
		var err error
		_, current, wm, _, err = readVolumeState(r, vid)
		return err
	})
	if err != nil {
		return err
	}
	if current == nil {
		panic("graft: complete_sync_to_remote called on a volume with no snapshot")
	}
	if current.RemotePresent && remote.LSN <= current.RemoteLSN {
		panic(fmt.Sprintf("graft: remote lsn must be strictly monotonic: current=%d, new=%d", current.RemoteLSN, remote.LSN))
	}
	if !wm.PendingSyncPresent || wm.PendingSync != syncStart.LocalLSN {
		panic(fmt.Sprintf("graft: pending_sync mismatch on complete: watermark=%v, sync_start=%d", wm.PendingSync, syncStart.LocalLSN))
	}

	newSnapshot := *current
	newSnapshot.RemoteLSN = remote.LSN
	newSnapshot.RemotePresent = true

	newWatermarks := schema.Watermarks{
		LastSync:        wm.PendingSync,
		LastSyncPresent: true,
	}

	err = s.substrate.Update(func(w kv.Writer) error {
		putSnapshot(w, vid, newSnapshot)
		putWatermarks(w, vid, newWatermarks)
		for _, lsn := range syncedLSNs {
			w.Delete(kv.PartitionCommits, schema.CommitKey{Vid: vid, LSN: lsn}.Encode())
		}
		return nil
	})
	if err != nil {
		return graft.WrapSubstrateErr("complete sync", err)
	}

	metrics.SyncPushesTotal.Inc()
	storeLog.Info().Str("volume_id", vid.String()).Uint64("remote_lsn", uint64(remote.LSN)).Msg("sync push completed")
	return nil
}

// RollbackSyncToRemote undoes a prepared-but-unshipped push: pending_sync
// reverts to last_sync. If rejected is true (the metastore rejected the
// commit), status becomes RejectedCommit; otherwise status is untouched
// (§4.5).
func (s *VolumeStore) RollbackSyncToRemote(vid graft.VolumeId, rejected bool) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	var wm schema.Watermarks
	err := s.substrate.View(func(r kv.Reader) error {
		var err error
		wm, err = readWatermarks(r, vid)
		return err
	})
	if err != nil {
		return err
	}

	newWatermarks := wm
	newWatermarks.PendingSync = wm.LastSync
	newWatermarks.PendingSyncPresent = wm.LastSyncPresent

	err = s.substrate.Update(func(w kv.Writer) error {
		putWatermarks(w, vid, newWatermarks)
		if rejected {
			putStatus(w, vid, schema.StatusRejectedCommit)
		}
		return nil
	})
	if err != nil {
		return graft.WrapSubstrateErr("rollback sync", err)
	}

	metrics.SyncRollbacksTotal.Inc()
	storeLog.Info().Str("volume_id", vid.String()).Bool("rejected", rejected).Msg("sync push rolled back")
	return nil
}

// ResetVolumeToRemote discards local commits above last_sync before
// applying a fresh remote commit (§4.5 "Reset"). This is how a caller
// recovers from RemoteConflict or VolumeNeedsRecovery.
func (s *VolumeStore) ResetVolumeToRemote(vid graft.VolumeId, remote RemoteSnapshot, changedOffsets offsetset.Set) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	var current *schema.Snapshot
	var wm schema.Watermarks
	err := s.substrate.View(func(r kv.Reader) error {
		var err error
		_, current, wm, _, err = readVolumeState(r, vid)
		return err
	})
	if err != nil {
		return err
	}

	var targetLSN graft.LSN
	targetPresent := wm.LastSyncPresent
	if targetPresent {
		targetLSN = wm.LastSync
	}
	localPresent := current != nil
	var localLSN graft.LSN
	if localPresent {
		localLSN = current.LocalLSN
	}

	if targetPresent == localPresent && targetLSN == localLSN {
		// No divergence: this is just a remote apply.
		return s.applyRemoteCommit(vid, current, remote, changedOffsets)
	}
	if targetPresent && !(targetLSN < localLSN) {
		panic("graft: reset_volume_to_remote: target_lsn must be < local_lsn when diverged")
	}

	err = s.substrate.Update(func(w kv.Writer) error {
		if targetPresent {
			w.Put(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagSnapshot}.Encode(),
				schema.Snapshot{LocalLSN: targetLSN, RemoteLSN: current.RemoteLSN, RemotePresent: current.RemotePresent, Pages: current.Pages}.Encode())
		} else {
			deleteSnapshot(w, vid)
		}
		putStatus(w, vid, schema.StatusOk)
		rolledBack := wm
		rolledBack.PendingSync = wm.LastSync
		rolledBack.PendingSyncPresent = wm.LastSyncPresent
		putWatermarks(w, vid, rolledBack)
		return s.discardCommitsAbove(w, vid, targetLSN, targetPresent, localLSN)
	})
	if err != nil {
		return graft.WrapSubstrateErr("discard diverged commits", err)
	}

	metrics.SyncResetsTotal.Inc()

	var rewound *schema.Snapshot
	if targetPresent {
		rewoundSnap := schema.Snapshot{LocalLSN: targetLSN}
		rewound = &rewoundSnap
	}
	storeLog.Warn().Str("volume_id", vid.String()).Msg("volume reset to remote")
	return s.applyRemoteCommit(vid, rewound, remote, changedOffsets)
}

// discardCommitsAbove removes every commit (and the pages it touched)
// strictly above targetLSN, up to and including localLSN. Must run
// inside the same Update batch as the rest of the reset.
func (s *VolumeStore) discardCommitsAbove(w kv.Writer, vid graft.VolumeId, targetLSN graft.LSN, targetPresent bool, localLSN graft.LSN) error {
	from := graft.FirstLSN
	if targetPresent {
		from = targetLSN.Next()
	}
	if from > localLSN {
		return nil
	}
	startKey := schema.CommitKey{Vid: vid, LSN: from}.Encode()
	endKey := schema.CommitKey{Vid: vid, LSN: localLSN}.Encode()
	rows, err := w.ScanRange(kv.PartitionCommits, startKey, endKey)
	if err != nil {
		return err
	}
	for _, row := range rows {
		key, err := schema.DecodeCommitKey(row.Key)
		if err != nil {
			return err
		}
		offsets, err := offsetset.Deserialize(row.Value)
		if err != nil {
			return err
		}
		for _, offset := range offsets.Offsets() {
			w.Delete(kv.PartitionPages, schema.PageKey{Vid: vid, Offset: offset, LSN: key.LSN}.Encode())
		}
		w.Delete(kv.PartitionCommits, row.Key)
	}
	return nil
}
