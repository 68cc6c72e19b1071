package store

import (
	"github.com/graft-kv/graft/internal/kv"
	"github.com/graft-kv/graft/pkg/graft"
	"github.com/graft-kv/graft/pkg/metrics"
	"github.com/graft-kv/graft/pkg/offsetset"
	"github.com/graft-kv/graft/pkg/schema"
)

// Memtable is an in-memory buffer of offset -> page pending commit.
type Memtable map[graft.PageOffset][]byte

// maxOffset returns the largest offset in the memtable and true, or
// (0, false) if it is empty.
func (m Memtable) maxOffset() (graft.PageOffset, bool) {
	var max graft.PageOffset
	found := false
	for o := range m {
		if !found || o > max {
			max = o
			found = true
		}
	}
	return max, found
}

// Commit applies a local commit: the memtable's pages become the next
// LSN for vid, contingent on readSnap still being the volume's current
// snapshot at apply time (optimistic concurrency, §4.3).
//
// readSnap is nil for a volume's first-ever commit.
func (s *VolumeStore) Commit(vid graft.VolumeId, readSnap *schema.Snapshot, memtable Memtable) (schema.Snapshot, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.LocalCommitDuration)

	commitLSN := graft.FirstLSN
	var remoteLSN graft.LSN
	var remotePresent bool
	prevPages := uint32(0)
	if readSnap != nil {
		commitLSN = readSnap.LocalLSN.Next()
		remoteLSN = readSnap.RemoteLSN
		remotePresent = readSnap.RemotePresent
		prevPages = readSnap.Pages
	}

	pages := prevPages
	if maxOff, ok := memtable.maxOffset(); ok && maxOff.PageCount() > pages {
		pages = maxOff.PageCount()
	}

	newSnapshot := schema.Snapshot{
		LocalLSN:      commitLSN,
		RemoteLSN:     remoteLSN,
		RemotePresent: remotePresent,
		Pages:         pages,
	}

	touched := offsetset.New()
	for offset := range memtable {
		touched.Add(offset)
	}
	commitValue, err := touched.Serialize()
	if err != nil {
		return schema.Snapshot{}, err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	var current *schema.Snapshot
	err = s.substrate.View(func(r kv.Reader) error {
		var err error
		current, err = readSnapshot(r, vid)
		return err
	})
	if err != nil {
		return schema.Snapshot{}, err
	}
	if !snapshotsMatch(readSnap, current) {
		metrics.LocalCommitConflictsTotal.Inc()
		return schema.Snapshot{}, graft.ErrConcurrentWrite
	}

	err = s.substrate.Update(func(w kv.Writer) error {
		for offset, page := range memtable {
			pageKey := schema.PageKey{Vid: vid, Offset: offset, LSN: commitLSN}.Encode()
			w.Put(kv.PartitionPages, pageKey, pageValueBytes(page))
		}
		putSnapshot(w, vid, newSnapshot)
		commitKey := schema.CommitKey{Vid: vid, LSN: commitLSN}.Encode()
		w.Put(kv.PartitionCommits, commitKey, commitValue)
		return nil
	})
	if err != nil {
		return schema.Snapshot{}, graft.WrapSubstrateErr("apply local commit", err)
	}

	metrics.LocalCommitsTotal.Inc()
	s.notifier.PublishLocal(vid)
	storeLog.Debug().Str("volume_id", vid.String()).Uint64("lsn", uint64(commitLSN)).Msg("local commit applied")

	return newSnapshot, nil
}

// snapshotsMatch reports whether a and b represent the same local LSN
// (both nil, or both non-nil with equal LocalLSN) — the optimistic-
// concurrency check in §4.3 step 5.
func snapshotsMatch(a, b *schema.Snapshot) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.LocalLSN == b.LocalLSN
}

// pageValueBytes serializes a raw page buffer as an Available PageValue.
func pageValueBytes(page []byte) []byte {
	return schema.EncodePageValue(graft.Available(page))
}
