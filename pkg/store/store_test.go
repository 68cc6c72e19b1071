package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-kv/graft/pkg/graft"
	"github.com/graft-kv/graft/pkg/offsetset"
	"github.com/graft-kv/graft/pkg/schema"
)

func newTestStore(t *testing.T) *VolumeStore {
	t.Helper()
	s, err := OpenTemporary(t.TempDir(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fillPage(b byte) []byte {
	page := make([]byte, graft.PageSize)
	for i := range page {
		page[i] = b
	}
	return page
}

// S1: fresh volume, two local commits.
func TestS1TwoLocalCommits(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	p1 := fillPage(1)
	snap1, err := s.Commit(vid, nil, Memtable{0: p1})
	require.NoError(t, err)
	assert.Equal(t, schema.Snapshot{LocalLSN: 1, Pages: 1}, snap1)

	p2, p3 := fillPage(2), fillPage(3)
	snap2, err := s.Commit(vid, &snap1, Memtable{0: p2, 1: p3})
	require.NoError(t, err)
	assert.Equal(t, schema.Snapshot{LocalLSN: 2, Pages: 2}, snap2)

	lsn, val, err := s.Read(vid, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, graft.LSN(2), lsn)
	assert.Equal(t, graft.Available(p2), val)

	lsn, val, err = s.Read(vid, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, graft.LSN(1), lsn)
	assert.Equal(t, graft.Available(p1), val)
}

// S2: two concurrent commits built from the same read snapshot — exactly
// one succeeds, the other fails with ConcurrentWrite.
func TestS2OptimisticConcurrencyReject(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	snap1, err := s.Commit(vid, nil, Memtable{0: fillPage(1)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Commit(vid, &snap1, Memtable{graft.PageOffset(i): fillPage(byte(10 + i))})
			results[i] = err
		}(i)
	}
	wg.Wait()

	successes, rejects := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, graft.ErrConcurrentWrite):
			rejects++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejects)
}

// S3: push happy path.
func TestS3PushHappyPath(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	snap1, err := s.Commit(vid, nil, Memtable{0: fillPage(1)})
	require.NoError(t, err)
	snap2, err := s.Commit(vid, &snap1, Memtable{0: fillPage(2), 1: fillPage(3)})
	require.NoError(t, err)

	push, err := s.PrepareSyncToRemote(vid)
	require.NoError(t, err)
	assert.Equal(t, graft.LSN(1), push.StartLSN)
	assert.Equal(t, graft.LSN(2), push.EndLSN)
	require.Len(t, push.Commits, 2)
	assert.Equal(t, graft.LSN(1), push.Commits[0].LSN)
	assert.Equal(t, graft.LSN(2), push.Commits[1].LSN)

	err = s.CompleteSyncToRemote(vid, push.Snapshot, RemoteSnapshot{LSN: 5, Pages: 2}, []graft.LSN{1, 2})
	require.NoError(t, err)

	state, err := s.VolumeState(vid)
	require.NoError(t, err)
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, snap2.LocalLSN, state.Snapshot.LocalLSN)
	assert.True(t, state.Snapshot.RemotePresent)
	assert.Equal(t, graft.LSN(5), state.Snapshot.RemoteLSN)
	assert.True(t, state.Watermarks.LastSyncPresent)
	assert.Equal(t, graft.LSN(2), state.Watermarks.LastSync)
	assert.False(t, state.Watermarks.PendingSyncPresent)
	assert.False(t, state.HasPendingCommits())
}

// S4: a remote commit arriving while local commits are unsent is
// rejected and marks the volume Conflict.
func TestS4RemoteConflict(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	_, err := s.Commit(vid, nil, Memtable{0: fillPage(1)})
	require.NoError(t, err)

	err = s.ReceiveRemoteCommit(vid, RemoteSnapshot{LSN: 7, Pages: 1}, offsetset.FromOffsets([]graft.PageOffset{0}))
	assert.ErrorIs(t, err, graft.ErrRemoteConflict)

	state, err := s.VolumeState(vid)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusConflict, state.Status)
}

// S5: reset to remote after a conflict discards the diverged local
// commit and applies the remote commit at last_sync+1.
func TestS5ResetToRemote(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	_, err := s.Commit(vid, nil, Memtable{0: fillPage(1)})
	require.NoError(t, err)

	err = s.ReceiveRemoteCommit(vid, RemoteSnapshot{LSN: 7, Pages: 1}, offsetset.FromOffsets([]graft.PageOffset{0}))
	require.ErrorIs(t, err, graft.ErrRemoteConflict)

	err = s.ResetVolumeToRemote(vid, RemoteSnapshot{LSN: 7, Pages: 1}, offsetset.FromOffsets([]graft.PageOffset{0}))
	require.NoError(t, err)

	state, err := s.VolumeState(vid)
	require.NoError(t, err)
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, graft.LSN(1), state.Snapshot.LocalLSN)
	assert.True(t, state.Snapshot.RemotePresent)
	assert.Equal(t, graft.LSN(7), state.Snapshot.RemoteLSN)
	assert.Equal(t, uint32(1), state.Snapshot.Pages)
	assert.Equal(t, schema.StatusOk, state.Status)

	// S6: read past a Pending.
	lsn, val, err := s.Read(vid, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, graft.LSN(1), lsn)
	assert.Equal(t, graft.PagePending, val.Kind)

	results, err := s.QueryPages(vid, 1, []graft.PageOffset{0})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Value)
	assert.Equal(t, graft.PagePending, results[0].Value.Kind)
}

func TestReadEmptyVolumeIsEmpty(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	lsn, val, err := s.Read(vid, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, graft.LSN(5), lsn)
	assert.Equal(t, graft.PageEmpty, val.Kind)
}

func TestRollbackSyncRestoresPendingSync(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	_, err := s.Commit(vid, nil, Memtable{0: fillPage(1)})
	require.NoError(t, err)

	_, err = s.PrepareSyncToRemote(vid)
	require.NoError(t, err)

	err = s.RollbackSyncToRemote(vid, true)
	require.NoError(t, err)

	state, err := s.VolumeState(vid)
	require.NoError(t, err)
	assert.False(t, state.Watermarks.PendingSyncPresent)
	assert.Equal(t, schema.StatusRejectedCommit, state.Status)
	assert.True(t, state.HasPendingCommits())
}

func TestNeedsRecoveryBlocksRemoteApply(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	_, err := s.Commit(vid, nil, Memtable{0: fillPage(1)})
	require.NoError(t, err)
	_, err = s.PrepareSyncToRemote(vid)
	require.NoError(t, err)
	err = s.RollbackSyncToRemote(vid, true) // status=RejectedCommit, pending_sync rolled back to last_sync(absent)

	require.NoError(t, err)

	// pending_sync absent now equals last_sync (also absent), so
	// NeedsRecovery is false; force the needs-recovery condition instead
	// by preparing again without rolling back.
	_, err = s.PrepareSyncToRemote(vid)
	require.NoError(t, err)

	err = s.ReceiveRemoteCommit(vid, RemoteSnapshot{LSN: 1, Pages: 1}, offsetset.New())
	assert.ErrorIs(t, err, graft.ErrVolumeNeedsRecovery)
}

func TestWriteTxnReadYourWrites(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	wtx, err := s.NewWriteTxn(vid)
	require.NoError(t, err)

	page := fillPage(42)
	wtx.Write(0, page)

	val, err := wtx.Read(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, graft.Available(page), val)

	rtx, err := wtx.Commit()
	require.NoError(t, err)
	require.NotNil(t, rtx.Snapshot())
	assert.Equal(t, graft.LSN(1), rtx.Snapshot().LocalLSN)

	val, err = rtx.Read(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, graft.Available(page), val)
}

func TestWriteTxnEmptyCommitStillAdvancesLSN(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	wtx, err := s.NewWriteTxn(vid)
	require.NoError(t, err)
	rtx, err := wtx.Commit()
	require.NoError(t, err)
	assert.Equal(t, graft.LSN(1), rtx.Snapshot().LocalLSN)
}

func TestChangeNotifierFiresOnCommitAndRemoteApply(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()

	localCh := s.Notifier().SubscribeLocal(vid)
	remoteCh := s.Notifier().SubscribeRemote(vid)

	// The remote commit goes first: once a local commit is unsent, a
	// remote apply is rejected with ErrRemoteConflict (see S4).
	err := s.ReceiveRemoteCommit(vid, RemoteSnapshot{LSN: 1, Pages: 1}, offsetset.New())
	require.NoError(t, err)
	assert.Equal(t, vid, <-remoteCh)

	snap, err := s.Snapshot(vid)
	require.NoError(t, err)
	_, err = s.Commit(vid, snap, Memtable{0: fillPage(1)})
	require.NoError(t, err)
	assert.Equal(t, vid, <-localCh)
}

func TestQueryVolumesFiltersBySyncDirection(t *testing.T) {
	s := newTestStore(t)
	vidPush := graft.NewVolumeId()
	vidDisabled := graft.NewVolumeId()

	require.NoError(t, s.SetVolumeConfig(vidPush, schema.VolumeConfig{Sync: schema.SyncPush}))
	require.NoError(t, s.SetVolumeConfig(vidDisabled, schema.VolumeConfig{Sync: schema.SyncDisabled}))

	states, err := s.QueryVolumes(schema.SyncBoth, nil)
	require.NoError(t, err)

	var found []graft.VolumeId
	for _, st := range states {
		found = append(found, st.Vid)
	}
	assert.Contains(t, found, vidPush)
	assert.NotContains(t, found, vidDisabled)
}

func TestCollectVolumeSummariesIncludesEveryVolume(t *testing.T) {
	s := newTestStore(t)
	vid := graft.NewVolumeId()
	require.NoError(t, s.SetVolumeConfig(vid, schema.VolumeConfig{Sync: schema.SyncDisabled}))

	summaries, err := s.CollectVolumeSummaries()
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.Equal(t, "ok", summaries[0].Status)
}
