package store

import (
	"context"

	"github.com/graft-kv/graft/pkg/graft"
	"github.com/graft-kv/graft/pkg/schema"
)

// ReadTxn is a read-only transaction pinned to a snapshot. Reads made
// through it always observe that snapshot, never a later commit.
type ReadTxn struct {
	store    *VolumeStore
	vid      graft.VolumeId
	snapshot *schema.Snapshot // nil if the volume has never committed
}

// NewReadTxn opens a read transaction for vid pinned to its current
// snapshot.
func (s *VolumeStore) NewReadTxn(vid graft.VolumeId) (*ReadTxn, error) {
	snap, err := s.Snapshot(vid)
	if err != nil {
		return nil, err
	}
	return &ReadTxn{store: s, vid: vid, snapshot: snap}, nil
}

// Snapshot returns the snapshot this transaction is pinned to, or nil
// for a volume that has never committed.
func (t *ReadTxn) Snapshot() *schema.Snapshot { return t.snapshot }

// Read resolves offset against this transaction's pinned snapshot. A
// volume with no snapshot reads as an all-zero page everywhere (§4.8).
func (t *ReadTxn) Read(ctx context.Context, offset graft.PageOffset) (graft.PageValue, error) {
	if t.snapshot == nil {
		return graft.Available(graft.ZeroPage()), nil
	}
	_, value, err := t.store.Read(t.vid, t.snapshot.LocalLSN, offset)
	if err != nil {
		return graft.PageValue{}, err
	}
	if value.Kind == graft.PageEmpty {
		return graft.Available(graft.ZeroPage()), nil
	}
	if value.Kind == graft.PagePending && t.store.opts.Fetcher != nil {
		return t.fetchPending(ctx, offset)
	}
	return value, nil
}

// fetchPending resolves a single Pending page by calling out to the
// configured Fetcher (§6 "Remote pagestore client").
func (t *ReadTxn) fetchPending(ctx context.Context, offset graft.PageOffset) (graft.PageValue, error) {
	fetched, err := t.store.opts.Fetcher.FetchPages(ctx, t.vid, t.snapshot.RemoteLSN, []graft.PageOffset{offset})
	if err != nil {
		return graft.Pending(), err
	}
	for _, f := range fetched {
		if f.Offset == offset {
			return graft.Available(f.Data), nil
		}
	}
	return graft.Pending(), nil
}

// WriteTxn is a ReadTxn plus an in-memory memtable: writes land in the
// memtable until Commit, and reads check the memtable first so a
// transaction always observes its own uncommitted writes
// (read-your-writes, §4.8).
type WriteTxn struct {
	*ReadTxn
	memtable Memtable
}

// NewWriteTxn opens a write transaction for vid pinned to its current
// snapshot, with an empty memtable.
func (s *VolumeStore) NewWriteTxn(vid graft.VolumeId) (*WriteTxn, error) {
	rt, err := s.NewReadTxn(vid)
	if err != nil {
		return nil, err
	}
	return &WriteTxn{ReadTxn: rt, memtable: make(Memtable)}, nil
}

// Read returns the memtable's value for offset if this transaction has
// already written it; otherwise it falls through to ReadTxn.Read.
func (t *WriteTxn) Read(ctx context.Context, offset graft.PageOffset) (graft.PageValue, error) {
	if page, ok := t.memtable[offset]; ok {
		return graft.Available(page), nil
	}
	return t.ReadTxn.Read(ctx, offset)
}

// Write stages a page write in the transaction's memtable. page must be
// exactly graft.PageSize bytes.
func (t *WriteTxn) Write(offset graft.PageOffset, page []byte) {
	buf := make([]byte, graft.PageSize)
	copy(buf, page)
	t.memtable[offset] = buf
}

// Commit applies this transaction's memtable via the local commit path
// (§4.3) and returns a fresh ReadTxn pinned to the resulting snapshot.
// An empty memtable is legal: the commit still advances the LSN.
func (t *WriteTxn) Commit() (*ReadTxn, error) {
	snap, err := t.store.Commit(t.vid, t.snapshot, t.memtable)
	if err != nil {
		return nil, err
	}
	return &ReadTxn{store: t.store, vid: t.vid, snapshot: &snap}, nil
}
