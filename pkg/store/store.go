// Package store implements the volume store: the component that owns a
// KV substrate handle and turns it into the local commit path, remote
// apply path, sync coordinator, read path, and transaction façade
// described across the core design. One VolumeStore owns exactly one
// substrate and one commit mutex, shared by every volume it knows about.
package store

import (
	"fmt"
	"sync"

	"github.com/graft-kv/graft/internal/kv"
	"github.com/graft-kv/graft/pkg/graft"
	"github.com/graft-kv/graft/pkg/log"
	"github.com/graft-kv/graft/pkg/metrics"
	"github.com/graft-kv/graft/pkg/notify"
	"github.com/graft-kv/graft/pkg/schema"
)

// Options configures a VolumeStore at construction time.
type Options struct {
	// Fetcher resolves Pending pages against the remote pagestore. Read
	// returns Pending without consulting it if nil.
	Fetcher graft.Fetcher

	// EnablePrefetch schedules a best-effort background fetch of
	// sibling Pending offsets whenever Read resolves a Pending page.
	// Off unless set to true; has no effect if Fetcher is nil.
	EnablePrefetch bool

	// PrefetchWorkers bounds the background prefetch worker pool.
	// Defaults to 4 if zero.
	PrefetchWorkers int

	// PrefetchWindow bounds how many sibling offsets a single Pending
	// read schedules a prefetch for. Defaults to 8 if zero.
	PrefetchWindow int
}

func (o Options) withDefaults() Options {
	if o.PrefetchWorkers <= 0 {
		o.PrefetchWorkers = 4
	}
	if o.PrefetchWindow <= 0 {
		o.PrefetchWindow = 8
	}
	return o
}

// VolumeStore is the process-local volume store: KV substrate + commit
// serialization + change notification, per volume.
type VolumeStore struct {
	substrate kv.Substrate
	notifier  *notify.Notifier
	opts      Options

	// commitMu serializes every read-then-write transaction (local
	// commit, remote apply, sync prepare/complete/rollback, reset)
	// across every volume. One mutex for the whole store, not one per
	// volume: commit throughput is dominated by substrate I/O, not lock
	// contention, and a single mutex eliminates deadlock analysis
	// between volumes.
	commitMu sync.Mutex

	prefetch *prefetcher
}

// Open opens (creating if absent) a volume store backed by a bbolt
// database at path.
func Open(path string, opts Options) (*VolumeStore, error) {
	sub, err := kv.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graft: open store: %w", err)
	}
	return newStore(sub, opts)
}

// OpenTemporary opens a volume store in a fresh temporary directory, for
// tests and ephemeral stores.
func OpenTemporary(dir string, opts Options) (*VolumeStore, error) {
	sub, err := kv.OpenTemporary(dir)
	if err != nil {
		return nil, fmt.Errorf("graft: open temporary store: %w", err)
	}
	return newStore(sub, opts)
}

func newStore(sub kv.Substrate, opts Options) (*VolumeStore, error) {
	opts = opts.withDefaults()
	s := &VolumeStore{
		substrate: sub,
		notifier:  notify.New(),
		opts:      opts,
	}
	if opts.Fetcher != nil && opts.EnablePrefetch {
		s.prefetch = newPrefetcher(s, opts.Fetcher, opts.PrefetchWorkers)
	}
	metrics.RegisterComponent("substrate", true, "open")
	if err := s.scanRecovery(); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the store's resources, including its prefetch worker
// pool if one is running.
func (s *VolumeStore) Close() error {
	if s.prefetch != nil {
		s.prefetch.stop()
	}
	return s.substrate.Close()
}

// Notifier exposes the store's change notifier for subscribers.
func (s *VolumeStore) Notifier() *notify.Notifier { return s.notifier }

// VolumeState is the full per-volume state exposed to callers (§6
// "volume_state").
type VolumeState struct {
	Vid        graft.VolumeId
	Config     schema.VolumeConfig
	Snapshot   *schema.Snapshot // nil if the volume has never committed
	Watermarks schema.Watermarks
	Status     schema.Status
}

// HasPendingCommits reports whether local commits exist above last_sync
// (§3 LSN invariants).
func (vs VolumeState) HasPendingCommits() bool {
	if vs.Snapshot == nil {
		return false
	}
	if !vs.Watermarks.LastSyncPresent {
		return vs.Snapshot.LocalLSN > 0
	}
	return vs.Snapshot.LocalLSN > vs.Watermarks.LastSync
}

// NeedsRecovery reports whether a prior push neither completed nor
// rolled back (§3 LSN invariants, §9 Recovery).
func (vs VolumeState) NeedsRecovery() bool {
	return vs.Watermarks.HasPendingPush() && vs.Status != schema.StatusOk
}

// SetVolumeConfig sets (creating or overwriting) vid's sync
// configuration.
func (s *VolumeStore) SetVolumeConfig(vid graft.VolumeId, cfg schema.VolumeConfig) error {
	err := s.substrate.Update(func(w kv.Writer) error {
		w.Put(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagConfig}.Encode(), cfg.Encode())
		return nil
	})
	return graft.WrapSubstrateErr("set volume config", err)
}

// VolumeState returns the full state record for vid. A volume that has
// never been configured or committed to returns a zero-value
// VolumeState with a default (SyncDisabled) config.
func (s *VolumeStore) VolumeState(vid graft.VolumeId) (VolumeState, error) {
	var out VolumeState
	out.Vid = vid
	err := s.substrate.View(func(r kv.Reader) error {
		var err error
		out.Config, out.Snapshot, out.Watermarks, out.Status, err = readVolumeState(r, vid)
		return err
	})
	if err != nil {
		return VolumeState{}, err
	}
	return out, nil
}

// Snapshot returns vid's current snapshot, or nil if it has never
// committed.
func (s *VolumeStore) Snapshot(vid graft.VolumeId) (*schema.Snapshot, error) {
	var snap *schema.Snapshot
	err := s.substrate.View(func(r kv.Reader) error {
		var err error
		snap, err = readSnapshot(r, vid)
		return err
	})
	return snap, err
}

// readVolumeState loads every tagged state record for vid within an
// already-open reader. Missing records decode to their zero value
// (SyncDisabled config, nil snapshot, empty watermarks, StatusOk).
func readVolumeState(r kv.Reader, vid graft.VolumeId) (schema.VolumeConfig, *schema.Snapshot, schema.Watermarks, schema.Status, error) {
	cfg, err := readConfig(r, vid)
	if err != nil {
		return schema.VolumeConfig{}, nil, schema.Watermarks{}, 0, err
	}
	snap, err := readSnapshot(r, vid)
	if err != nil {
		return schema.VolumeConfig{}, nil, schema.Watermarks{}, 0, err
	}
	wm, err := readWatermarks(r, vid)
	if err != nil {
		return schema.VolumeConfig{}, nil, schema.Watermarks{}, 0, err
	}
	status, err := readStatus(r, vid)
	if err != nil {
		return schema.VolumeConfig{}, nil, schema.Watermarks{}, 0, err
	}
	return cfg, snap, wm, status, nil
}

func readConfig(r kv.Reader, vid graft.VolumeId) (schema.VolumeConfig, error) {
	b, ok, err := r.Get(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagConfig}.Encode())
	if err != nil {
		return schema.VolumeConfig{}, graft.WrapSubstrateErr("read volume config", err)
	}
	if !ok {
		return schema.VolumeConfig{Sync: schema.SyncDisabled}, nil
	}
	return schema.DecodeVolumeConfig(b)
}

func readSnapshot(r kv.Reader, vid graft.VolumeId) (*schema.Snapshot, error) {
	b, ok, err := r.Get(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagSnapshot}.Encode())
	if err != nil {
		return nil, graft.WrapSubstrateErr("read snapshot", err)
	}
	if !ok {
		return nil, nil
	}
	snap, err := schema.DecodeSnapshot(b)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func readWatermarks(r kv.Reader, vid graft.VolumeId) (schema.Watermarks, error) {
	b, ok, err := r.Get(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagWatermarks}.Encode())
	if err != nil {
		return schema.Watermarks{}, graft.WrapSubstrateErr("read watermarks", err)
	}
	if !ok {
		return schema.Watermarks{}, nil
	}
	return schema.DecodeWatermarks(b)
}

func readStatus(r kv.Reader, vid graft.VolumeId) (schema.Status, error) {
	b, ok, err := r.Get(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagStatus}.Encode())
	if err != nil {
		return 0, graft.WrapSubstrateErr("read status", err)
	}
	if !ok {
		return schema.StatusOk, nil
	}
	return schema.DecodeStatus(b)
}

func putStatus(w kv.Writer, vid graft.VolumeId, status schema.Status) {
	if status == schema.StatusOk {
		w.Delete(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagStatus}.Encode())
		return
	}
	w.Put(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagStatus}.Encode(), status.Encode())
}

func putSnapshot(w kv.Writer, vid graft.VolumeId, snap schema.Snapshot) {
	w.Put(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagSnapshot}.Encode(), snap.Encode())
}

func deleteSnapshot(w kv.Writer, vid graft.VolumeId) {
	w.Delete(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagSnapshot}.Encode())
}

func putWatermarks(w kv.Writer, vid graft.VolumeId, wm schema.Watermarks) {
	w.Put(kv.PartitionVolumeState, schema.VolumeStateKey{Vid: vid, Tag: schema.TagWatermarks}.Encode(), wm.Encode())
}

// storeLog is the component logger shared by every file in this
// package.
var storeLog = log.WithComponent("store")
