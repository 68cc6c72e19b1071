package store

import (
	"github.com/graft-kv/graft/internal/kv"
	"github.com/graft-kv/graft/pkg/graft"
	"github.com/graft-kv/graft/pkg/metrics"
	"github.com/graft-kv/graft/pkg/schema"
)

// Read returns the most recent page value at or below targetLSN for
// (vid, offset): Available if a page was written, Pending if only a
// remote marker exists, or Empty if the offset has never been written
// (§4.6). A Pending result schedules a best-effort background prefetch
// of nearby Pending siblings when the store has a Fetcher configured.
func (s *VolumeStore) Read(vid graft.VolumeId, targetLSN graft.LSN, offset graft.PageOffset) (graft.LSN, graft.PageValue, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReadDuration)

	start := schema.PageKey{Vid: vid, Offset: offset, LSN: graft.FirstLSN}.Encode()
	end := schema.PageKey{Vid: vid, Offset: offset, LSN: targetLSN}.Encode()

	var found kv.KV
	var ok bool
	err := s.substrate.View(func(r kv.Reader) error {
		var err error
		found, ok, err = r.SeekLast(kv.PartitionPages, start, end)
		return err
	})
	if err != nil {
		return 0, graft.PageValue{}, graft.WrapSubstrateErr("read page", err)
	}
	if !ok {
		return targetLSN, graft.Empty(), nil
	}

	key, err := schema.DecodePageKey(found.Key)
	if err != nil {
		return 0, graft.PageValue{}, err
	}
	value, err := schema.DecodePageValue(found.Value)
	if err != nil {
		return 0, graft.PageValue{}, err
	}

	if value.Kind == graft.PagePending {
		metrics.ReadPendingTotal.Inc()
		if s.prefetch != nil {
			s.prefetch.trigger(vid, key.LSN, offset, s.opts.PrefetchWindow)
		}
	}
	return key.LSN, value, nil
}

// PageResult is one entry returned by QueryPages.
type PageResult struct {
	Offset graft.PageOffset
	Value  *graft.PageValue // nil if no key exists at this exact LSN
}

// QueryPages returns the page values recorded at EXACTLY exactLSN for
// the given offsets, with no shadowing across LSNs (§4.6, used during
// sync).
func (s *VolumeStore) QueryPages(vid graft.VolumeId, exactLSN graft.LSN, offsets []graft.PageOffset) ([]PageResult, error) {
	out := make([]PageResult, len(offsets))
	err := s.substrate.View(func(r kv.Reader) error {
		for i, offset := range offsets {
			key := schema.PageKey{Vid: vid, Offset: offset, LSN: exactLSN}.Encode()
			b, ok, err := r.Get(kv.PartitionPages, key)
			if err != nil {
				return err
			}
			out[i] = PageResult{Offset: offset}
			if !ok {
				continue
			}
			value, err := schema.DecodePageValue(b)
			if err != nil {
				return err
			}
			out[i].Value = &value
		}
		return nil
	})
	if err != nil {
		return nil, graft.WrapSubstrateErr("query pages", err)
	}
	return out, nil
}

// QueryVolumes enumerates every volume matching the given sync-direction
// filter whose id passes vidFilter (nil means "accept all"). This is a
// full scan of the volume-state partition: the substrate has no
// secondary index on sync direction.
func (s *VolumeStore) QueryVolumes(syncFilter schema.SyncDirection, vidFilter func(graft.VolumeId) bool) ([]VolumeState, error) {
	return s.allVolumeStates(func(vid graft.VolumeId, cfg schema.VolumeConfig) bool {
		if vidFilter != nil && !vidFilter(vid) {
			return false
		}
		return syncFilter.Matches(cfg.Sync)
	})
}

// QueryAllVolumes enumerates every known volume regardless of sync
// configuration, unlike QueryVolumes which excludes SyncDisabled
// volumes when filtering for SyncBoth. Inspection tools that need to
// see every volume (e.g. a recovery scan) should use this instead of
// QueryVolumes(SyncBoth, ...).
func (s *VolumeStore) QueryAllVolumes(vidFilter func(graft.VolumeId) bool) ([]VolumeState, error) {
	return s.allVolumeStates(func(vid graft.VolumeId, _ schema.VolumeConfig) bool {
		return vidFilter == nil || vidFilter(vid)
	})
}

// allVolumeStates scans every distinct volume id present in the
// volume-state partition and loads its full state, keeping those for
// which keep returns true (a nil keep keeps every volume). keep is
// consulted after the volume's whole state has been read, and is given
// its id and config so it can filter on sync direction.
func (s *VolumeStore) allVolumeStates(keep func(graft.VolumeId, schema.VolumeConfig) bool) ([]VolumeState, error) {
	var out []VolumeState
	err := s.substrate.View(func(r kv.Reader) error {
		rows, err := r.ScanPrefix(kv.PartitionVolumeState, nil)
		if err != nil {
			return err
		}
		seen := make(map[graft.VolumeId]bool)
		for _, row := range rows {
			key, err := schema.DecodeVolumeStateKey(row.Key)
			if err != nil {
				return err
			}
			if seen[key.Vid] {
				continue
			}
			seen[key.Vid] = true
			cfg, snap, wm, status, err := readVolumeState(r, key.Vid)
			if err != nil {
				return err
			}
			if keep != nil && !keep(key.Vid, cfg) {
				continue
			}
			out = append(out, VolumeState{Vid: key.Vid, Config: cfg, Snapshot: snap, Watermarks: wm, Status: status})
		}
		return nil
	})
	if err != nil {
		return nil, graft.WrapSubstrateErr("query volumes", err)
	}
	return out, nil
}

// CollectVolumeSummaries satisfies metrics.VolumeSource for the
// metrics.Collector's periodic gauge sampling. Unlike QueryVolumes it is
// never filtered by sync direction: every known volume contributes to
// the gauges regardless of its configuration.
func (s *VolumeStore) CollectVolumeSummaries() ([]metrics.VolumeSummary, error) {
	states, err := s.allVolumeStates(nil)
	if err != nil {
		return nil, err
	}
	out := make([]metrics.VolumeSummary, 0, len(states))
	for _, st := range states {
		var lag uint64
		if st.Snapshot != nil {
			last := graft.LSN(0)
			if st.Watermarks.LastSyncPresent {
				last = st.Watermarks.LastSync
			}
			if st.Snapshot.LocalLSN > last {
				lag = uint64(st.Snapshot.LocalLSN - last)
			}
		}
		out = append(out, metrics.VolumeSummary{
			Status:        statusLabel(st.Status),
			NeedsRecovery: st.NeedsRecovery(),
			LagCommits:    lag,
		})
	}
	return out, nil
}

func statusLabel(status schema.Status) string {
	switch status {
	case schema.StatusOk:
		return "ok"
	case schema.StatusConflict:
		return "conflict"
	case schema.StatusRejectedCommit:
		return "rejected_commit"
	default:
		return "unknown"
	}
}
