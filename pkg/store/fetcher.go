package store

import (
	"context"
	"sync"
	"time"

	"github.com/graft-kv/graft/internal/kv"
	"github.com/graft-kv/graft/pkg/graft"
	"github.com/graft-kv/graft/pkg/metrics"
	"github.com/graft-kv/graft/pkg/schema"
)

// prefetchTimeout bounds a single background prefetch fetch call.
const prefetchTimeout = 10 * time.Second

// prefetchJob is one background fetch request: warm the cache for
// offset's siblings at lsn, up to window offsets forward.
type prefetchJob struct {
	vid    graft.VolumeId
	lsn    graft.LSN
	offset graft.PageOffset
	window int
}

// prefetcher runs a bounded worker pool that requests Pending sibling
// pages from the Fetcher ahead of demand, purely to warm the cache for
// sequential scan workloads (§6 "Predictive prefetch"). The fetched
// pages are not written to the store: the siblings stay Pending
// locally. Failures are logged and swallowed: prefetching never
// surfaces an error to the Read caller that triggered it.
type prefetcher struct {
	store   *VolumeStore
	fetcher graft.Fetcher
	jobs    chan prefetchJob
	wg      sync.WaitGroup
}

func newPrefetcher(store *VolumeStore, fetcher graft.Fetcher, workers int) *prefetcher {
	p := &prefetcher{
		store:   store,
		fetcher: fetcher,
		jobs:    make(chan prefetchJob, 256),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *prefetcher) stop() {
	close(p.jobs)
	p.wg.Wait()
}

// trigger schedules a prefetch job without blocking the caller. A full
// job queue silently drops the request — prefetching is best-effort.
func (p *prefetcher) trigger(vid graft.VolumeId, lsn graft.LSN, offset graft.PageOffset, window int) {
	select {
	case p.jobs <- prefetchJob{vid: vid, lsn: lsn, offset: offset, window: window}:
	default:
	}
}

func (p *prefetcher) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.fetch(job)
	}
}

func (p *prefetcher) fetch(job prefetchJob) {
	siblings, err := p.store.pendingSiblings(job.vid, job.lsn, job.offset, job.window)
	if err != nil || len(siblings) == 0 {
		return
	}

	var snap *schema.Snapshot
	err = p.store.substrate.View(func(r kv.Reader) error {
		var err error
		snap, err = readSnapshot(r, job.vid)
		return err
	})
	if err != nil || snap == nil || !snap.RemotePresent {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
	defer cancel()
	_, err = p.fetcher.FetchPages(ctx, job.vid, snap.RemoteLSN, siblings)
	if err != nil {
		storeLog.Warn().Str("volume_id", job.vid.String()).Err(err).Msg("prefetch failed")
		return
	}
	metrics.PrefetchTriggeredTotal.Inc()
}

// pendingSiblings finds up to window offsets following trigger, at the
// exact LSN it was recorded Pending, that are also Pending.
func (s *VolumeStore) pendingSiblings(vid graft.VolumeId, lsn graft.LSN, trigger graft.PageOffset, window int) ([]graft.PageOffset, error) {
	var out []graft.PageOffset
	err := s.substrate.View(func(r kv.Reader) error {
		for i := 1; i <= window; i++ {
			offset := trigger + graft.PageOffset(i)
			key := schema.PageKey{Vid: vid, Offset: offset, LSN: lsn}.Encode()
			b, ok, err := r.Get(kv.PartitionPages, key)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			value, err := schema.DecodePageValue(b)
			if err != nil {
				return err
			}
			if value.Kind == graft.PagePending {
				out = append(out, offset)
			}
		}
		return nil
	})
	return out, err
}
