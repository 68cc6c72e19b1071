package metrics

import "time"

// VolumeSummary is the minimal per-volume state the collector needs to
// update gauges; kept separate from pkg/store's VolumeState so this
// package never imports pkg/store (pkg/store imports pkg/metrics to
// record commit/sync counters, so the reverse import would cycle).
type VolumeSummary struct {
	Status        string
	NeedsRecovery bool
	LagCommits    uint64
}

// VolumeSource is satisfied by *store.VolumeStore via duck typing.
type VolumeSource interface {
	CollectVolumeSummaries() ([]VolumeSummary, error)
}

// Collector periodically samples gauge-style metrics from a volume
// store, grounded on the teacher's pkg/metrics.Collector (periodic
// ticker-driven sampling of manager state into prometheus gauges).
type Collector struct {
	source VolumeSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector over source.
func NewCollector(source VolumeSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15 second interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	summaries, err := c.source.CollectVolumeSummaries()
	if err != nil {
		return
	}

	VolumesTotal.Set(float64(len(summaries)))

	statusCounts := make(map[string]int)
	var recovering int
	var lagSum uint64
	for _, s := range summaries {
		statusCounts[s.Status]++
		if s.NeedsRecovery {
			recovering++
		}
		lagSum += s.LagCommits
	}

	for status, count := range statusCounts {
		VolumeStatus.WithLabelValues(status).Set(float64(count))
	}
	VolumesNeedingRecovery.Set(float64(recovering))
	SyncLagCommits.Set(float64(lagSum))
}
