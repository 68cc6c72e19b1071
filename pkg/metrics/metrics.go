package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Volume metrics
	VolumesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graft_volumes_total",
			Help: "Total number of volumes known to this store",
		},
	)

	VolumeStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graft_volume_status",
			Help: "Number of volumes currently in each status",
		},
		[]string{"status"},
	)

	// Commit metrics
	LocalCommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graft_local_commits_total",
			Help: "Total number of local commits applied",
		},
	)

	LocalCommitConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graft_local_commit_conflicts_total",
			Help: "Total number of local commits rejected by the optimistic-concurrency check",
		},
	)

	LocalCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graft_local_commit_duration_seconds",
			Help:    "Time taken to apply a local commit batch, including lock wait",
			Buckets: prometheus.DefBuckets,
		},
	)

	RemoteCommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graft_remote_commits_total",
			Help: "Total number of remote commits applied",
		},
	)

	RemoteConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graft_remote_conflicts_total",
			Help: "Total number of remote commits rejected because local commits were unsent",
		},
	)

	// Sync metrics
	SyncPushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graft_sync_pushes_total",
			Help: "Total number of pushes completed to the remote metastore",
		},
	)

	SyncRollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graft_sync_rollbacks_total",
			Help: "Total number of pushes rolled back",
		},
	)

	SyncResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graft_sync_resets_total",
			Help: "Total number of reset-to-remote operations",
		},
	)

	VolumesNeedingRecovery = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graft_volumes_needing_recovery",
			Help: "Number of volumes currently in the needs-recovery state",
		},
	)

	SyncLagCommits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graft_sync_lag_commits",
			Help: "Sum across volumes of local_lsn - last_sync, i.e. unsynced commits",
		},
	)

	// Read path metrics
	ReadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graft_read_duration_seconds",
			Help:    "Time taken to resolve a page read",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReadPendingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graft_read_pending_total",
			Help: "Total number of reads that resolved to a Pending page",
		},
	)

	PrefetchTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graft_prefetch_triggered_total",
			Help: "Total number of predictive prefetch fetches that completed without error",
		},
	)
)

func init() {
	prometheus.MustRegister(VolumesTotal)
	prometheus.MustRegister(VolumeStatus)
	prometheus.MustRegister(LocalCommitsTotal)
	prometheus.MustRegister(LocalCommitConflictsTotal)
	prometheus.MustRegister(LocalCommitDuration)
	prometheus.MustRegister(RemoteCommitsTotal)
	prometheus.MustRegister(RemoteConflictsTotal)
	prometheus.MustRegister(SyncPushesTotal)
	prometheus.MustRegister(SyncRollbacksTotal)
	prometheus.MustRegister(SyncResetsTotal)
	prometheus.MustRegister(VolumesNeedingRecovery)
	prometheus.MustRegister(SyncLagCommits)
	prometheus.MustRegister(ReadDuration)
	prometheus.MustRegister(ReadPendingTotal)
	prometheus.MustRegister(PrefetchTriggeredTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
