// Package metrics exposes Prometheus counters, gauges, and histograms for
// the volume store: commit throughput and conflicts, sync push/rollback/
// reset counts, per-volume status and recovery state, and read latency.
// A Collector samples gauge-style metrics from a VolumeSource on a fixed
// interval; counters are incremented inline by the store as operations
// complete. HealthChecker tracks readiness of the substrate and sync
// subsystems for the /health and /ready HTTP endpoints.
package metrics
