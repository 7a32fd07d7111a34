package status

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus instruments exported on the status listener.
type Metrics struct {
	Registry *prometheus.Registry

	ItemsPersisted *prometheus.CounterVec
	FetchFailures  *prometheus.CounterVec
	ClassCount     *prometheus.GaugeVec
	SnapshotCount  prometheus.Gauge
	SnapshotBytes  prometheus.Gauge
	BackupFailures prometheus.Counter
}

// NewMetrics builds and registers all instruments on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ItemsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snpmirror",
			Name:      "items_persisted_total",
			Help:      "Entities persisted to the mirror store.",
		}, []string{"class"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snpmirror",
			Name:      "fetch_failures_total",
			Help:      "Fetch failures by class and kind.",
		}, []string{"class", "kind"}),
		ClassCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "snpmirror",
			Name:      "class_count",
			Help:      "Persisted-item counter per entity class.",
		}, []string{"class"}),
		SnapshotCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snpmirror",
			Name:      "backup_snapshots",
			Help:      "Snapshots currently retained.",
		}),
		SnapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snpmirror",
			Name:      "backup_bytes",
			Help:      "Total size of retained snapshots.",
		}),
		BackupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snpmirror",
			Name:      "backup_failures_total",
			Help:      "Snapshot or prune failures.",
		}),
	}

	m.Registry.MustRegister(
		m.ItemsPersisted,
		m.FetchFailures,
		m.ClassCount,
		m.SnapshotCount,
		m.SnapshotBytes,
		m.BackupFailures,
	)
	return m
}
