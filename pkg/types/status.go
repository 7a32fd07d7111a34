package types

import "time"

// ClassStatus is the per-class slice of a status snapshot.
type ClassStatus struct {
	Count    int64 `json:"count"`
	Total    int64 `json:"total,omitempty"`
	HasToken bool  `json:"has_token"`
	Complete bool  `json:"complete"`
}

// BackupStats summarizes the snapshot archive for the status interface.
type BackupStats struct {
	SnapshotCount int       `json:"snapshot_count"`
	TotalSize     int64     `json:"total_size"`
	LatestAt      time.Time `json:"latest_at,omitzero"`
	LastError     string    `json:"last_error,omitempty"`
}

// StatusSnapshot is the read-only view polled by the dashboard. Producing
// one never blocks on an in-flight fetch.
type StatusSnapshot struct {
	Classes map[Class]ClassStatus `json:"classes"`

	// ItemsPerHour is the fetch rate over a trailing window. Zero when the
	// driver is not running or the window is empty.
	ItemsPerHour float64 `json:"items_per_hour"`

	// ETA extrapolates remaining time from rate and known totals. Zero when
	// the rate is unknown.
	ETA time.Duration `json:"eta"`

	// LastActivity is the time of the most recent persisted item, for stall
	// detection.
	LastActivity time.Time `json:"last_activity,omitzero"`

	Backups BackupStats `json:"backups"`
}
