package types

import "time"

// BackupStrategy selects the retention policy applied by the backup manager.
type BackupStrategy string

const (
	StrategyRolling     BackupStrategy = "rolling"
	StrategyProgressive BackupStrategy = "progressive"
	StrategyHourly      BackupStrategy = "hourly"
	StrategyAll         BackupStrategy = "all"
)

// Default backup parameters.
const (
	DefaultRollingKeep     = 5
	DefaultHourlyInterval  = time.Hour
	DefaultMonitorInterval = 30 * time.Second
)

// DefaultProgressiveThresholds are the persisted-count levels that trigger
// progressive snapshots. The last threshold repeats: every further multiple
// of it triggers another snapshot.
var DefaultProgressiveThresholds = []int64{1000, 5000, 10000}

// BackupConfig selects one retention strategy and its parameters, plus the
// poll interval of the background monitor loop.
type BackupConfig struct {
	Strategy BackupStrategy `json:"strategy" yaml:"strategy"`

	// Dir is the directory snapshots are written to. Defaults to
	// <data-dir>/backups when empty.
	Dir string `json:"dir" yaml:"dir"`

	// RollingKeep is the number of most-recent snapshots Rolling retains.
	RollingKeep int `json:"rolling_keep" yaml:"rolling_keep"`

	// ProgressiveThresholds are the persisted-count levels at which
	// Progressive snapshots, in increasing order. Beyond the last threshold
	// every multiple of it triggers another snapshot.
	ProgressiveThresholds []int64 `json:"progressive_thresholds" yaml:"progressive_thresholds"`

	// HourlyInterval is the wall-clock spacing of Hourly snapshots.
	HourlyInterval time.Duration `json:"hourly_interval" yaml:"hourly_interval"`

	// HourlyKeep bounds Hourly retention to the last N intervals.
	// Zero keeps every snapshot.
	HourlyKeep int `json:"hourly_keep" yaml:"hourly_keep"`

	// MonitorInterval is how often the background loop evaluates trigger
	// conditions.
	MonitorInterval time.Duration `json:"monitor_interval" yaml:"monitor_interval"`

	// S3 optionally mirrors each snapshot to an object store bucket.
	S3 S3MirrorConfig `json:"s3" yaml:"s3"`
}

// S3MirrorConfig configures the optional snapshot mirror. An empty Bucket
// disables mirroring.
type S3MirrorConfig struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Region string `json:"region" yaml:"region"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// Validate checks strategy selection and its parameters.
func (b BackupConfig) Validate() error {
	switch b.Strategy {
	case StrategyRolling:
		if b.RollingKeep <= 0 {
			return ErrKeepInvalid
		}
	case StrategyProgressive:
		var prev int64
		for _, t := range b.ProgressiveThresholds {
			if t <= prev {
				return ErrThresholdInvalid
			}
			prev = t
		}
		if len(b.ProgressiveThresholds) == 0 {
			return ErrThresholdInvalid
		}
	case StrategyHourly:
		if b.HourlyInterval <= 0 {
			return ErrIntervalInvalid
		}
	case StrategyAll:
	default:
		return ErrStrategyUnknown
	}
	if b.MonitorInterval <= 0 {
		return ErrIntervalInvalid
	}
	return nil
}

// WithDefaults returns a copy of b with zero-valued fields replaced by the
// package defaults. The default strategy is Rolling.
func (b BackupConfig) WithDefaults() BackupConfig {
	if b.Strategy == "" {
		b.Strategy = StrategyRolling
	}
	if b.RollingKeep == 0 {
		b.RollingKeep = DefaultRollingKeep
	}
	if len(b.ProgressiveThresholds) == 0 {
		b.ProgressiveThresholds = DefaultProgressiveThresholds
	}
	if b.HourlyInterval == 0 {
		b.HourlyInterval = DefaultHourlyInterval
	}
	if b.MonitorInterval == 0 {
		b.MonitorInterval = DefaultMonitorInterval
	}
	return b
}

// Snapshot describes one point-in-time copy of the store.
type Snapshot struct {
	SnapshotID string    `json:"snapshot_id"`
	Path       string    `json:"path"`
	CreatedAt  time.Time `json:"created_at"`
	Size       int64     `json:"size"`

	// Strategy tags the retention policy that produced the snapshot.
	Strategy BackupStrategy `json:"strategy"`

	// TriggerCount is the total persisted count at creation time. Progressive
	// retention keys off it.
	TriggerCount int64 `json:"trigger_count"`
}
