package types

import "time"

// Default configuration values, matching the cadence the public SNPedia API
// tolerates and the category sizes published on the wiki.
const (
	DefaultAPIURL             = "https://bots.snpedia.com/api.php"
	DefaultUserAgent          = "snpmirror/1.0 (research mirror)"
	DefaultPageSize           = 500
	DefaultPaceInterval       = 3 * time.Second
	DefaultCheckpointInterval = 10
	DefaultTotalSNPs          = 110000
	DefaultTotalGenotypes     = 104887
)

// Config holds the parameters for opening the store and running the
// ingestion driver. The process entry point owns building a Config and
// passing it to each component at construction.
type Config struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`

	APIURL    string `json:"api_url" yaml:"api_url"`
	UserAgent string `json:"user_agent" yaml:"user_agent"`
	PageSize  int    `json:"page_size" yaml:"page_size"`

	// PaceInterval is the minimum wall-clock interval between consecutive
	// fetch attempts, measured start to start.
	PaceInterval time.Duration `json:"pace_interval" yaml:"pace_interval"`

	// CheckpointInterval is the number of persisted items between progress
	// checkpoints. It bounds replay distance after a crash.
	CheckpointInterval int `json:"checkpoint_interval" yaml:"checkpoint_interval"`

	// Totals holds the expected item count per class, used only for ETA
	// estimation. Zero means unknown.
	Totals map[Class]int64 `json:"totals" yaml:"totals"`

	// StatusAddr is the listen address for the read-only status and metrics
	// endpoint. Empty disables the listener.
	StatusAddr string `json:"status_addr" yaml:"status_addr"`

	Backup BackupConfig `json:"backup" yaml:"backup"`
}

// Validate checks that the Config is well-formed, applying no defaults.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return ErrAPIURLEmpty
	}
	if c.PageSize <= 0 {
		return ErrPageSizeInvalid
	}
	if c.PaceInterval <= 0 {
		return ErrIntervalInvalid
	}
	if c.CheckpointInterval <= 0 {
		return ErrIntervalInvalid
	}
	return c.Backup.Validate()
}

// WithDefaults returns a copy of c with zero-valued fields replaced by the
// package defaults.
func (c Config) WithDefaults() Config {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PaceInterval == 0 {
		c.PaceInterval = DefaultPaceInterval
	}
	if c.CheckpointInterval == 0 {
		c.CheckpointInterval = DefaultCheckpointInterval
	}
	if c.Totals == nil {
		c.Totals = map[Class]int64{
			ClassSNP:      DefaultTotalSNPs,
			ClassGenotype: DefaultTotalGenotypes,
		}
	}
	c.Backup = c.Backup.WithDefaults()
	return c
}
