// Config loading for the snpmirror CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir            = "data_dir"
	cfgKeyAPIURL             = "api_url"
	cfgKeyUserAgent          = "user_agent"
	cfgKeyPageSize           = "page_size"
	cfgKeyPaceInterval       = "pace_interval"
	cfgKeyCheckpointInterval = "checkpoint_interval"
	cfgKeyStatusAddr         = "status_addr"

	cfgKeyBackupStrategy   = "backup.strategy"
	cfgKeyBackupDir        = "backup.dir"
	cfgKeyBackupRolling    = "backup.rolling_keep"
	cfgKeyBackupThresholds = "backup.progressive_thresholds"
	cfgKeyBackupHourlyIvl  = "backup.hourly_interval"
	cfgKeyBackupHourlyKeep = "backup.hourly_keep"
	cfgKeyBackupMonitorIvl = "backup.monitor_interval"
	cfgKeyBackupS3Bucket   = "backup.s3.bucket"
	cfgKeyBackupS3Region   = "backup.s3.region"
	cfgKeyBackupS3Prefix   = "backup.s3.prefix"
)

// appConfig is the loaded configuration, set by PersistentPreRunE before
// any subcommand runs. Defaults are applied; Validate is not yet called.
var appConfig types.Config

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# snpmirror configuration

# SNPedia bot API endpoint.
# api_url: https://bots.snpedia.com/api.php

# Minimum interval between fetch requests. The public wiki asks bots to
# stay at or above this cadence.
# pace_interval: 3s

# Progress checkpoint every N persisted items.
# checkpoint_interval: 10

# Listen address for the read-only status and metrics endpoint.
# Empty disables the listener.
# status_addr: 127.0.0.1:8606

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

backup:
  # One of: rolling, progressive, hourly, all
  strategy: rolling
  rolling_keep: 5
  # dir: defaults to <data-dir>/backups
  # s3:
  #   bucket:
  #   region:
  #   prefix: snpmirror
`

// loadConfig reads config.yaml from the resolved config directory using
// Viper. It creates the config directory and a default config.yaml on first
// run; a missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyAPIURL, types.DefaultAPIURL)
	v.SetDefault(cfgKeyPaceInterval, types.DefaultPaceInterval)
	v.SetDefault(cfgKeyCheckpointInterval, types.DefaultCheckpointInterval)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// buildConfig maps loaded viper keys onto a Config and applies defaults.
func buildConfig(v *viper.Viper) types.Config {
	cfg := types.Config{
		APIURL:             v.GetString(cfgKeyAPIURL),
		UserAgent:          v.GetString(cfgKeyUserAgent),
		PageSize:           v.GetInt(cfgKeyPageSize),
		PaceInterval:       v.GetDuration(cfgKeyPaceInterval),
		CheckpointInterval: v.GetInt(cfgKeyCheckpointInterval),
		StatusAddr:         v.GetString(cfgKeyStatusAddr),
		Backup: types.BackupConfig{
			Strategy:       types.BackupStrategy(v.GetString(cfgKeyBackupStrategy)),
			Dir:            v.GetString(cfgKeyBackupDir),
			RollingKeep:    v.GetInt(cfgKeyBackupRolling),
			HourlyInterval: v.GetDuration(cfgKeyBackupHourlyIvl),
			HourlyKeep:     v.GetInt(cfgKeyBackupHourlyKeep),
			MonitorInterval: v.GetDuration(cfgKeyBackupMonitorIvl),
			S3: types.S3MirrorConfig{
				Bucket: v.GetString(cfgKeyBackupS3Bucket),
				Region: v.GetString(cfgKeyBackupS3Region),
				Prefix: v.GetString(cfgKeyBackupS3Prefix),
			},
		},
	}
	for _, t := range v.GetIntSlice(cfgKeyBackupThresholds) {
		cfg.Backup.ProgressiveThresholds = append(cfg.Backup.ProgressiveThresholds, int64(t))
	}
	return cfg.WithDefaults()
}
