// Root command for the snpmirror CLI.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/snpmirror/internal/paths"
	"github.com/mesh-intelligence/snpmirror/pkg/snpmirror"
)

// Exit codes: 0 success, 1 user error (bad input, refused precondition),
// 2 system error (storage, network, permissions).
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
)

// configDataDir holds the data_dir value loaded from config.yaml. Set by
// PersistentPreRunE so all subcommands can use it.
var configDataDir string

var rootCmd = &cobra.Command{
	Use:     "snpmirror",
	Short:   "snpmirror maintains a local SQLite mirror of SNPedia",
	Version: snpmirror.Version,
	Long: `snpmirror incrementally mirrors SNPedia's SNP, genotype, and genoset
pages into a local SQLite database. Ingestion is resumable, paced to respect
the wiki's API, and checkpointed so an interrupted run continues where it
left off. Failed fetches land in a replayable error ledger, and the backup
manager keeps consistent point-in-time snapshots of the store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		configDataDir = cfg.GetString(cfgKeyDataDir)
		appConfig = buildConfig(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: platform data dir)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(backupCmd)
}

// resolveDataDir follows the precedence --data-dir flag > config.yaml
// data_dir > SNPMIRROR_DATA_DIR env > platform default.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// resolveConfigDir follows the precedence --config-dir flag >
// SNPMIRROR_CONFIG_DIR env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// newLogger builds the process logger. Logs go to stderr so they never mix
// with command output; --json switches the handler for log collectors.
func newLogger() *slog.Logger {
	if flagJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
