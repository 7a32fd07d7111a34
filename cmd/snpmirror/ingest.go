// Ingest command: the resumable mirroring run.
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/snpmirror/internal/errlog"
	"github.com/mesh-intelligence/snpmirror/internal/fetch"
	"github.com/mesh-intelligence/snpmirror/internal/guard"
	"github.com/mesh-intelligence/snpmirror/internal/ingest"
	"github.com/mesh-intelligence/snpmirror/internal/pace"
	"github.com/mesh-intelligence/snpmirror/internal/status"
)

var flagBackupMonitor bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Mirror SNPedia into the local store, resuming from the last checkpoint",
	Long: `Ingest walks SNPedia's SNP, genotype, and genoset categories in order,
fetching page content under the configured pacing interval and persisting it
to the local SQLite store. Progress is checkpointed so an interrupted run
resumes where it left off. Failed fetches are recorded in the error ledger
for a later "snpmirror recover" pass.

A SIGINT or SIGTERM lets the current item finish and checkpoints before
exiting, so a graceful stop loses no progress.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&flagBackupMonitor, "backup-monitor", false, "run the backup monitor alongside ingestion")
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := newLogger()

	store, dataDir, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := appConfig
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lock, err := guard.Acquire(dataDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, err := errlog.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open error ledger: %w", err)
	}

	metrics := status.NewMetrics()
	tracker := status.NewTracker(status.DefaultRateWindow, metrics)
	client := fetch.NewClient(cfg.APIURL, cfg.UserAgent, cfg.PageSize)
	pacer := pace.New(cfg.PaceInterval)

	var statsFn status.BackupStatsFunc
	if flagBackupMonitor {
		manager, err := buildManager(ctx, store, dataDir, log, metrics)
		if err != nil {
			return err
		}
		statsFn = manager.Stats
		go manager.Monitor(ctx)
	}

	if cfg.StatusAddr != "" {
		reporter := status.NewReporter(store, tracker, statsFn, cfg.Totals, metrics)
		server := status.NewServer(cfg.StatusAddr, reporter, metrics, log)
		go func() {
			if err := server.Run(ctx); err != nil {
				log.Warn("status server stopped", "error", err)
			}
		}()
	}

	driver := ingest.New(store, client, pacer, ledger, tracker, cfg.CheckpointInterval, log)
	if err := driver.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(cmd.OutOrStdout(), "Ingestion interrupted; progress checkpointed")
			return nil
		}
		return fmt.Errorf("ingestion: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Ingestion complete")
	return nil
}
