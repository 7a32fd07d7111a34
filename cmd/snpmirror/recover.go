// Recover command: one-shot replay of the error ledger.
package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/snpmirror/internal/errlog"
	"github.com/mesh-intelligence/snpmirror/internal/fetch"
	"github.com/mesh-intelligence/snpmirror/internal/guard"
	"github.com/mesh-intelligence/snpmirror/internal/pace"
	"github.com/mesh-intelligence/snpmirror/internal/recovery"
)

var flagMaxRetries int

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Re-fetch items recorded in the error ledger",
	Long: `Recover replays the error ledger: entries whose identifiers were mirrored
in the meantime are dropped, the rest are re-fetched under the same pacing
discipline as ingestion. Entries that keep failing stay in the ledger with
an incremented retry count; past the retry cap they are retained for
operator attention. Recovery never runs concurrently with ingestion.`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

func init() {
	recoverCmd.Flags().IntVar(&flagMaxRetries, "max-retries", recovery.DefaultMaxRetries, "automatic retry cap per ledger entry")
}

func runRecover(cmd *cobra.Command, args []string) error {
	log := newLogger()

	store, dataDir, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := appConfig.Validate(); err != nil {
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

	client := fetch.NewClient(appConfig.APIURL, appConfig.UserAgent, appConfig.PageSize)
	pacer := pace.New(appConfig.PaceInterval)

	engine := recovery.New(store, client, pacer, ledger, flagMaxRetries, log)
	result, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("recovery: %w", err)
	}

	if flagJSON {
		return printJSON(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"Examined %d entries: %d recovered, %d already mirrored, %d still failing, %d at retry cap\n",
		result.Examined, result.Recovered, result.Vanished, result.Unresolved, result.Exhausted)
	return nil
}
