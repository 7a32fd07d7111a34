// Status command: one-shot read-only view of the mirror.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/snpmirror/internal/status"
	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-class counts, progress, and backup statistics",
	Long: `Status prints a read-only snapshot of the mirror: per-class counts and
continuation-token presence, completion state, and backup statistics. It is
safe to run while ingestion or the backup monitor is active.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	log := newLogger()

	store, dataDir, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	manager, err := buildManager(cmd.Context(), store, dataDir, log, nil)
	if err != nil {
		return err
	}

	reporter := status.NewReporter(store, nil, manager.Stats, appConfig.Totals, nil)
	snap, err := reporter.Snapshot()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if flagJSON {
		return printJSON(snap)
	}

	out := cmd.OutOrStdout()
	for _, class := range types.ClassOrder {
		cs := snap.Classes[class]
		line := fmt.Sprintf("%-10s %d", classLabel(class), cs.Count)
		if cs.Total > 0 {
			line += fmt.Sprintf(" / %d", cs.Total)
		}
		switch {
		case cs.Complete:
			line += "  (complete)"
		case cs.HasToken:
			line += "  (in progress)"
		}
		fmt.Fprintln(out, line)
	}

	b := snap.Backups
	if b.SnapshotCount > 0 {
		age := time.Since(b.LatestAt).Round(time.Second)
		fmt.Fprintf(out, "Backups:   %d snapshots, %d bytes, newest %s ago\n", b.SnapshotCount, b.TotalSize, age)
	} else {
		fmt.Fprintln(out, "Backups:   none")
	}
	if b.LastError != "" {
		fmt.Fprintf(out, "Backup error: %s\n", b.LastError)
	}
	return nil
}
