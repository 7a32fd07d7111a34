// Backup commands: manual snapshot operations and the background monitor.
package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage point-in-time snapshots of the store",
	Long: `Backup creates, lists, and deletes consistent point-in-time snapshots of
the store, and runs the background monitor that triggers snapshots per the
configured retention strategy. Snapshots are taken online; ingestion keeps
writing while one is in progress.`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Take a snapshot now and apply retention",
	Args:  cobra.NoArgs,
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots in creation order",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <snapshot-id>",
	Short: "Delete one snapshot by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDelete,
}

var backupMonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the backup monitor until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runBackupMonitor,
}

func init() {
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	backupCmd.AddCommand(backupMonitorCmd)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
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
	snap, err := manager.CreateNow(cmd.Context())
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	if flagJSON {
		return printJSON(snap)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s created at %s (%d bytes)\n", snap.SnapshotID, snap.Path, snap.Size)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
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
	snaps, err := manager.List()
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if flagJSON {
		return printJSON(snaps)
	}
	if len(snaps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots")
		return nil
	}
	for _, snap := range snaps {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %10d bytes  %s  count=%d\n",
			snap.SnapshotID, snap.CreatedAt.Format(time.RFC3339), snap.Size, snap.Strategy, snap.TriggerCount)
	}
	return nil
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
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
	if err := manager.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s deleted\n", args[0])
	return nil
}

func runBackupMonitor(cmd *cobra.Command, args []string) error {
	log := newLogger()
	store, dataDir, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := appConfig.Backup.Validate(); err != nil {
		return fmt.Errorf("invalid backup configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager, err := buildManager(ctx, store, dataDir, log, nil)
	if err != nil {
		return err
	}
	manager.Monitor(ctx)
	return nil
}
