// Shared helpers for snpmirror CLI commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/snpmirror/internal/archive"
	"github.com/mesh-intelligence/snpmirror/internal/backup"
	"github.com/mesh-intelligence/snpmirror/internal/sqlite"
	"github.com/mesh-intelligence/snpmirror/internal/status"
	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// openStore resolves the data directory, creates it if needed, and opens
// the store. The caller must defer store.Close().
func openStore() (*sqlite.Store, string, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, "", fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create data dir: %w", err)
	}
	store := sqlite.NewStore()
	if err := store.Open(dataDir); err != nil {
		return nil, "", fmt.Errorf("open store: %w", err)
	}
	return store, dataDir, nil
}

// buildManager constructs the backup manager for an open store, wiring the
// S3 mirror when a bucket is configured. The backup directory defaults to
// <data-dir>/backups.
func buildManager(ctx context.Context, store *sqlite.Store, dataDir string, log *slog.Logger, metrics *status.Metrics) (*backup.Manager, error) {
	cfg := appConfig.Backup
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(dataDir, "backups")
	}

	opts := []backup.Option{}
	if metrics != nil {
		opts = append(opts, backup.WithMetrics(metrics))
	}
	if cfg.S3.Bucket != "" {
		target, err := archive.NewS3(ctx, archive.S3Config{
			Bucket: cfg.S3.Bucket,
			Region: cfg.S3.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 mirror: %w", err)
		}
		opts = append(opts, backup.WithMirror(target))
	}
	return backup.New(store, cfg, log, opts...)
}

// printJSON writes v indented to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// classLabel renders a class for human-readable output.
func classLabel(class types.Class) string {
	switch class {
	case types.ClassSNP:
		return "SNPs"
	case types.ClassGenotype:
		return "Genotypes"
	case types.ClassGenoset:
		return "Genosets"
	}
	return string(class)
}
