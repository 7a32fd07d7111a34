// Package main provides the snpmirror CLI: resumable SNPedia ingestion,
// error-ledger recovery, backup management, and status reporting over one
// SQLite data directory.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if isUserError(err) {
			return exitUserError
		}
		return exitSysError
	}
	return exitSuccess
}

// isUserError distinguishes bad input and refused preconditions from system
// failures for the exit code.
func isUserError(err error) bool {
	for _, target := range []error{
		types.ErrInvalidID,
		types.ErrClassUnknown,
		types.ErrStrategyUnknown,
		types.ErrIntervalInvalid,
		types.ErrKeepInvalid,
		types.ErrThresholdInvalid,
		types.ErrPageSizeInvalid,
		types.ErrAPIURLEmpty,
		types.ErrNotFound,
		types.ErrLocked,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
