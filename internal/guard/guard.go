// Package guard enforces the single-writer assumption: ingestion and
// recovery must never run concurrently against one data directory. The
// guard is an advisory lock file created with O_EXCL; a second acquirer is
// refused at startup with a diagnostic naming the holder.
package guard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// FileName is the lock file kept inside the data directory.
const FileName = "snpmirror.lock"

// Lock is a held advisory lock. Release it before process exit; a crashed
// holder leaves a stale file that the next Acquire reclaims.
type Lock struct {
	path string
}

// Acquire takes the lock for dataDir. When the file already exists and its
// recorded pid is still alive, Acquire fails with ErrLocked; a stale file
// from a dead process is reclaimed.
func Acquire(dataDir string) (*Lock, error) {
	path := filepath.Join(dataDir, FileName)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			if _, werr := fmt.Fprintf(f, "%d\n", os.Getpid()); werr != nil {
				f.Close()
				os.Remove(path)
				return nil, werr
			}
			if cerr := f.Close(); cerr != nil {
				os.Remove(path)
				return nil, cerr
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		pid, perr := holderPID(path)
		if perr == nil && processAlive(pid) {
			return nil, fmt.Errorf("%w: held by pid %d (%s)", types.ErrLocked, pid, path)
		}
		// Unreadable or dead holder: reclaim and retry once.
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			return nil, rerr
		}
	}
	return nil, fmt.Errorf("%w: %s", types.ErrLocked, path)
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Path returns the lock file location, for diagnostics.
func (l *Lock) Path() string { return l.path }

func holderPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed lock file %s", path)
	}
	return pid, nil
}

// processAlive probes pid with signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
