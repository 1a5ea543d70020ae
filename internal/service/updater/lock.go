package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/logger"
)

const (
	// LockFilename marks that a check owns the storage root right now.
	LockFilename = "gh_releases.lock"

	storagePermissions = 0o755
	lockPermissions    = 0o600
	lockAttempts       = 2
)

// lockPath returns the lock file location inside the storage root.
func lockPath(storage string) string {
	return filepath.Join(storage, LockFilename)
}

// acquireLock creates the lock file holding our PID. A lock left by a process
// that no longer exists is taken over. The returned func removes the lock.
func acquireLock(ctx context.Context, path string) (func(), error) {
	for range lockAttempts {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockPermissions)
		if err == nil {
			_, writeErr := file.WriteString(strconv.Itoa(os.Getpid()))
			closeErr := file.Close()

			if writeErr != nil || closeErr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write check lock: %w", errors.Join(writeErr, closeErr))
			}

			return func() {
				if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
					logger.WarnKV(ctx, "Unable to remove check lock", "path", path, "error", removeErr)
				}
			}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create check lock: %w", err)
		}

		if lockOwnerAlive(ctx, path) {
			return nil, release.ErrCheckInProgress
		}

		logger.InfoKV(ctx, "The check lock is stale, taking it over", "path", path)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale check lock: %w", err)
		}
	}

	return nil, release.ErrCheckInProgress
}

// lockOwnerAlive reports whether the PID recorded in the lock belongs to a running process.
// When in doubt the owner is assumed alive.
func lockOwnerAlive(ctx context.Context, path string) bool {
	contents, err := os.ReadFile(path)
	if err != nil {
		return !errors.Is(err, os.ErrNotExist)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect check lock owner", "pid", pid, "error", err)
		return true
	}

	return process != nil
}
