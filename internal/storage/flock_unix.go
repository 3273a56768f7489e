//go:build unix

package storage

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/minifish-org/tegdb-sub001/internal/dberr"
)

// lockFile acquires a non-blocking exclusive advisory lock on f. Only one
// engine handle per log file is permitted across processes.
func lockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return dberr.ErrFileLocked
	}
	return nil
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
