//go:build windows

package storage

import (
	"os"

	"golang.org/x/sys/windows"

	"github.com/minifish-org/tegdb-sub001/internal/dberr"
)

// lockFile acquires a non-blocking exclusive lock on f via LockFileEx, the
// Windows counterpart to flock_unix.go's unix.Flock.
func lockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol,
	)
	if err != nil {
		return dberr.ErrFileLocked
	}
	return nil
}

func unlockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}
