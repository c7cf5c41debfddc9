package watermark

import (
	"errors"
	"fmt"
	"os"
)

// ErrLocked is returned when another run holds the advisory lock.
var ErrLocked = errors.New("another run holds the lock")

// FileLock is an advisory lock guarding against overlapping scheduled
// runs. Non-overlapping scheduling remains the deployment's job; the
// lock is a backstop.
type FileLock struct {
	path string
}

// NewFileLock creates an advisory lock at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Acquire creates the lock file exclusively. A leftover file from a
// crashed run must be removed by the operator.
func (l *FileLock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrLocked, l.path)
		}
		return fmt.Errorf("create lock file %s: %w", l.path, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return f.Close()
}

// Release removes the lock file.
func (l *FileLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file %s: %w", l.path, err)
	}
	return nil
}
