// Package runlock keeps two disckit processes from rewriting the same library
// at once.
package runlock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created at the library root.
const FileName = ".disckit.lock"

// ErrHeld is returned when another process holds the library lock.
var ErrHeld = errors.New("library is locked by another disckit process")

// Lock is an acquired library lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the exclusive lock for the library rooted at dir without
// blocking.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, FileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, path)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. Releasing a nil lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
