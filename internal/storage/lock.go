package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".lovelist.lock"

// ErrLocked is returned when another process holds the data directory lock.
var ErrLocked = errors.New("data directory is locked by another process")

// DirLock is an advisory lock on a data directory.
type DirLock struct {
	lock *flock.Flock
}

// LockDir takes the directory lock without blocking.
func LockDir(dir string) (*DirLock, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	l := flock.New(filepath.Join(dir, lockFileName))
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &DirLock{lock: l}, nil
}

// Path returns the lock file location.
func (d *DirLock) Path() string {
	return d.lock.Path()
}

func (d *DirLock) Unlock() error {
	if d == nil || d.lock == nil {
		return nil
	}
	return d.lock.Unlock()
}
