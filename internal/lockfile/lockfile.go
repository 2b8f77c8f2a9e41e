// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package lockfile provides exclusive advisory file locks with bounded
// retries.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrTimeout is returned when a lock is still held by someone else after
// all retries.
var ErrTimeout = errors.New("lockfile: lock not acquired")

// Lock is a held exclusive lock.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive flock on path, creating the file if needed.
// It tries retries times, sleeping wait between attempts.
func Acquire(path string, retries int, wait time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: %w", err)
	}
	for attempt := range max(retries, 1) {
		if attempt > 0 {
			time.Sleep(wait)
		}
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, fmt.Errorf("lockfile: flock %s: %w", path, err)
		}
	}
	f.Close()
	return nil, fmt.Errorf("%w: %s after %d attempts", ErrTimeout, path, max(retries, 1))
}

// TryAcquire takes the lock without waiting. It returns ErrTimeout if the
// lock is held.
func TryAcquire(path string) (*Lock, error) {
	return Acquire(path, 1, 0)
}

// Release unlocks and closes the lock file. The file is left in place so
// that concurrent waiters keep locking the same inode.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
