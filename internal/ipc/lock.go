package ipc

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrReaderActive means another process already consumes the pipe.
var ErrReaderActive = errors.New("command channel already has a reader")

// ReaderLock is the exclusive right to read one pipe.
type ReaderLock struct {
	file *os.File
}

// AcquireReader takes a non-blocking advisory lock on path + ".lock".
func AcquireReader(path string) (*ReaderLock, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: open lock %s: %w", ErrChannel, lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrReaderActive
		}
		return nil, fmt.Errorf("%w: lock %s: %w", ErrChannel, lockPath, err)
	}
	return &ReaderLock{file: f}, nil
}

// Release drops the lock. The lock file itself is left in place.
func (l *ReaderLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
