// Package ipc carries canonical commands between maxbot processes over a named pipe.
//
// The pipe has many writers and, by convention, exactly one reader. AcquireReader
// enforces that convention with an advisory lock next to the pipe.
package ipc

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultPath is the well-known conduit location shared by the voice and gesture processes.
const DefaultPath = "/tmp/arm_commands"

// ErrChannel marks conduit open, read, and write failures.
var ErrChannel = errors.New("command channel failure")

// EnsureExists creates the named pipe at path when absent and reuses an existing one.
// It reports whether the pipe was created by this call.
func EnsureExists(path string) (bool, error) {
	err := unix.Mkfifo(path, 0o600)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, unix.EEXIST) {
		return false, fmt.Errorf("%w: mkfifo %s: %w", ErrChannel, path, err)
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return false, fmt.Errorf("%w: stat %s: %w", ErrChannel, path, statErr)
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		return false, fmt.Errorf("%w: %s exists and is not a named pipe", ErrChannel, path)
	}
	return false, nil
}

// IsPipe reports whether path currently is a named pipe.
func IsPipe(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeNamedPipe != 0
}
