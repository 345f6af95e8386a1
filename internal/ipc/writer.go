package ipc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/command"
	"golang.org/x/sys/unix"
)

// readerPoll is how often a writer retries while no reader holds the pipe open.
const readerPoll = 25 * time.Millisecond

// Write delivers one command with a single open/write/close. With no reader attached
// it waits until one appears or ctx is done.
func Write(ctx context.Context, path string, c command.Command) error {
	if !c.Valid() {
		return fmt.Errorf("%w: invalid command %q", ErrChannel, string(c))
	}

	f, err := openWriter(ctx, path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(c.Line()); err != nil {
		return fmt.Errorf("%w: write %s to %s: %w", ErrChannel, c.Symbol(), path, err)
	}
	return nil
}

// openWriter opens the pipe non-blocking so a missing reader (ENXIO) can be retried
// under ctx instead of blocking inside open(2).
func openWriter(ctx context.Context, path string) (*os.File, error) {
	for {
		f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, unix.ENXIO) {
			return nil, fmt.Errorf("%w: open %s: %w", ErrChannel, path, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: no reader on %s: %w", ErrChannel, path, ctx.Err())
		case <-time.After(readerPoll):
		}
	}
}
