package ipc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/command"
)

// Handler consumes one command received from the pipe.
type Handler interface {
	Handle(context.Context, command.Command)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, command.Command)

func (f HandlerFunc) Handle(ctx context.Context, c command.Command) {
	f(ctx, c)
}

// ReadLoop consumes commands from path until ctx is cancelled. Open and read
// failures are logged and retried after backoff; the loop never exits on them.
func ReadLoop(ctx context.Context, path string, handler Handler, backoff time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "ipc", "source", path)
	if backoff <= 0 {
		backoff = time.Second
	}

	for ctx.Err() == nil {
		err := readOnce(ctx, path, handler, logger)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			continue
		}

		logger.Warn("command channel read failed; retrying", "error", err.Error(), "backoff", backoff.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// readOnce holds the pipe open read-write so the reader never observes EOF between
// writers, and closes it when ctx is cancelled to unblock the pending read.
func readOnce(ctx context.Context, path string, handler Handler, logger *slog.Logger) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrChannel, path, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = f.Close()
	}()

	logger.Info("listening for commands")
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c, err := command.Parse(line)
		if err != nil {
			logger.Warn("command channel ignored line", "line", line, "error", err.Error())
			continue
		}
		logger.Info("command received", "symbol", c.Symbol())
		handler.Handle(ctx, c)
	}

	err = scanner.Err()
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("%w: read %s: %w", ErrChannel, path, err)
}
