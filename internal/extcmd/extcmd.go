// Package extcmd runs the external collaborators (transcriber, chat responder,
// speech synthesizer) that exchange data over stdin and stdout.
package extcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrEmptyArgv is returned when no command is configured.
var ErrEmptyArgv = errors.New("command argv cannot be empty")

// Run executes argv, writes input to stdin, and returns stdout.
// A non-zero exit includes the trimmed stderr in the error.
func Run(ctx context.Context, argv []string, input []byte) ([]byte, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, ErrEmptyArgv
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if len(input) > 0 {
		if _, err := stdin.Write(input); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return nil, fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("wait for %s: %w: %s", argv[0], err, msg)
		}
		return nil, fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return stdout.Bytes(), nil
}

// RunText is Run with text in and trimmed text out.
func RunText(ctx context.Context, argv []string, input string) (string, error) {
	out, err := Run(ctx, argv, []byte(input))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Available reports whether argv[0] resolves on PATH or as a path.
func Available(argv []string) error {
	if len(argv) == 0 {
		return ErrEmptyArgv
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return fmt.Errorf("resolve %s: %w", argv[0], err)
	}
	return nil
}
