package pose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Extractor runs the landmark extractor command and exposes its stdout as frames.
type Extractor struct {
	*Reader

	cmd    *exec.Cmd
	stderr *bytes.Buffer

	waitOnce sync.Once
	waitErr  error
}

// StartExtractor launches argv. The process is killed when ctx is cancelled.
func StartExtractor(ctx context.Context, argv []string) (*Extractor, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("pose extractor command is empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open pose extractor stdout: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start pose extractor %q: %w", argv[0], err)
	}

	return &Extractor{
		Reader: NewReader(stdout),
		cmd:    cmd,
		stderr: stderr,
	}, nil
}

// Close stops the extractor and reaps it.
func (e *Extractor) Close() error {
	e.waitOnce.Do(func() {
		if e.cmd.Process != nil {
			_ = e.cmd.Process.Kill()
		}
		err := e.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			e.waitErr = fmt.Errorf("wait pose extractor: %w", err)
		}
	})
	return e.waitErr
}

// Stderr returns what the extractor has written to stderr so far.
func (e *Extractor) Stderr() string {
	return strings.TrimSpace(e.stderr.String())
}
