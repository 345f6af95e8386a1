package extcmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWritesStdinAndReturnsStdout(t *testing.T) {
	out, err := Run(context.Background(), []string{"sh", "-c", "tr a-z A-Z"}, []byte("move forward"))
	require.NoError(t, err)
	require.Equal(t, "MOVE FORWARD", string(out))
}

func TestRunTextTrimsOutput(t *testing.T) {
	out, err := RunText(context.Background(), []string{"sh", "-c", "cat; echo"}, "  hello max  ")
	require.NoError(t, err)
	require.Equal(t, "hello max", out)
}

func TestRunRejectsEmptyArgv(t *testing.T) {
	_, err := Run(context.Background(), nil, []byte("payload"))
	require.ErrorIs(t, err, ErrEmptyArgv)
}

func TestRunIncludesStderrOnFailure(t *testing.T) {
	script := writeFailScript(t, "model offline")

	_, err := Run(context.Background(), []string{script}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model offline")
}

func TestRunHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, []string{"sleep", "5"}, nil)
	require.Error(t, err)
}

func TestAvailable(t *testing.T) {
	require.NoError(t, Available([]string{"sh"}))
	require.Error(t, Available([]string{"definitely-not-a-maxbot-binary"}))
	require.ErrorIs(t, Available(nil), ErrEmptyArgv)
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fail.sh")
	script := "#!/bin/sh\necho \"" + message + "\" >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
