package ipc

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/command"
	"github.com/stretchr/testify/require"
)

func TestEnsureExistsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm_commands")

	created, err := EnsureExists(path)
	require.NoError(t, err)
	require.True(t, created)

	created, err = EnsureExists(path)
	require.NoError(t, err)
	require.False(t, created)
	require.True(t, IsPipe(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestEnsureExistsRejectsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm_commands")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EnsureExists(path)
	require.ErrorIs(t, err, ErrChannel)
	require.Contains(t, err.Error(), "not a named pipe")
}

type recorder struct {
	mu   sync.Mutex
	got  []command.Command
	seen chan struct{}
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan struct{}, 16)}
}

func (r *recorder) Handle(_ context.Context, c command.Command) {
	r.mu.Lock()
	r.got = append(r.got, c)
	r.mu.Unlock()
	r.seen <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) []command.Command {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for command %d", i+1)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command.Command(nil), r.got...)
}

func startReader(t *testing.T, path string, h Handler) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ReadLoop(ctx, path, h, 20*time.Millisecond, nil)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("read loop did not stop after cancel")
		}
	})
	return cancel
}

func TestRoundTripPreservesSymbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm_commands")
	_, err := EnsureExists(path)
	require.NoError(t, err)

	rec := newRecorder()
	startReader(t, path, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, c := range command.All {
		require.NoError(t, Write(ctx, path, c))
	}

	require.Equal(t, command.All, rec.wait(t, len(command.All)))
}

func TestReadLoopSkipsBlankAndUnknownLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm_commands")
	_, err := EnsureExists(path)
	require.NoError(t, err)

	rec := newRecorder()
	startReader(t, path, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f, err := openWriter(ctx, path)
	require.NoError(t, err)
	_, err = f.WriteString("\nJUMP\n  \nWAVE\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Equal(t, []command.Command{command.Wave}, rec.wait(t, 1))
}

func TestWriteWithoutReaderHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm_commands")
	_, err := EnsureExists(path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	started := time.Now()
	err = Write(ctx, path, command.Forward)
	require.ErrorIs(t, err, ErrChannel)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(started), time.Second)
}

func TestWriteRejectsInvalidCommand(t *testing.T) {
	err := Write(context.Background(), filepath.Join(t.TempDir(), "p"), command.Command("jump"))
	require.ErrorIs(t, err, ErrChannel)
}

func TestReadLoopRetriesUntilPipeAppears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm_commands")

	rec := newRecorder()
	startReader(t, path, rec)

	time.Sleep(50 * time.Millisecond)
	_, err := EnsureExists(path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, Write(ctx, path, command.Stop))
	require.Equal(t, []command.Command{command.Stop}, rec.wait(t, 1))
}

func TestAcquireReaderIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm_commands")

	first, err := AcquireReader(path)
	require.NoError(t, err)

	_, err = AcquireReader(path)
	require.ErrorIs(t, err, ErrReaderActive)

	require.NoError(t, first.Release())

	again, err := AcquireReader(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
	require.NoError(t, again.Release())
}
