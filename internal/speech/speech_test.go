package speech

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/audio"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	ch chan []byte
}

func (s chanSource) Chunks() <-chan []byte { return s.ch }

func chunk(level int16) []byte {
	out := make([]byte, audio.ChunkBytes)
	for i := 0; i < len(out); i += 2 {
		binary.LittleEndian.PutUint16(out[i:], uint16(level))
	}
	return out
}

// source queues one 20ms chunk per level; closed sources end after the last one.
func source(closed bool, levels ...int16) chanSource {
	ch := make(chan []byte, len(levels))
	for _, level := range levels {
		ch <- chunk(level)
	}
	if closed {
		close(ch)
	}
	return chanSource{ch: ch}
}

func repeat(level int16, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = level
	}
	return out
}

func concat(parts ...[]int16) []int16 {
	var out []int16
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

const (
	quiet int16 = 0
	loud  int16 = 8000
)

func TestListenTimesOutWithoutVoice(t *testing.T) {
	l := NewListener(ListenConfig{Timeout: 100 * time.Millisecond}, source(false, repeat(quiet, 10)...))

	_, err := l.Listen(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
}

func TestListenTimesOutWhenSourceStalls(t *testing.T) {
	l := NewListener(ListenConfig{Timeout: 50 * time.Millisecond}, source(false))

	start := time.Now()
	_, err := l.Listen(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
	require.Less(t, time.Since(start), time.Second)
}

func TestListenCapturesPhraseUntilPause(t *testing.T) {
	levels := concat(repeat(quiet, 3), repeat(loud, 5), repeat(quiet, 5), repeat(loud, 4))
	l := NewListener(ListenConfig{Timeout: time.Second, Pause: 100 * time.Millisecond}, source(false, levels...))

	phrase, err := l.Listen(context.Background())
	require.NoError(t, err)
	require.Len(t, phrase, 13*audio.ChunkBytes)
}

func TestListenStopsAtPhraseLimit(t *testing.T) {
	l := NewListener(ListenConfig{Timeout: time.Second, PhraseLimit: 100 * time.Millisecond}, source(false, repeat(loud, 20)...))

	phrase, err := l.Listen(context.Background())
	require.NoError(t, err)
	require.Len(t, phrase, 5*audio.ChunkBytes)
}

func TestListenReturnsPhraseWhenSourceEndsMidPhrase(t *testing.T) {
	l := NewListener(ListenConfig{Timeout: time.Second}, source(true, loud, loud))

	phrase, err := l.Listen(context.Background())
	require.NoError(t, err)
	require.Len(t, phrase, 2*audio.ChunkBytes)

	_, err = l.Listen(context.Background())
	require.ErrorIs(t, err, ErrSourceClosed)
}

func TestListenHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewListener(ListenConfig{}, source(false))
	_, err := l.Listen(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCalibrateRaisesThresholdAboveAmbient(t *testing.T) {
	levels := concat(repeat(3000, 5), repeat(4200, 3))
	l := NewListener(ListenConfig{Timeout: 60 * time.Millisecond, Ambient: 100 * time.Millisecond}, source(false, levels...))

	ambient, err := l.Calibrate(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 3000, ambient, 1)
	require.InDelta(t, 4500, l.Threshold(), 1)

	_, err = l.Listen(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
}

func TestCalibrateKeepsConfiguredFloor(t *testing.T) {
	l := NewListener(ListenConfig{Ambient: 40 * time.Millisecond}, source(false, 100, 100))

	_, err := l.Calibrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4000.0, l.Threshold())
}

func TestCommandTranscriberReadsStdout(t *testing.T) {
	tr := CommandTranscriber{Argv: []string{"sh", "-c", "cat > /dev/null; echo '  move   forward '"}}

	text, err := tr.Transcribe(context.Background(), chunk(loud))
	require.NoError(t, err)
	require.Equal(t, "move forward", text)
}

func TestCommandTranscriberEmptyOutputIsUnclear(t *testing.T) {
	tr := CommandTranscriber{Argv: []string{"sh", "-c", "cat > /dev/null"}}

	_, err := tr.Transcribe(context.Background(), chunk(loud))
	require.ErrorIs(t, err, ErrUnclear)

	_, err = tr.Transcribe(context.Background(), nil)
	require.ErrorIs(t, err, ErrUnclear)
}

func TestCommandTranscriberFailure(t *testing.T) {
	tr := CommandTranscriber{Argv: []string{"sh", "-c", "cat > /dev/null; exit 3"}, Timeout: time.Second}

	_, err := tr.Transcribe(context.Background(), chunk(loud))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnclear)
	require.Contains(t, err.Error(), "transcribe speech")
}

func TestCommandResponderPromptsWithAssistantName(t *testing.T) {
	r := CommandResponder{Argv: []string{"sh", "-c", "cat"}, AssistantName: "Max"}

	reply, err := r.Reply(context.Background(), "what can you do")
	require.NoError(t, err)
	require.Contains(t, reply, "assistant named Max")
	require.Contains(t, reply, "what can you do")
}
