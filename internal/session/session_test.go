package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/bus"
	"github.com/Jagadish0216/Humanised-Robot/internal/command"
	"github.com/Jagadish0216/Humanised-Robot/internal/ipc"
	"github.com/Jagadish0216/Humanised-Robot/internal/pose"
	"github.com/Jagadish0216/Humanised-Robot/internal/speech"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	mu   sync.Mutex
	got  []command.Command
	seen chan command.Command
}

func newFakeBus() *fakeBus {
	return &fakeBus{seen: make(chan command.Command, 16)}
}

func (b *fakeBus) Dispatch(_ context.Context, c command.Command) bus.Report {
	b.mu.Lock()
	b.got = append(b.got, c)
	b.mu.Unlock()
	b.seen <- c
	return bus.Report{ID: "test", Command: c, Deliveries: []bus.Delivery{{Target: "motors", OK: true, Ack: "ok"}}}
}

func (b *fakeBus) commands() []command.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]command.Command(nil), b.got...)
}

type fakeSpeaker struct {
	mu   sync.Mutex
	said []string
}

func (s *fakeSpeaker) Say(text string) {
	s.mu.Lock()
	s.said = append(s.said, text)
	s.mu.Unlock()
}

func (s *fakeSpeaker) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.said...)
}

type listenStep struct {
	pcm []byte
	err error
}

// scriptedListener replays steps, then blocks until cancelled.
type scriptedListener struct {
	mu    sync.Mutex
	steps []listenStep
}

func (l *scriptedListener) Listen(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	if len(l.steps) > 0 {
		step := l.steps[0]
		l.steps = l.steps[1:]
		l.mu.Unlock()
		return step.pcm, step.err
	}
	l.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func phrases(n int) *scriptedListener {
	l := &scriptedListener{}
	for i := 0; i < n; i++ {
		l.steps = append(l.steps, listenStep{pcm: []byte{1, 2}})
	}
	return l
}

type transcriptStep struct {
	text string
	err  error
}

type scriptedTranscriber struct {
	mu    sync.Mutex
	steps []transcriptStep
}

func (s *scriptedTranscriber) Transcribe(context.Context, []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return "", speech.ErrUnclear
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.text, step.err
}

func transcripts(texts ...string) *scriptedTranscriber {
	s := &scriptedTranscriber{}
	for _, text := range texts {
		s.steps = append(s.steps, transcriptStep{text: text})
	}
	return s
}

type responderFunc func(context.Context, string) (string, error)

func (f responderFunc) Reply(ctx context.Context, text string) (string, error) { return f(ctx, text) }

func runWithTimeout(t *testing.T, run func(context.Context) Result) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	result := run(ctx)
	require.NoError(t, ctx.Err(), "session did not finish on its own")
	return result
}

func TestVoiceExitPhraseStopsAndSaysGoodbye(t *testing.T) {
	b, sp := newFakeBus(), &fakeSpeaker{}
	v := NewVoice(VoiceConfig{Bus: b, Speaker: sp, Listener: phrases(1), Transcriber: transcripts("Exit")})

	result := runWithTimeout(t, v.Run)
	require.Equal(t, "exit phrase", result.Reason)
	require.Equal(t, 1, result.Dispatched)
	require.Equal(t, []command.Command{command.Stop}, b.commands())
	require.Equal(t, []string{"Goodbye! See you soon."}, sp.lines())
}

func TestVoiceHandlesMovesGreetingsAndChat(t *testing.T) {
	b, sp := newFakeBus(), &fakeSpeaker{}
	var asked []string
	v := NewVoice(VoiceConfig{
		Bus:         b,
		Speaker:     sp,
		Listener:    phrases(5),
		Transcriber: transcripts("please move forward", "hello", "what is the weather", "turn left", "stop listening"),
		Responder: responderFunc(func(_ context.Context, text string) (string, error) {
			asked = append(asked, text)
			return "It is sunny.", nil
		}),
	})

	result := runWithTimeout(t, v.Run)
	require.Equal(t, "exit phrase", result.Reason)
	require.Equal(t, []command.Command{command.Forward, command.Left, command.Stop}, b.commands())
	require.Equal(t, []string{"what is the weather"}, asked)
	require.Equal(t, []string{
		"Moving forward",
		"Hello! I am Max. How can I assist you today?",
		"It is sunny.",
		"Turning left",
		"Goodbye! See you soon.",
	}, sp.lines())
}

func TestVoiceSkipsTimeoutsAndUnclearSpeech(t *testing.T) {
	b := newFakeBus()
	var console bytes.Buffer
	listener := &scriptedListener{steps: []listenStep{
		{err: speech.ErrTimeout},
		{pcm: []byte{1}},
		{err: errors.New("device hiccup")},
		{pcm: []byte{1}},
	}}
	tr := &scriptedTranscriber{steps: []transcriptStep{{err: speech.ErrUnclear}, {text: "quit"}}}
	v := NewVoice(VoiceConfig{Bus: b, Listener: listener, Transcriber: tr, Console: &console})

	result := runWithTimeout(t, v.Run)
	require.Equal(t, "exit phrase", result.Reason)
	require.Contains(t, console.String(), "Listening timed out")
	require.Contains(t, console.String(), "Could not understand")
	require.Contains(t, console.String(), "You said: quit")
}

func TestVoiceKeyboardCommands(t *testing.T) {
	b, sp := newFakeBus(), &fakeSpeaker{}
	var console bytes.Buffer
	v := NewVoice(VoiceConfig{Bus: b, Speaker: sp, Keyboard: strings.NewReader("f\nx\n L \nq\nb\n"), Console: &console})

	result := runWithTimeout(t, v.Run)
	require.Equal(t, "keyboard quit", result.Reason)
	require.Equal(t, 2, result.Dispatched)
	require.Equal(t, []command.Command{command.Forward, command.Left}, b.commands())
	require.Equal(t, []string{"Moving forward", "Turning left"}, sp.lines())
	require.Contains(t, console.String(), "q = quit")
	require.Contains(t, console.String(), `Broadcasting "F"`)
	require.Contains(t, console.String(), "motors: ok")
}

func TestVoiceKeyboardOnlyEndsWhenInputCloses(t *testing.T) {
	v := NewVoice(VoiceConfig{Bus: newFakeBus(), Keyboard: strings.NewReader("s\n")})

	result := runWithTimeout(t, v.Run)
	require.Equal(t, "keyboard closed", result.Reason)
	require.Equal(t, 1, result.Dispatched)
}

func TestVoiceAudioSourceClosedEndsSessionWithoutKeyboard(t *testing.T) {
	listener := &scriptedListener{steps: []listenStep{{err: speech.ErrSourceClosed}}}
	v := NewVoice(VoiceConfig{Bus: newFakeBus(), Listener: listener, Transcriber: transcripts()})

	result := runWithTimeout(t, v.Run)
	require.Equal(t, "audio source closed", result.Reason)
}

func TestVoiceRequiresAnInput(t *testing.T) {
	result := NewVoice(VoiceConfig{Bus: newFakeBus()}).Run(context.Background())
	require.Error(t, result.Err)
	require.Equal(t, "no input", result.Reason)
}

func TestVoiceCancelled(t *testing.T) {
	v := NewVoice(VoiceConfig{Bus: newFakeBus(), Listener: phrases(0), Transcriber: transcripts()})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	result := v.Run(ctx)
	require.Equal(t, "cancelled", result.Reason)
}

func TestUnmatchedUtteranceWithoutResponderIsIgnored(t *testing.T) {
	b, sp := newFakeBus(), &fakeSpeaker{}
	v := NewVoice(VoiceConfig{Bus: b, Speaker: sp})

	require.False(t, v.HandleUtterance(context.Background(), "tell me a joke"))
	require.Empty(t, b.commands())
	require.Empty(t, sp.lines())
}

type sliceFrames struct {
	frames []pose.Frame
	errs   []error
	i      int
}

func (s *sliceFrames) Next() (pose.Frame, error) {
	if s.i >= len(s.frames) {
		return pose.Frame{}, io.EOF
	}
	i := s.i
	s.i++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.frames[i], err
}

type blockingFrames struct {
	release chan struct{}
}

func (b blockingFrames) Next() (pose.Frame, error) {
	<-b.release
	return pose.Frame{}, io.EOF
}

func body(raised bool) pose.Frame {
	lm := make([]pose.Landmark, pose.LandmarkCount)
	lm[pose.LeftShoulder] = pose.Landmark{X: 0.6, Y: 0.5}
	lm[pose.RightShoulder] = pose.Landmark{X: 0.4, Y: 0.5}
	lm[pose.LeftElbow] = pose.Landmark{X: 0.7, Y: 0.7}
	lm[pose.RightElbow] = pose.Landmark{X: 0.3, Y: 0.7}
	lm[pose.LeftWrist] = pose.Landmark{X: 0.7, Y: 0.9}
	lm[pose.RightWrist] = pose.Landmark{X: 0.3, Y: 0.9}
	if raised {
		lm[pose.RightElbow] = pose.Landmark{X: 0.25, Y: 0.5}
		lm[pose.RightWrist] = pose.Landmark{X: 0.25, Y: 0.3}
	}
	return pose.Frame{Landmarks: lm}
}

func steppingClock(step time.Duration) func() time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestGestureWavesOncePerCooldown(t *testing.T) {
	b, sp := newFakeBus(), &fakeSpeaker{}
	var console bytes.Buffer
	frames := &sliceFrames{frames: []pose.Frame{
		{},
		body(true),
		body(true),
		{},
		body(true),
		body(false),
		body(true),
	}}
	g := NewGesture(GestureConfig{
		Bus:           b,
		Speaker:       sp,
		Frames:        frames,
		Cooldown:      10 * time.Second,
		MaxElbowAngle: 160,
		Console:       &console,
		Now:           steppingClock(time.Second),
	})

	result := runWithTimeout(t, g.Run)
	require.Equal(t, "frames ended", result.Reason)
	require.Equal(t, []command.Command{command.Wave}, b.commands())
	require.Equal(t, []string{"Hello!"}, sp.lines())
	require.Contains(t, console.String(), "Wave detected")
	require.Contains(t, console.String(), "Cooldown active. Wait")
}

func TestGestureSkipsMalformedFramesAndStopsOnSourceError(t *testing.T) {
	frames := &sliceFrames{
		frames: []pose.Frame{{}, {}},
		errs:   []error{pose.ErrMalformedFrame, errors.New("camera unplugged")},
	}
	g := NewGesture(GestureConfig{Bus: newFakeBus(), Frames: frames, Cooldown: time.Second})

	result := runWithTimeout(t, g.Run)
	require.Equal(t, "frame source failed", result.Reason)
	require.ErrorContains(t, result.Err, "camera unplugged")
}

func TestGestureMalformedFrameBreaksHeldHand(t *testing.T) {
	b := newFakeBus()
	frames := &sliceFrames{
		frames: []pose.Frame{body(true), body(true), {}, body(true)},
		errs:   []error{nil, nil, pose.ErrMalformedFrame},
	}
	g := NewGesture(GestureConfig{Bus: b, Frames: frames, MaxElbowAngle: 160, Now: steppingClock(time.Second)})

	result := runWithTimeout(t, g.Run)
	require.Equal(t, "frames ended", result.Reason)
	require.Equal(t, []command.Command{command.Wave, command.Wave}, b.commands())
}

func TestGestureRelaysChannelCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm_commands")
	_, err := ipc.EnsureExists(path)
	require.NoError(t, err)

	b := newFakeBus()
	release := make(chan struct{})
	g := NewGesture(GestureConfig{
		Bus:          b,
		Frames:       blockingFrames{release: release},
		Cooldown:     time.Second,
		ChannelPath:  path,
		RetryBackoff: 10 * time.Millisecond,
	})

	done := make(chan Result, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { done <- g.Run(ctx) }()

	writeCtx, writeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer writeCancel()
	require.NoError(t, ipc.Write(writeCtx, path, command.Backward))

	select {
	case c := <-b.seen:
		require.Equal(t, command.Backward, c)
	case <-time.After(2 * time.Second):
		t.Fatal("relayed command not dispatched")
	}

	close(release)
	result := <-done
	require.Equal(t, "frames ended", result.Reason)
	require.Equal(t, 1, result.Dispatched)
}
