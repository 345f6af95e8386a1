// Package tts is the process-wide speech output resource. Utterances never overlap.
package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/audio"
	"github.com/Jagadish0216/Humanised-Robot/internal/extcmd"
)

// PlayFunc renders mono samples at a sample rate.
type PlayFunc func(samples []int16, sampleRate int, mediaName string) error

type Config struct {
	Enable bool
	// SynthArgv renders stdin text into a WAV document on stdout.
	SynthArgv []string
	Timeout   time.Duration
	Play      PlayFunc
}

// Speaker serializes utterances behind one mutex.
type Speaker struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	pending sync.WaitGroup

	stateMu sync.Mutex
	closed  bool
}

func New(cfg Config, logger *slog.Logger) *Speaker {
	if cfg.Play == nil {
		cfg.Play = audio.Play
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Speaker{cfg: cfg, logger: logger.With("component", "tts")}
}

// Say speaks text in the background and returns immediately.
func (s *Speaker) Say(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.stateMu.Lock()
	if s.closed {
		s.stateMu.Unlock()
		s.logger.Debug("speech dropped after close", "text", text)
		return
	}
	s.pending.Add(1)
	s.stateMu.Unlock()

	go func() {
		defer s.pending.Done()
		if err := s.SayWait(context.Background(), text); err != nil {
			s.logger.Warn("speech failed", "text", text, "error", err.Error())
		}
	}()
}

// SayWait speaks text and blocks until playback finishes.
func (s *Speaker) SayWait(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enable {
		s.logger.Info("speech muted", "text", text)
		return nil
	}

	samples, rate, err := s.synthesize(ctx, text)
	if err != nil {
		s.logger.Warn("speech synthesis unavailable; playing cue", "text", text, "error", err.Error())
		samples, rate = CueSamples(cueFor(text)), CueSampleRate
	}
	if err := s.cfg.Play(samples, rate, "maxbot speech"); err != nil {
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}

func (s *Speaker) synthesize(ctx context.Context, text string) ([]int16, int, error) {
	if len(s.cfg.SynthArgv) == 0 {
		return nil, 0, fmt.Errorf("no synthesizer configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	data, err := extcmd.Run(ctx, s.cfg.SynthArgv, []byte(text))
	if err != nil {
		return nil, 0, err
	}
	return decodeWAV(data)
}

// Close waits for queued utterances and rejects new ones.
func (s *Speaker) Close() {
	s.stateMu.Lock()
	s.closed = true
	s.stateMu.Unlock()
	s.pending.Wait()
}

// CueSamples returns the PCM for a tone cue at CueSampleRate.
func CueSamples(c Cue) []int16 {
	return synthesizeCue(cueTones[c])
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
