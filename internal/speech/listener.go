// Package speech turns microphone audio into utterances: an energy gate finds a
// phrase in the capture stream and an external transcriber turns it into text.
package speech

import (
	"context"
	"errors"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/audio"
)

var (
	// ErrTimeout means no voice energy arrived within the listen timeout.
	ErrTimeout = errors.New("listening timed out; no speech detected")
	// ErrUnclear means a phrase was captured but nothing intelligible came back.
	ErrUnclear = errors.New("could not understand speech")
	// ErrSourceClosed means the capture stream ended.
	ErrSourceClosed = errors.New("audio source closed")
)

const (
	ambientFactor = 1.5
	preRoll       = 300 * time.Millisecond
)

// Source is a stream of s16le mono PCM chunks.
type Source interface {
	Chunks() <-chan []byte
}

// ListenConfig bounds one listen cycle. Durations are measured in captured audio.
type ListenConfig struct {
	Timeout         time.Duration
	PhraseLimit     time.Duration
	Pause           time.Duration
	EnergyThreshold float64
	Ambient         time.Duration
}

// Listener extracts one phrase at a time from a Source.
type Listener struct {
	cfg       ListenConfig
	src       Source
	threshold float64
}

func NewListener(cfg ListenConfig, src Source) *Listener {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.PhraseLimit <= 0 {
		cfg.PhraseLimit = 8 * time.Second
	}
	if cfg.Pause <= 0 {
		cfg.Pause = 800 * time.Millisecond
	}
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = 4000
	}
	return &Listener{cfg: cfg, src: src, threshold: cfg.EnergyThreshold}
}

// Threshold is the current voice energy gate.
func (l *Listener) Threshold() float64 {
	return l.threshold
}

// Calibrate samples Ambient worth of audio and raises the gate to 1.5x the
// ambient level when that exceeds the configured threshold.
func (l *Listener) Calibrate(ctx context.Context) (float64, error) {
	if l.cfg.Ambient <= 0 {
		return l.threshold, nil
	}

	var (
		sum     float64
		n       int
		elapsed time.Duration
	)
	for elapsed < l.cfg.Ambient {
		chunk, err := l.next(ctx, l.cfg.Ambient)
		if err != nil {
			return l.threshold, err
		}
		sum += audio.RMS(chunk)
		n++
		elapsed += audio.Duration(chunk)
	}

	ambient := sum / float64(n)
	l.threshold = l.cfg.EnergyThreshold
	if raised := ambient * ambientFactor; raised > l.threshold {
		l.threshold = raised
	}
	return ambient, nil
}

// Listen waits for voice energy, then captures until a trailing pause or the
// phrase limit. It returns the phrase PCM including a short pre-roll.
func (l *Listener) Listen(ctx context.Context) ([]byte, error) {
	var (
		waited time.Duration
		pre    [][]byte
		preDur time.Duration
	)

	for {
		chunk, err := l.next(ctx, l.cfg.Timeout)
		if err != nil {
			return nil, err
		}
		if audio.RMS(chunk) >= l.threshold {
			phrase := make([]byte, 0, len(chunk)*32)
			for _, p := range pre {
				phrase = append(phrase, p...)
			}
			return l.capturePhrase(ctx, append(phrase, chunk...), audio.Duration(chunk))
		}

		waited += audio.Duration(chunk)
		if waited >= l.cfg.Timeout {
			return nil, ErrTimeout
		}

		pre = append(pre, chunk)
		preDur += audio.Duration(chunk)
		for preDur > preRoll && len(pre) > 1 {
			preDur -= audio.Duration(pre[0])
			pre = pre[1:]
		}
	}
}

func (l *Listener) capturePhrase(ctx context.Context, phrase []byte, spoken time.Duration) ([]byte, error) {
	var silence time.Duration
	for spoken < l.cfg.PhraseLimit && silence < l.cfg.Pause {
		chunk, err := l.next(ctx, l.cfg.Pause)
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrSourceClosed) {
			break
		}
		if err != nil {
			return nil, err
		}

		phrase = append(phrase, chunk...)
		d := audio.Duration(chunk)
		spoken += d
		if audio.RMS(chunk) >= l.threshold {
			silence = 0
		} else {
			silence += d
		}
	}
	return phrase, nil
}

// next returns one chunk. A source that stalls for longer than wait (wall clock)
// counts as a timeout.
func (l *Listener) next(ctx context.Context, wait time.Duration) ([]byte, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	case chunk, ok := <-l.src.Chunks():
		if !ok {
			return nil, ErrSourceClosed
		}
		return chunk, nil
	}
}
