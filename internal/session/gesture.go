package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/command"
	"github.com/Jagadish0216/Humanised-Robot/internal/gesture"
	"github.com/Jagadish0216/Humanised-Robot/internal/ipc"
	"github.com/Jagadish0216/Humanised-Robot/internal/pose"
)

const waveGreeting = "Hello!"

// FrameSource yields landmark frames; io.EOF ends the session.
type FrameSource interface {
	Next() (pose.Frame, error)
}

// GestureConfig wires the gesture role.
type GestureConfig struct {
	Bus           Dispatcher
	Speaker       Speaker
	Frames        FrameSource
	Cooldown      time.Duration
	MaxElbowAngle float64
	// ChannelPath, when set, relays commands from the peer process onto Bus.
	ChannelPath  string
	RetryBackoff time.Duration
	Console      io.Writer
	Now          func() time.Time
	Logger       *slog.Logger
}

// Gesture drives the wave debouncer from the frame stream.
type Gesture struct {
	cfg       GestureConfig
	logger    *slog.Logger
	out       console
	debouncer *gesture.Debouncer

	mu         sync.Mutex
	dispatched int
}

func NewGesture(cfg GestureConfig) *Gesture {
	if cfg.Speaker == nil {
		cfg.Speaker = noopSpeaker{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gesture{
		cfg:       cfg,
		logger:    logger.With("component", "gesture"),
		out:       console{w: cfg.Console},
		debouncer: gesture.NewDebouncer(cfg.Cooldown),
	}
}

type frameResult struct {
	frame pose.Frame
	err   error
}

// Run consumes frames until the source ends or ctx is cancelled.
func (g *Gesture) Run(ctx context.Context) Result {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	g.banner()

	if g.cfg.ChannelPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ipc.ReadLoop(ctx, g.cfg.ChannelPath, ipc.HandlerFunc(g.relay), g.cfg.RetryBackoff, g.logger)
		}()
	}

	frames := make(chan frameResult)
	go func() {
		for {
			frame, err := g.cfg.Frames.Next()
			select {
			case frames <- frameResult{frame: frame, err: err}:
			case <-ctx.Done():
				return
			}
			if errors.Is(err, io.EOF) {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return g.finish(Result{Reason: "cancelled"})
		case fr := <-frames:
			switch {
			case errors.Is(fr.err, io.EOF):
				return g.finish(Result{Reason: "frames ended"})
			case errors.Is(fr.err, pose.ErrMalformedFrame):
				g.logger.Warn("pose frame skipped", "error", fr.err.Error())
				g.debouncer.Reset()
			case fr.err != nil:
				return g.finish(Result{Reason: "frame source failed", Err: fr.err})
			default:
				g.Observe(ctx, fr.frame)
			}
		}
	}
}

// Observe feeds one frame through the debouncer and emits Wave on a trigger.
func (g *Gesture) Observe(ctx context.Context, frame pose.Frame) gesture.Outcome {
	if !frame.HasSubject() {
		g.debouncer.NoSubject()
		return gesture.Outcome{State: g.debouncer.State()}
	}

	now := g.cfg.Now()
	out := g.debouncer.Observe(now, gesture.HandRaised(frame, g.cfg.MaxElbowAngle))
	switch {
	case out.Fired:
		g.out.printf("Wave detected! Sending WAVE command.")
		g.cfg.Speaker.Say(waveGreeting)
		g.send(ctx, "gesture", command.Wave)
	case out.Suppressed:
		g.out.printf("Cooldown active. Wait %.1fs", out.Remaining.Seconds())
		g.logger.Info("wave suppressed by cooldown", "remaining", out.Remaining.String())
	}
	return out
}

func (g *Gesture) relay(ctx context.Context, c command.Command) {
	g.send(ctx, "channel", c)
}

func (g *Gesture) send(ctx context.Context, source string, c command.Command) {
	dispatch(ctx, g.cfg.Bus, g.logger, g.out, source, c)
	g.mu.Lock()
	g.dispatched++
	g.mu.Unlock()
}

func (g *Gesture) finish(result Result) Result {
	g.mu.Lock()
	result.Dispatched = g.dispatched
	g.mu.Unlock()
	g.logger.Info("gesture session finished", "reason", result.Reason, "dispatched", result.Dispatched)
	return result
}

func (g *Gesture) banner() {
	g.out.printf("Wave detection active")
	g.out.printf("Raise your hand to trigger a wave")
	if g.cfg.ChannelPath != "" {
		g.out.printf("Arms follow movement commands relayed through %s", g.cfg.ChannelPath)
	}
	g.out.printf("Wave cooldown: %s", g.cfg.Cooldown)
}
