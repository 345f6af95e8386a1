package app

import (
	"context"
	"fmt"

	"github.com/Jagadish0216/Humanised-Robot/internal/bus"
	"github.com/Jagadish0216/Humanised-Robot/internal/ipc"
	"github.com/Jagadish0216/Humanised-Robot/internal/pose"
	"github.com/Jagadish0216/Humanised-Robot/internal/session"
)

// commandGesture runs process B: it owns the arm controller, relays channel
// commands to it, and sends Wave on a detected hand raise.
func (r Runner) commandGesture(ctx context.Context, configPath string) error {
	rt, err := r.setup(configPath, "gesture")
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.loaded.Config, rt.logger

	if _, err := ipc.EnsureExists(cfg.Channel.Path); err != nil {
		return err
	}
	lock, err := ipc.AcquireReader(cfg.Channel.Path)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()
	fmt.Fprintf(r.Stdout, "Named pipe ready: %s\n", cfg.Channel.Path)

	arms, err := r.openLink(ctx, "arms", cfg.Arms, logger)
	if err != nil {
		logger.Error("gesture session aborted", "error", err.Error())
		return err
	}

	commandBus := bus.New(bus.Config{JoinTimeout: cfg.Bus.JoinTimeout, QueueDepth: cfg.Bus.QueueDepth}, logger,
		bus.SerialTarget{Endpoint: arms},
	)
	speaker := newSpeaker(cfg, logger)

	var frames session.FrameSource
	if argv := cfg.Gesture.PoseCmd.Argv; len(argv) > 0 {
		extractor, err := pose.StartExtractor(ctx, argv)
		if err != nil {
			shutdown(ctx, commandBus, speaker, nil)
			return err
		}
		defer func() {
			if err := extractor.Close(); err != nil {
				logger.Warn("pose extractor exited", "error", err.Error(), "stderr", extractor.Stderr())
			}
		}()
		frames = extractor
	} else {
		frames = pose.NewReader(r.stdin())
	}

	result := session.NewGesture(session.GestureConfig{
		Bus:           commandBus,
		Speaker:       speaker,
		Frames:        frames,
		Cooldown:      cfg.Gesture.Cooldown,
		MaxElbowAngle: cfg.Gesture.MaxElbowAngle,
		ChannelPath:   cfg.Channel.Path,
		RetryBackoff:  cfg.Channel.RetryBackoff,
		Console:       r.Stdout,
		Logger:        logger,
	}).Run(ctx)

	shutdown(ctx, commandBus, speaker, nil)
	logger.Info("session complete", "reason", result.Reason, "dispatched", result.Dispatched)
	fmt.Fprintf(r.Stdout, "Wave detection stopped (%s)\n", result.Reason)
	if result.Err != nil {
		return fmt.Errorf("gesture session: %w", result.Err)
	}
	return nil
}
