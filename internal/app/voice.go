package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jagadish0216/Humanised-Robot/internal/audio"
	"github.com/Jagadish0216/Humanised-Robot/internal/bus"
	"github.com/Jagadish0216/Humanised-Robot/internal/config"
	"github.com/Jagadish0216/Humanised-Robot/internal/ipc"
	"github.com/Jagadish0216/Humanised-Robot/internal/session"
	"github.com/Jagadish0216/Humanised-Robot/internal/speech"
	"github.com/Jagadish0216/Humanised-Robot/internal/tts"
)

// commandVoice runs process A: motors over serial, arms through the channel.
func (r Runner) commandVoice(ctx context.Context, configPath string) error {
	rt, err := r.setup(configPath, "voice")
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.loaded.Config, rt.logger

	motors, err := r.openLink(ctx, "motors", cfg.Motors, logger)
	if err != nil {
		logger.Error("voice session aborted", "error", err.Error())
		return err
	}

	created, err := ipc.EnsureExists(cfg.Channel.Path)
	if err != nil {
		motors.Close()
		return err
	}
	if created {
		fmt.Fprintf(r.Stdout, "Created named pipe: %s\n", cfg.Channel.Path)
	}

	commandBus := bus.New(bus.Config{JoinTimeout: cfg.Bus.JoinTimeout, QueueDepth: cfg.Bus.QueueDepth}, logger,
		bus.SerialTarget{Endpoint: motors},
		bus.ChannelTarget{Peer: "arms", Path: cfg.Channel.Path, WriteTimeout: cfg.Channel.WriteTimeout, Logger: logger},
	)
	speaker := newSpeaker(cfg, logger)

	listener, stopCapture, err := r.startListening(ctx, cfg, logger)
	if err != nil {
		shutdown(ctx, commandBus, speaker, stopCapture)
		return err
	}

	vc := session.VoiceConfig{
		Bus:           commandBus,
		Speaker:       speaker,
		Console:       r.Stdout,
		AssistantName: cfg.Speech.AssistantName,
		Logger:        logger,
	}
	if listener != nil {
		vc.Listener = listener
		vc.Transcriber = speech.CommandTranscriber{Argv: cfg.Speech.TranscribeCmd.Argv, Timeout: cfg.Speech.Timeout}
	}
	if len(cfg.Speech.ChatCmd.Argv) > 0 {
		vc.Responder = speech.CommandResponder{
			Argv:          cfg.Speech.ChatCmd.Argv,
			AssistantName: cfg.Speech.AssistantName,
			Timeout:       cfg.Speech.Timeout,
		}
	}
	if cfg.Keyboard.Enable {
		vc.Keyboard = r.stdin()
	}

	result := session.NewVoice(vc).Run(ctx)
	shutdown(ctx, commandBus, speaker, stopCapture)
	logger.Info("session complete", "reason", result.Reason, "dispatched", result.Dispatched)
	fmt.Fprintf(r.Stdout, "%s signing off (%s)\n", cfg.Speech.AssistantName, result.Reason)
	return result.Err
}

// startListening opens the microphone when a recognizer is configured. Audio failures
// degrade to keyboard-only input when the keyboard is enabled.
func (r Runner) startListening(ctx context.Context, cfg config.Config, logger *slog.Logger) (*speech.Listener, func(), error) {
	noop := func() {}
	if len(cfg.Speech.TranscribeCmd.Argv) == 0 {
		return nil, noop, nil
	}

	degrade := func(err error) (*speech.Listener, func(), error) {
		if !cfg.Keyboard.Enable {
			return nil, noop, fmt.Errorf("start voice input: %w", err)
		}
		logger.Warn("voice input unavailable; keyboard only", "error", err.Error())
		fmt.Fprintf(r.Stderr, "warning: voice input unavailable (%v); keyboard only\n", err)
		return nil, noop, nil
	}

	selection, err := audio.SelectDevice(ctx, cfg.Listen.Input, cfg.Listen.Fallback)
	if err != nil {
		return degrade(err)
	}
	if selection.Warning != "" {
		logger.Warn("audio fallback", "warning", selection.Warning)
	}

	capture, err := audio.StartCapture(ctx, selection.Device)
	if err != nil {
		return degrade(err)
	}
	stop := func() {
		_ = capture.Stop()
		logger.Info("audio capture stopped",
			"device", capture.Device().ID,
			"bytes_captured", capture.BytesCaptured(),
			"chunks_dropped", capture.ChunksDropped(),
		)
	}

	listener := speech.NewListener(speech.ListenConfig{
		Timeout:         cfg.Listen.Timeout,
		PhraseLimit:     cfg.Listen.PhraseLimit,
		Pause:           cfg.Listen.Pause,
		EnergyThreshold: cfg.Listen.EnergyThreshold,
		Ambient:         cfg.Listen.Ambient,
	}, capture)

	ambient, err := listener.Calibrate(ctx)
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Run observes the cancelled ctx and ends immediately.
	case err != nil:
		stop()
		return degrade(err)
	}
	logger.Info("voice input ready",
		"device", selection.Device.ID,
		"ambient_rms", ambient,
		"threshold", listener.Threshold(),
	)
	return listener, stop, nil
}

func newSpeaker(cfg config.Config, logger *slog.Logger) *tts.Speaker {
	return tts.New(tts.Config{
		Enable:    cfg.TTS.Enable,
		SynthArgv: cfg.TTS.SynthCmd.Argv,
	}, logger)
}

// shutdown broadcasts the final Stop, then releases audio and speech output.
func shutdown(ctx context.Context, b *bus.Bus, speaker *tts.Speaker, stopCapture func()) {
	shutdownCtx, cancel := shutdownContext(ctx)
	defer cancel()
	b.Shutdown(shutdownCtx)
	if stopCapture != nil {
		stopCapture()
	}
	speaker.Close()
}
