package config

import (
	"fmt"
	"strings"
	"time"
)

const maxAckWindow = time.Second

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	for _, link := range []struct {
		key string
		cfg LinkConfig
	}{{"motors", cfg.Motors}, {"arms", cfg.Arms}} {
		w, err := validateLink(link.key, link.cfg)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)
	}

	if strings.TrimSpace(cfg.Channel.Path) == "" {
		return nil, fmt.Errorf("channel.path must not be empty")
	}
	if cfg.Channel.WriteTimeout <= 0 {
		return nil, fmt.Errorf("channel.write_timeout must be > 0")
	}
	if cfg.Channel.RetryBackoff <= 0 {
		return nil, fmt.Errorf("channel.retry_backoff must be > 0")
	}
	if cfg.Bus.JoinTimeout <= 0 {
		return nil, fmt.Errorf("bus.join_timeout must be > 0")
	}
	if cfg.Bus.QueueDepth <= 0 {
		return nil, fmt.Errorf("bus.queue_depth must be > 0")
	}

	if cfg.Gesture.Cooldown < 0 {
		return nil, fmt.Errorf("gesture.cooldown must be >= 0")
	}
	if cfg.Gesture.MaxElbowAngle <= 0 || cfg.Gesture.MaxElbowAngle > 180 {
		return nil, fmt.Errorf("gesture.max_elbow_angle must be within (0, 180]")
	}
	if cfg.Gesture.Cooldown == 0 {
		warnings = append(warnings, Warning{Message: "gesture.cooldown is 0; every raised hand triggers a wave"})
	}

	if cfg.Listen.Timeout <= 0 || cfg.Listen.PhraseLimit <= 0 || cfg.Listen.Pause <= 0 {
		return nil, fmt.Errorf("listen.timeout, listen.phrase_limit and listen.pause must be > 0")
	}
	if cfg.Listen.Ambient < 0 {
		return nil, fmt.Errorf("listen.ambient must be >= 0")
	}
	if cfg.Listen.EnergyThreshold <= 0 {
		return nil, fmt.Errorf("listen.energy_threshold must be > 0")
	}

	if strings.TrimSpace(cfg.Speech.AssistantName) == "" {
		return nil, fmt.Errorf("speech.assistant_name must not be empty")
	}
	if cfg.Speech.Timeout <= 0 {
		return nil, fmt.Errorf("speech.timeout must be > 0")
	}
	for _, named := range Commands(cfg) {
		if argvErr, ok := named.Command.splitErr.(*ArgvError); ok {
			return nil, &ArgvError{Key: named.Key, Line: named.Command.line, Offset: argvErr.Offset, Reason: argvErr.Reason}
		}
	}
	if cfg.Speech.TranscribeCmd.Raw != "" && len(cfg.Speech.TranscribeCmd.Argv) == 0 {
		return nil, fmt.Errorf("speech.transcribe_cmd is configured but empty")
	}
	if len(cfg.Speech.TranscribeCmd.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "speech.transcribe_cmd is unset; voice input disabled, keyboard only"})
	}
	if cfg.TTS.Enable && len(cfg.TTS.SynthCmd.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "tts.synth_cmd is unset; spoken feedback falls back to tone cues"})
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if cfg.Log.MaxSizeMB <= 0 {
		return nil, fmt.Errorf("log.max_size_mb must be > 0")
	}
	if cfg.Log.MaxBackups < 0 {
		return nil, fmt.Errorf("log.max_backups must be >= 0")
	}

	return warnings, nil
}

func validateLink(key string, link LinkConfig) ([]Warning, error) {
	if link.Baud <= 0 {
		return nil, fmt.Errorf("%s.baud must be > 0", key)
	}
	if link.Required && len(link.Devices) == 0 {
		return nil, fmt.Errorf("%s.devices must not be empty when %s.required=true", key, key)
	}
	for _, dev := range link.Devices {
		if strings.TrimSpace(dev) == "" {
			return nil, fmt.Errorf("%s.devices must not contain empty entries", key)
		}
	}
	if link.OpenSettle < 0 || link.WriteSettle < 0 || link.AckWindow < 0 {
		return nil, fmt.Errorf("%s timing values must be >= 0", key)
	}

	if link.AckWindow > maxAckWindow {
		return nil, fmt.Errorf("%s.ack_window must be <= %s", key, maxAckWindow)
	}

	var warnings []Warning
	if len(link.Devices) == 0 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("%s.devices is empty; %s controller disabled", key, key)})
	}
	return warnings, nil
}
