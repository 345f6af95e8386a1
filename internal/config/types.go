// Package config resolves, parses, validates, and defaults maxbot configuration.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully materialized runtime configuration shared by both roles.
type Config struct {
	Motors   LinkConfig     `yaml:"motors"`
	Arms     LinkConfig     `yaml:"arms"`
	Channel  ChannelConfig  `yaml:"channel"`
	Bus      BusConfig      `yaml:"bus"`
	Gesture  GestureConfig  `yaml:"gesture"`
	Listen   ListenConfig   `yaml:"listen"`
	Speech   SpeechConfig   `yaml:"speech"`
	TTS      TTSConfig      `yaml:"tts"`
	Keyboard KeyboardConfig `yaml:"keyboard"`
	Log      LogConfig      `yaml:"log"`
}

// LinkConfig describes one serial-attached controller.
type LinkConfig struct {
	Devices     []string      `yaml:"devices"`
	Baud        int           `yaml:"baud"`
	OpenSettle  time.Duration `yaml:"open_settle"`
	WriteSettle time.Duration `yaml:"write_settle"`
	AckWindow   time.Duration `yaml:"ack_window"`
	// Required makes an unreachable controller fatal for the role that owns it.
	Required bool `yaml:"required"`
}

// ChannelConfig controls the cross-process named pipe.
type ChannelConfig struct {
	Path         string        `yaml:"path"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type BusConfig struct {
	JoinTimeout time.Duration `yaml:"join_timeout"`
	QueueDepth  int           `yaml:"queue_depth"`
}

type GestureConfig struct {
	Cooldown      time.Duration `yaml:"cooldown"`
	MaxElbowAngle float64       `yaml:"max_elbow_angle"`
	// PoseCmd emits landmark frames on stdout; empty reads frames from stdin.
	PoseCmd CommandConfig `yaml:"pose_cmd"`
}

// ListenConfig controls microphone selection and phrase detection.
type ListenConfig struct {
	Input           string        `yaml:"input"`
	Fallback        string        `yaml:"fallback"`
	Timeout         time.Duration `yaml:"timeout"`
	PhraseLimit     time.Duration `yaml:"phrase_limit"`
	Pause           time.Duration `yaml:"pause"`
	Ambient         time.Duration `yaml:"ambient"`
	EnergyThreshold float64       `yaml:"energy_threshold"`
}

type SpeechConfig struct {
	TranscribeCmd CommandConfig `yaml:"transcribe_cmd"`
	ChatCmd       CommandConfig `yaml:"chat_cmd"`
	// HealthGRPC is an optional host:port serving grpc.health.v1 for the recognizer.
	HealthGRPC    string        `yaml:"health_grpc"`
	AssistantName string        `yaml:"assistant_name"`
	Timeout       time.Duration `yaml:"timeout"`
}

type TTSConfig struct {
	Enable   bool          `yaml:"enable"`
	SynthCmd CommandConfig `yaml:"synth_cmd"`
}

type KeyboardConfig struct {
	Enable bool `yaml:"enable"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// CommandConfig stores a raw command string and its parsed argv form. A string
// that fails to split is kept and reported by Validate under its key.
type CommandConfig struct {
	Raw  string
	Argv []string

	line     int
	splitErr error
}

func (c *CommandConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	argv, err := splitArgv(raw)
	*c = CommandConfig{Raw: raw, Argv: argv, line: node.Line, splitErr: err}
	return nil
}

// NamedCommand pairs a command with its config key.
type NamedCommand struct {
	Key     string
	Command CommandConfig
}

// Commands lists every external command setting in config-file order.
func Commands(cfg Config) []NamedCommand {
	return []NamedCommand{
		{"gesture.pose_cmd", cfg.Gesture.PoseCmd},
		{"speech.transcribe_cmd", cfg.Speech.TranscribeCmd},
		{"speech.chat_cmd", cfg.Speech.ChatCmd},
		{"tts.synth_cmd", cfg.TTS.SynthCmd},
	}
}

func (c CommandConfig) MarshalYAML() (any, error) {
	return c.Raw, nil
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
