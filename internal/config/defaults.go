package config

import "time"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	synth := "espeak-ng --stdout -s 175"

	return Config{
		Motors: LinkConfig{
			Devices:     []string{"/dev/ttyACM0", "/dev/ttyUSB0"},
			Baud:        9600,
			OpenSettle:  2 * time.Second,
			WriteSettle: 100 * time.Millisecond,
			AckWindow:   time.Second,
			Required:    false,
		},
		Arms: LinkConfig{
			Devices:     []string{"/dev/ttyUSB0"},
			Baud:        9600,
			OpenSettle:  2 * time.Second,
			WriteSettle: 50 * time.Millisecond,
			AckWindow:   time.Second,
			Required:    true,
		},
		Channel: ChannelConfig{
			Path:         "/tmp/arm_commands",
			WriteTimeout: time.Second,
			RetryBackoff: time.Second,
		},
		Bus: BusConfig{JoinTimeout: time.Second, QueueDepth: 16},
		Gesture: GestureConfig{
			Cooldown:      10 * time.Second,
			MaxElbowAngle: 160,
		},
		Listen: ListenConfig{
			Input:           "default",
			Fallback:        "default",
			Timeout:         5 * time.Second,
			PhraseLimit:     8 * time.Second,
			Pause:           800 * time.Millisecond,
			Ambient:         1500 * time.Millisecond,
			EnergyThreshold: 4000,
		},
		Speech: SpeechConfig{
			AssistantName: "Max",
			Timeout:       20 * time.Second,
		},
		TTS:      TTSConfig{Enable: true, SynthCmd: CommandConfig{Raw: synth, Argv: mustSplitArgv(synth)}},
		Keyboard: KeyboardConfig{Enable: true},
		Log:      LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
	}
}
