package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/extcmd"
)

// Transcriber turns phrase PCM into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// CommandTranscriber pipes PCM (s16le, mono, 16 kHz) into an external recognizer
// and reads the transcript from its stdout.
type CommandTranscriber struct {
	Argv    []string
	Timeout time.Duration
}

func (c CommandTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", ErrUnclear
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	out, err := extcmd.Run(ctx, c.Argv, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe speech: %w", err)
	}
	text := strings.Join(strings.Fields(string(out)), " ")
	if text == "" {
		return "", ErrUnclear
	}
	return text, nil
}

// Responder produces a conversational reply for an utterance that is not a command.
type Responder interface {
	Reply(ctx context.Context, utterance string) (string, error)
}

// CommandResponder sends the utterance to an external chat command on stdin,
// prefixed by a system prompt line naming the assistant.
type CommandResponder struct {
	Argv          []string
	AssistantName string
	Timeout       time.Duration
}

func (c CommandResponder) Reply(ctx context.Context, utterance string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	reply, err := extcmd.RunText(ctx, c.Argv, c.prompt(utterance))
	if err != nil {
		return "", fmt.Errorf("chat reply: %w", err)
	}
	return reply, nil
}

func (c CommandResponder) prompt(utterance string) string {
	name := strings.TrimSpace(c.AssistantName)
	if name == "" {
		name = "Max"
	}
	return fmt.Sprintf("You are a friendly assistant named %s. You can control a robot's movements.\n%s\n", name, utterance)
}
