package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Jagadish0216/Humanised-Robot/internal/command"
	"github.com/Jagadish0216/Humanised-Robot/internal/intent"
	"github.com/Jagadish0216/Humanised-Robot/internal/speech"
)

const goodbye = "Goodbye! See you soon."

// Listener captures one spoken phrase.
type Listener interface {
	Listen(ctx context.Context) ([]byte, error)
}

// VoiceConfig wires the voice role. Listener and Keyboard are each optional.
type VoiceConfig struct {
	Bus         Dispatcher
	Speaker     Speaker
	Listener    Listener
	Transcriber speech.Transcriber
	Responder   speech.Responder
	Keyboard    io.Reader
	Console     io.Writer

	AssistantName string
	Logger        *slog.Logger
}

// Voice turns utterances and key presses into dispatched commands.
type Voice struct {
	cfg    VoiceConfig
	logger *slog.Logger
	out    console

	dispatched atomic.Int64
}

func NewVoice(cfg VoiceConfig) *Voice {
	if cfg.Speaker == nil {
		cfg.Speaker = noopSpeaker{}
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = "Max"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Voice{
		cfg:    cfg,
		logger: logger.With("component", "voice"),
		out:    console{w: cfg.Console},
	}
}

// Run blocks until an exit phrase, the quit key, a closed audio source with no
// keyboard, or ctx cancellation.
func (v *Voice) Run(ctx context.Context) Result {
	hasAudio := v.cfg.Listener != nil && v.cfg.Transcriber != nil
	if v.cfg.Keyboard == nil && !hasAudio {
		return Result{Reason: "no input", Err: errors.New("voice session has neither audio nor keyboard input")}
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	v.banner()

	var wg sync.WaitGroup
	// The keyboard reader may stay blocked on stdin after Run returns.
	if v.cfg.Keyboard != nil {
		go v.readKeys(ctx, cancel, !hasAudio)
	}
	if hasAudio {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.listenLoop(ctx, cancel)
		}()
	}

	<-ctx.Done()
	wg.Wait()

	result := Result{Dispatched: int(v.dispatched.Load())}
	var stop *stopCause
	if errors.As(context.Cause(ctx), &stop) {
		result.Reason = stop.reason
	} else {
		result.Reason = "cancelled"
	}
	v.logger.Info("voice session finished", "reason", result.Reason, "dispatched", result.Dispatched)
	return result
}

type stopCause struct {
	reason string
}

func (s *stopCause) Error() string { return "session stopped: " + s.reason }

func (v *Voice) banner() {
	v.out.printf("%s is active.", v.cfg.AssistantName)
	if v.cfg.Listener != nil && v.cfg.Transcriber != nil {
		v.out.printf("Voice commands: say a movement command")
	}
	if v.cfg.Keyboard != nil {
		v.out.printf("Keyboard commands:")
		v.out.printf("%s", intent.KeyHelp())
	}
	v.out.printf("Say 'exit' or type 'q' to stop.")
}

func (v *Voice) readKeys(ctx context.Context, stop context.CancelCauseFunc, stopOnEOF bool) {
	scanner := bufio.NewScanner(v.cfg.Keyboard)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		r := intent.Key(scanner.Text())
		switch r.Kind {
		case intent.Exit:
			v.out.printf("Keyboard: quit")
			v.logger.Info("keyboard quit")
			stop(&stopCause{reason: "keyboard quit"})
			return
		case intent.Move:
			v.execute(ctx, "keyboard", r.Command)
		}
	}
	if err := scanner.Err(); err != nil {
		v.logger.Warn("keyboard input failed", "error", err.Error())
	}
	if stopOnEOF {
		stop(&stopCause{reason: "keyboard closed"})
	}
}

func (v *Voice) listenLoop(ctx context.Context, stop context.CancelCauseFunc) {
	for ctx.Err() == nil {
		v.out.printf("Listening... (or type a command)")
		phrase, err := v.cfg.Listener.Listen(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, speech.ErrTimeout):
			v.out.printf("Listening timed out, no speech detected.")
			continue
		case errors.Is(err, speech.ErrSourceClosed):
			v.logger.Error("audio source closed", "error", err.Error())
			if v.cfg.Keyboard == nil {
				stop(&stopCause{reason: "audio source closed"})
			}
			return
		case err != nil:
			v.logger.Warn("listen failed", "error", err.Error())
			continue
		}

		text, err := v.cfg.Transcriber.Transcribe(ctx, phrase)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, speech.ErrUnclear):
			v.out.printf("Could not understand, please try again.")
			continue
		case err != nil:
			v.logger.Warn("speech recognition failed", "error", err.Error())
			continue
		}

		v.out.printf("You said: %s", text)
		if v.HandleUtterance(ctx, text) {
			stop(&stopCause{reason: "exit phrase"})
			return
		}
	}
}

// HandleUtterance acts on one transcript and reports whether the session should end.
func (v *Voice) HandleUtterance(ctx context.Context, text string) bool {
	r := intent.Classify(text)
	v.logger.Debug("utterance classified", "kind", r.Kind.String(), "rule", r.Rule)

	switch r.Kind {
	case intent.Exit:
		v.send(ctx, "speech", command.Stop)
		v.out.printf("%s: %s", v.cfg.AssistantName, goodbye)
		v.cfg.Speaker.Say(goodbye)
		return true
	case intent.Move:
		v.execute(ctx, "speech", r.Command)
	case intent.Greeting:
		v.reply(fmt.Sprintf("Hello! I am %s. How can I assist you today?", v.cfg.AssistantName))
	default:
		v.chat(ctx, text)
	}
	return false
}

// execute dispatches c and speaks its feedback phrase.
func (v *Voice) execute(ctx context.Context, source string, c command.Command) {
	v.out.printf("Command: %s", c.Feedback())
	v.send(ctx, source, c)
	v.cfg.Speaker.Say(c.Feedback())
}

func (v *Voice) send(ctx context.Context, source string, c command.Command) {
	dispatch(ctx, v.cfg.Bus, v.logger, v.out, source, c)
	v.dispatched.Add(1)
}

func (v *Voice) chat(ctx context.Context, text string) {
	if v.cfg.Responder == nil {
		v.logger.Info("utterance ignored; no chat responder", "text", text)
		return
	}
	reply, err := v.cfg.Responder.Reply(ctx, text)
	if err != nil {
		v.logger.Warn("chat reply failed", "error", err.Error())
		return
	}
	v.reply(reply)
}

func (v *Voice) reply(text string) {
	if text == "" {
		return
	}
	v.out.printf("%s: %s", v.cfg.AssistantName, text)
	v.cfg.Speaker.Say(text)
}
