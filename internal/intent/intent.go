// Package intent maps recognized utterances and keyboard keys onto canonical commands.
package intent

import (
	"strings"

	"github.com/Jagadish0216/Humanised-Robot/internal/command"
)

// Kind tags what an input asked for.
type Kind int

const (
	NoMatch Kind = iota
	Move
	Exit
	Greeting
)

func (k Kind) String() string {
	switch k {
	case Move:
		return "move"
	case Exit:
		return "exit"
	case Greeting:
		return "greeting"
	default:
		return "no_match"
	}
}

// Result is the classifier output. Command is set only for Move.
type Result struct {
	Kind    Kind
	Command command.Command
	Rule    string
}

// rule matches a normalized utterance. Rules run in order and the first match wins,
// so multi-word phrases must come before the single-word fallbacks.
type rule struct {
	name    string
	command command.Command
	match   func(string) bool
}

var moveRules = []rule{
	{name: "phrase.forward", command: command.Forward, match: containsAny("move forward", "go forward", "moving forward")},
	{name: "phrase.backward", command: command.Backward, match: containsAny("move backward", "go backward", "move back", "go back", "moving backward")},
	{name: "phrase.right", command: command.Right, match: containsAny("turn right", "turning right", "go right")},
	{name: "phrase.left", command: command.Left, match: containsAny("turn left", "turning left", "go left")},
	{name: "phrase.stop", command: command.Stop, match: func(s string) bool {
		return s == "stop" || containsAny("stop moving", "stop now", "halt", "freeze")(s)
	}},
	{name: "word.forward", command: command.Forward, match: func(s string) bool {
		return strings.Contains(s, "forward") && !strings.Contains(s, "backward")
	}},
	{name: "word.backward", command: command.Backward, match: containsAny("backward", "back")},
	{name: "word.right", command: command.Right, match: containsAny("right")},
	{name: "word.left", command: command.Left, match: containsAny("left")},
}

var (
	exitPhrases     = []string{"exit", "quit", "stop listening"}
	greetingPhrases = []string{"hi", "hello", "hey"}
)

// Classify resolves one utterance. Exit phrases are checked first, then movement
// rules, then greetings; exit and greeting require an exact (normalized) match.
func Classify(utterance string) Result {
	s := normalize(utterance)
	if s == "" {
		return Result{Kind: NoMatch}
	}
	if equalsAny(s, exitPhrases) {
		return Result{Kind: Exit, Rule: "exit"}
	}
	for _, r := range moveRules {
		if r.match(s) {
			return Result{Kind: Move, Command: r.command, Rule: r.name}
		}
	}
	if equalsAny(s, greetingPhrases) {
		return Result{Kind: Greeting, Rule: "greeting"}
	}
	return Result{Kind: NoMatch}
}

var keyBindings = map[string]command.Command{
	"f": command.Forward,
	"b": command.Backward,
	"l": command.Left,
	"r": command.Right,
	"s": command.Stop,
}

// Key resolves one keyboard line.
func Key(line string) Result {
	key := normalize(line)
	if key == "q" {
		return Result{Kind: Exit, Rule: "key.quit"}
	}
	if c, ok := keyBindings[key]; ok {
		return Result{Kind: Move, Command: c, Rule: "key." + key}
	}
	return Result{Kind: NoMatch}
}

// KeyHelp lists key bindings for the startup banner.
func KeyHelp() string {
	return `  f = forward
  b = backward
  l = left
  r = right
  s = stop
  q = quit`
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(needles ...string) func(string) bool {
	return func(s string) bool {
		for _, n := range needles {
			if strings.Contains(s, n) {
				return true
			}
		}
		return false
	}
}

func equalsAny(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
