// Package command defines the canonical movement command set shared by every transport.
package command

import (
	"fmt"
	"strings"
)

// Command is one canonical movement symbol.
type Command string

const (
	Forward  Command = "forward"
	Backward Command = "backward"
	Left     Command = "left"
	Right    Command = "right"
	Stop     Command = "stop"
	Wave     Command = "wave"
)

// All lists the closed command set in wire-table order.
var All = []Command{Forward, Backward, Left, Right, Stop, Wave}

var wireSymbols = map[Command]string{
	Forward:  "F",
	Backward: "B",
	Left:     "L",
	Right:    "R",
	Stop:     "S",
	Wave:     "WAVE",
}

var feedback = map[Command]string{
	Forward:  "Moving forward",
	Backward: "Moving backward",
	Left:     "Turning left",
	Right:    "Turning right",
	Stop:     "Stopping",
	Wave:     "Hello!",
}

// Valid reports whether c belongs to the closed command set.
func (c Command) Valid() bool {
	_, ok := wireSymbols[c]
	return ok
}

// Symbol returns the serial/conduit wire token for c.
func (c Command) Symbol() string {
	return wireSymbols[c]
}

// Line returns the newline-terminated wire form.
func (c Command) Line() string {
	return c.Symbol() + "\n"
}

// Feedback returns the phrase spoken when c is executed.
func (c Command) Feedback() string {
	return feedback[c]
}

func (c Command) String() string {
	return string(c)
}

// Parse accepts a wire symbol ("F", "WAVE") or a command name ("forward"),
// case-insensitively, with surrounding whitespace and line terminators trimmed.
func Parse(raw string) (Command, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", fmt.Errorf("empty command")
	}
	upper := strings.ToUpper(token)
	for _, c := range All {
		if wireSymbols[c] == upper || strings.EqualFold(string(c), token) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown command %q", token)
}
