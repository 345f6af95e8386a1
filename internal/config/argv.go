package config

import (
	"fmt"
	"strings"
)

// ArgvError reports a command string that does not split into argv.
type ArgvError struct {
	Key    string
	Line   int
	Offset int
	Reason string
}

func (e *ArgvError) Error() string {
	var b strings.Builder
	if e.Key != "" {
		b.WriteString(e.Key)
		if e.Line > 0 {
			fmt.Fprintf(&b, " (line %d)", e.Line)
		}
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s at byte %d", e.Reason, e.Offset)
	return b.String()
}

// splitArgv tokenizes a command with POSIX shell quoting: single quotes are
// literal, double quotes allow \" \\ and \$, and an unquoted # starts a comment.
// No expansion is performed.
func splitArgv(raw string) ([]string, error) {
	var (
		argv    []string
		current strings.Builder
		inToken bool
		quote   byte
		opened  int
	)

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch quote {
		case '\'':
			if ch == '\'' {
				quote = 0
				continue
			}
			current.WriteByte(ch)
			continue
		case '"':
			switch {
			case ch == '"':
				quote = 0
			case ch == '\\' && i+1 < len(raw) && strings.IndexByte(`"\$`, raw[i+1]) >= 0:
				i++
				current.WriteByte(raw[i])
			default:
				current.WriteByte(ch)
			}
			continue
		}

		switch ch {
		case ' ', '\t', '\n', '\r':
			if inToken {
				argv = append(argv, current.String())
				current.Reset()
				inToken = false
			}
		case '#':
			if !inToken {
				return argv, nil
			}
			current.WriteByte(ch)
		case '\\':
			if i+1 == len(raw) {
				return nil, &ArgvError{Offset: i, Reason: "trailing backslash"}
			}
			i++
			current.WriteByte(raw[i])
			inToken = true
		case '\'', '"':
			quote, opened, inToken = ch, i, true
		default:
			current.WriteByte(ch)
			inToken = true
		}
	}

	if quote != 0 {
		reason := "unterminated single quote"
		if quote == '"' {
			reason = "unterminated double quote"
		}
		return nil, &ArgvError{Offset: opened, Reason: reason}
	}
	if inToken {
		argv = append(argv, current.String())
	}
	return argv, nil
}

func mustSplitArgv(raw string) []string {
	argv, err := splitArgv(raw)
	if err != nil {
		panic(err)
	}
	return argv
}
