// Package session runs the two maxbot roles: the voice/keyboard session that drives
// the motors and relays to the arms, and the gesture session that owns the arms.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Jagadish0216/Humanised-Robot/internal/bus"
	"github.com/Jagadish0216/Humanised-Robot/internal/command"
)

// Dispatcher fans one command out to every transport of the process.
type Dispatcher interface {
	Dispatch(ctx context.Context, c command.Command) bus.Report
}

// Speaker is the asynchronous speech output.
type Speaker interface {
	Say(text string)
}

// Result summarizes a finished session.
type Result struct {
	Reason     string
	Dispatched int
	Err        error
}

type noopSpeaker struct{}

func (noopSpeaker) Say(string) {}

// console writes the operator-facing lines that accompany the structured log.
type console struct {
	w io.Writer
}

func (c console) printf(format string, args ...any) {
	if c.w == nil {
		return
	}
	_, _ = fmt.Fprintf(c.w, format+"\n", args...)
}

func dispatch(ctx context.Context, d Dispatcher, logger *slog.Logger, out console, source string, c command.Command) bus.Report {
	out.printf("Broadcasting %q", c.Symbol())
	report := d.Dispatch(ctx, c)
	for _, delivery := range report.Deliveries {
		switch {
		case delivery.OK && delivery.Ack != "":
			out.printf("  %s: %s", delivery.Target, delivery.Ack)
		case delivery.Pending:
			out.printf("  %s: still sending", delivery.Target)
		case delivery.OK:
			out.printf("  %s: sent, no reply", delivery.Target)
		case delivery.Err != nil:
			out.printf("  %s: not delivered: %v", delivery.Target, delivery.Err)
		default:
			out.printf("  %s: not delivered", delivery.Target)
		}
	}
	logger.Info("command dispatched",
		"source", source,
		"dispatch_id", report.ID,
		"symbol", c.Symbol(),
		"delivered", report.Delivered(),
		"pending", report.Pending(),
	)
	return report
}
