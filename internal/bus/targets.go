package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/command"
	"github.com/Jagadish0216/Humanised-Robot/internal/ipc"
	"github.com/Jagadish0216/Humanised-Robot/internal/serial"
)

// ErrNotWritten is reported when a command never reached the serial port.
var ErrNotWritten = errors.New("command not written")

// Endpoint is the serial link surface the bus needs.
type Endpoint interface {
	Name() string
	Send(ctx context.Context, c command.Command) (serial.Ack, bool)
	LastErr() error
	Shutdown(ctx context.Context)
}

// SerialTarget delivers to a controller this process owns.
type SerialTarget struct {
	Endpoint Endpoint
}

func (t SerialTarget) Name() string { return t.Endpoint.Name() }

// Deliver succeeds once the line is written. Controllers often stay silent, so a
// missing reply only leaves Ack empty.
func (t SerialTarget) Deliver(ctx context.Context, c command.Command) Delivery {
	ack, _ := t.Endpoint.Send(ctx, c)
	if !ack.Written {
		err := ErrNotWritten
		if last := t.Endpoint.LastErr(); last != nil {
			err = fmt.Errorf("%w: %w", ErrNotWritten, last)
		}
		return Delivery{Err: err}
	}
	return Delivery{OK: true, Ack: ack.Reply}
}

// Stop sends the endpoint's single final Stop and closes it.
func (t SerialTarget) Stop(ctx context.Context) {
	t.Endpoint.Shutdown(ctx)
}

// ChannelTarget relays to the peer process through the named pipe.
type ChannelTarget struct {
	Peer         string
	Path         string
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

func (t ChannelTarget) Name() string { return t.Peer + "@" + t.Path }

func (t ChannelTarget) Deliver(ctx context.Context, c command.Command) Delivery {
	if err := t.write(ctx, c); err != nil {
		return Delivery{Err: err}
	}
	return Delivery{OK: true}
}

// Stop relays a best-effort Stop to the peer.
func (t ChannelTarget) Stop(ctx context.Context) {
	if err := t.write(ctx, command.Stop); err != nil && t.Logger != nil {
		t.Logger.Warn("final stop not relayed", "target", t.Name(), "error", err.Error())
	}
}

func (t ChannelTarget) write(ctx context.Context, c command.Command) error {
	timeout := t.WriteTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return ipc.Write(writeCtx, t.Path, c)
}
