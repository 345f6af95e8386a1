// Package bus fans canonical commands out to every transport a process owns.
//
// Each target gets its own ordered lane so a slow or blocked transport never
// delays delivery to the others.
package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/command"
	"github.com/google/uuid"
)

var (
	// ErrClosed is reported for dispatches after Shutdown.
	ErrClosed = errors.New("command bus closed")
	// ErrLaneFull is reported when a target's queue stayed full for the whole join window.
	ErrLaneFull = errors.New("target queue full")
)

const (
	defaultJoinTimeout = time.Second
	defaultQueueDepth  = 16
)

// Target is one transport a command can be delivered to.
type Target interface {
	Name() string
	Deliver(ctx context.Context, c command.Command) Delivery
	// Stop performs the target's final shutdown action.
	Stop(ctx context.Context)
}

// Delivery is the outcome of one command on one target. OK means the transport
// accepted the command; Ack holds a reply when the target sent one.
type Delivery struct {
	Target  string
	OK      bool
	Ack     string
	Err     error
	Pending bool
}

// Report summarizes one Dispatch.
type Report struct {
	ID         string
	Command    command.Command
	Deliveries []Delivery
}

// Delivered counts targets that accepted the command.
func (r Report) Delivered() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.OK {
			n++
		}
	}
	return n
}

// Pending counts deliveries still running in the background when Dispatch returned.
func (r Report) Pending() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Pending {
			n++
		}
	}
	return n
}

// Config tunes dispatch timing.
type Config struct {
	JoinTimeout time.Duration
	QueueDepth  int
}

type job struct {
	ctx    context.Context
	id     string
	cmd    command.Command
	result chan Delivery
}

type lane struct {
	target Target
	jobs   chan job
	done   chan struct{}
}

// Bus owns one lane per target.
type Bus struct {
	cfg    Config
	logger *slog.Logger
	lanes  []*lane

	mu     sync.RWMutex
	closed bool
}

// New starts one lane per target.
func New(cfg Config, logger *slog.Logger, targets ...Target) *Bus {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = defaultJoinTimeout
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b := &Bus{cfg: cfg, logger: logger.With("component", "bus")}
	for _, target := range targets {
		l := &lane{
			target: target,
			jobs:   make(chan job, cfg.QueueDepth),
			done:   make(chan struct{}),
		}
		b.lanes = append(b.lanes, l)
		go b.run(l)
	}
	return b
}

// Targets lists target names in registration order.
func (b *Bus) Targets() []string {
	names := make([]string, 0, len(b.lanes))
	for _, l := range b.lanes {
		names = append(names, l.target.Name())
	}
	return names
}

func (b *Bus) run(l *lane) {
	defer close(l.done)
	for j := range l.jobs {
		d := l.target.Deliver(j.ctx, j.cmd)
		d.Target = l.target.Name()

		attrs := []any{"dispatch_id", j.id, "target", d.Target, "symbol", j.cmd.Symbol()}
		switch {
		case d.OK && d.Ack != "":
			b.logger.Info("command delivered", append(attrs, "ack", d.Ack)...)
		case d.OK:
			b.logger.Info("command delivered", attrs...)
		case d.Err != nil:
			b.logger.Warn("command not delivered", append(attrs, "error", d.Err.Error())...)
		default:
			b.logger.Warn("command not delivered", attrs...)
		}
		j.result <- d
	}
}

// Dispatch queues c on every lane, then waits up to JoinTimeout for the deliveries.
// Deliveries still running at the deadline continue and are reported as pending.
func (b *Bus) Dispatch(ctx context.Context, c command.Command) Report {
	report := Report{ID: uuid.NewString(), Command: c}
	report.Deliveries = make([]Delivery, len(b.lanes))

	deadline := time.NewTimer(b.cfg.JoinTimeout)
	defer deadline.Stop()

	results := make([]chan Delivery, len(b.lanes))
	expired := false

	b.mu.RLock()
	for i, l := range b.lanes {
		report.Deliveries[i].Target = l.target.Name()
		if b.closed {
			report.Deliveries[i].Err = ErrClosed
			continue
		}

		j := job{ctx: ctx, id: report.ID, cmd: c, result: make(chan Delivery, 1)}
		if expired {
			select {
			case l.jobs <- j:
				results[i] = j.result
			default:
				report.Deliveries[i].Err = ErrLaneFull
			}
			continue
		}
		select {
		case l.jobs <- j:
			results[i] = j.result
		case <-deadline.C:
			expired = true
			report.Deliveries[i].Err = ErrLaneFull
		case <-ctx.Done():
			report.Deliveries[i].Err = ctx.Err()
		}
	}
	b.mu.RUnlock()

	for i, result := range results {
		if result == nil {
			continue
		}
		if expired {
			select {
			case d := <-result:
				report.Deliveries[i] = d
			default:
				report.Deliveries[i].Pending = true
			}
			continue
		}
		select {
		case d := <-result:
			report.Deliveries[i] = d
		case <-deadline.C:
			expired = true
			report.Deliveries[i].Pending = true
		}
	}

	if report.Pending() > 0 {
		b.logger.Warn("dispatch returned with pending deliveries",
			"dispatch_id", report.ID,
			"symbol", c.Symbol(),
			"pending", report.Pending(),
		)
	}
	return report
}

// Shutdown stops accepting commands, lets queued work drain until ctx is done,
// then runs every target's final Stop once. Later calls are no-ops.
func (b *Bus) Shutdown(ctx context.Context) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, l := range b.lanes {
		close(l.jobs)
	}
	b.mu.Unlock()

	for _, l := range b.lanes {
		select {
		case <-l.done:
		case <-ctx.Done():
			b.logger.Warn("target still busy at shutdown", "target", l.target.Name())
		}
	}

	var wg sync.WaitGroup
	for _, l := range b.lanes {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			t.Stop(ctx)
		}(l.target)
	}
	wg.Wait()
	b.logger.Info("command bus stopped")
}
