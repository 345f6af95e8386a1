// Package serial owns the line-oriented links to the motor and arm microcontrollers.
package serial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/command"
	tarm "github.com/tarm/serial"
)

var (
	// ErrDeviceUnavailable means no candidate device path could be opened.
	ErrDeviceUnavailable = errors.New("serial device unavailable")
	// ErrTransport marks a failed read or write on an open link.
	ErrTransport = errors.New("serial transport failure")
)

// pollInterval bounds each blocking port read so the reader can observe Close.
const pollInterval = 100 * time.Millisecond

// Port is the byte stream behind one endpoint.
type Port interface {
	io.ReadWriteCloser
}

// Dialer opens one device path.
type Dialer func(device string, baud int, readTimeout time.Duration) (Port, error)

// DialTarm opens a real serial device.
func DialTarm(device string, baud int, readTimeout time.Duration) (Port, error) {
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}

// Config describes one controller endpoint.
type Config struct {
	Name        string
	Devices     []string
	Baud        int
	OpenSettle  time.Duration
	WriteSettle time.Duration
	AckWindow   time.Duration
	Dial        Dialer
}

// Ack is the outcome of one send. Written means the line reached the port; Reply is
// the controller's answer, empty when none arrived within the ack window.
type Ack struct {
	Written bool
	Reply   string
}

// Endpoint is a process-exclusive link to one microcontroller. The zero-device form
// (Present() == false) accepts sends and reports them as unacknowledged.
type Endpoint struct {
	name   string
	device string
	cfg    Config
	port   Port
	logger *slog.Logger

	sem     chan struct{}
	replies chan string
	partial atomic.Bool
	alive   atomic.Bool

	mu      sync.Mutex
	lastErr error

	closeOnce    sync.Once
	shutdownOnce sync.Once
	closed       chan struct{}
	readDone     chan struct{}
}

// Open tries cfg.Devices in order and returns the first link that opens. When none
// open, the returned endpoint is absent and LastErr wraps ErrDeviceUnavailable.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) *Endpoint {
	if cfg.Dial == nil {
		cfg.Dial = DialTarm
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "serial", "target", cfg.Name)

	var failures []error
	for _, device := range cfg.Devices {
		device = strings.TrimSpace(device)
		if device == "" {
			continue
		}
		port, err := cfg.Dial(device, cfg.Baud, pollInterval)
		if err != nil {
			logger.Warn("serial open failed", "device", device, "error", err.Error())
			failures = append(failures, fmt.Errorf("%s: %w", device, err))
			continue
		}

		// Microcontrollers reset when the port opens.
		if err := sleepContext(ctx, cfg.OpenSettle); err != nil {
			_ = port.Close()
			return absent(cfg, logger, fmt.Errorf("%w: %s settle interrupted: %v", ErrDeviceUnavailable, cfg.Name, err))
		}

		e := newEndpoint(cfg, device, port, logger)
		logger.Info("serial connected", "device", device, "baud", cfg.Baud)
		return e
	}

	err := fmt.Errorf("%w: %s tried %v", ErrDeviceUnavailable, cfg.Name, cfg.Devices)
	if len(failures) > 0 {
		err = fmt.Errorf("%w: %w", err, errors.Join(failures...))
	}
	logger.Error("serial controller not connected", "devices", cfg.Devices, "error", err.Error())
	return absent(cfg, logger, err)
}

func newEndpoint(cfg Config, device string, port Port, logger *slog.Logger) *Endpoint {
	e := &Endpoint{
		name:     cfg.Name,
		device:   device,
		cfg:      cfg,
		port:     port,
		logger:   logger.With("device", device),
		sem:      make(chan struct{}, 1),
		replies:  make(chan string, 8),
		closed:   make(chan struct{}),
		readDone: make(chan struct{}),
	}
	e.alive.Store(true)
	go e.readLoop()
	return e
}

func absent(cfg Config, logger *slog.Logger, err error) *Endpoint {
	e := &Endpoint{
		name:   cfg.Name,
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	e.lastErr = err
	return e
}

// Name returns the logical controller name.
func (e *Endpoint) Name() string { return e.name }

// Device returns the opened device path, empty when absent.
func (e *Endpoint) Device() string { return e.device }

// Present reports whether a device was opened.
func (e *Endpoint) Present() bool { return e.port != nil }

// Alive reports whether the link is open and has not failed.
func (e *Endpoint) Alive() bool { return e.alive.Load() }

// LastErr returns the most recent open or transport error.
func (e *Endpoint) LastErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Send writes one command and reports true when the controller answered within the
// ack window. A written line without a reply is Ack{Written: true}, false. Failures
// are logged and reported as (Ack{}, false).
func (e *Endpoint) Send(ctx context.Context, c command.Command) (Ack, bool) {
	if !e.Present() {
		e.logger.Warn("serial send skipped; controller not connected", "symbol", c.Symbol())
		return Ack{}, false
	}
	if !c.Valid() {
		e.logger.Warn("serial send rejected invalid command", "command", string(c))
		return Ack{}, false
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		e.logger.Warn("serial send abandoned", "symbol", c.Symbol(), "error", ctx.Err().Error())
		return Ack{}, false
	}
	defer func() { <-e.sem }()

	return e.sendLocked(ctx, c)
}

func (e *Endpoint) sendLocked(ctx context.Context, c command.Command) (Ack, bool) {
	select {
	case <-e.closed:
		e.logger.Warn("serial send on closed link", "symbol", c.Symbol())
		return Ack{}, false
	default:
	}
	if !e.Alive() {
		e.logger.Warn("serial send on failed link", "symbol", c.Symbol())
		return Ack{}, false
	}

	e.drainReplies()
	if _, err := io.WriteString(e.port, c.Line()); err != nil {
		e.fail(fmt.Errorf("%w: write %s to %s: %v", ErrTransport, c.Symbol(), e.device, err))
		return Ack{}, false
	}
	e.logger.Debug("serial command written", "symbol", c.Symbol())

	written := Ack{Written: true}
	if err := sleepContext(ctx, e.cfg.WriteSettle); err != nil {
		return written, false
	}

	select {
	case reply := <-e.replies:
		e.logger.Info("serial reply", "symbol", c.Symbol(), "reply", reply)
		return Ack{Written: true, Reply: reply}, true
	default:
	}
	if !e.partial.Load() {
		return written, false
	}

	timer := time.NewTimer(e.ackWindow())
	defer timer.Stop()
	select {
	case reply := <-e.replies:
		e.logger.Info("serial reply", "symbol", c.Symbol(), "reply", reply)
		return Ack{Written: true, Reply: reply}, true
	case <-timer.C:
		e.logger.Debug("serial reply incomplete", "symbol", c.Symbol())
		return written, false
	case <-ctx.Done():
		return written, false
	}
}

// Shutdown sends exactly one final Stop and closes the link. Later calls are no-ops.
func (e *Endpoint) Shutdown(ctx context.Context) {
	e.shutdownOnce.Do(func() {
		if e.Present() {
			e.logger.Info("serial final stop")
			_, _ = e.Send(ctx, command.Stop)
		}
		e.Close()
	})
}

// Close releases the port without sending anything.
func (e *Endpoint) Close() {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.alive.Store(false)
		if e.port == nil {
			return
		}
		if err := e.port.Close(); err != nil {
			e.logger.Debug("serial close failed", "error", err.Error())
		}
		select {
		case <-e.readDone:
		case <-time.After(2 * pollInterval):
		}
		e.logger.Info("serial connection closed")
	})
}

// readLoop queues complete reply lines and tracks whether a partial line is buffered.
// Read timeouts surface as io.EOF and are retried; any other error ends the link.
func (e *Endpoint) readLoop() {
	defer close(e.readDone)

	buf := make([]byte, 256)
	var pending []byte
	for {
		n, err := e.port.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				e.pushReply(strings.TrimSpace(string(pending[:i])))
				pending = pending[i+1:]
			}
			e.partial.Store(len(pending) > 0)
		}
		if err == nil {
			continue
		}

		if e.isClosed() {
			return
		}
		if errors.Is(err, io.EOF) {
			select {
			case <-e.closed:
				return
			case <-time.After(pollInterval / 10):
			}
			continue
		}
		e.fail(fmt.Errorf("%w: read from %s: %v", ErrTransport, e.device, err))
		return
	}
}

func (e *Endpoint) pushReply(reply string) {
	if reply == "" {
		return
	}
	for {
		select {
		case e.replies <- reply:
			return
		default:
		}
		select {
		case <-e.replies:
		default:
		}
	}
}

func (e *Endpoint) drainReplies() {
	for {
		select {
		case stale := <-e.replies:
			e.logger.Debug("serial unsolicited reply", "reply", stale)
		default:
			return
		}
	}
}

func (e *Endpoint) fail(err error) {
	e.alive.Store(false)
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	e.logger.Error("serial transport error", "error", err.Error())
}

func (e *Endpoint) isClosed() bool {
	select {
	case <-e.closed:
		return true
	default:
		return false
	}
}

func (e *Endpoint) ackWindow() time.Duration {
	if e.cfg.AckWindow <= 0 {
		return time.Second
	}
	return e.cfg.AckWindow
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
