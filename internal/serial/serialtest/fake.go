// Package serialtest provides in-memory controller ports for tests.
package serialtest

import (
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/serial"
)

// Port is an in-memory controller. Written lines are recorded; Respond, when set,
// returns the reply line for each written line ("" means no reply).
type Port struct {
	Respond func(line string) string
	// WriteDelay stalls every write to simulate a slow device.
	WriteDelay time.Duration
	WriteErr   error

	mu      sync.Mutex
	written []string
	pending []byte
	ready   chan struct{}
	closed  chan struct{}
	once    sync.Once
}

// NewPort creates an open fake port.
func NewPort() *Port {
	return &Port{
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Write records one command line.
func (p *Port) Write(b []byte) (int, error) {
	if p.WriteDelay > 0 {
		select {
		case <-time.After(p.WriteDelay):
		case <-p.closed:
			return 0, io.ErrClosedPipe
		}
	}
	if p.WriteErr != nil {
		return 0, p.WriteErr
	}
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	line := strings.TrimRight(string(b), "\r\n")
	p.mu.Lock()
	p.written = append(p.written, line)
	respond := p.Respond
	p.mu.Unlock()

	if respond != nil {
		if reply := respond(line); reply != "" {
			p.Inject(reply + "\n")
		}
	}
	return len(b), nil
}

// Inject queues raw bytes for the reader side.
func (p *Port) Inject(raw string) {
	p.mu.Lock()
	p.pending = append(p.pending, raw...)
	p.mu.Unlock()
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

// Read returns injected bytes, or io.EOF after a short wait like a serial read timeout.
func (p *Port) Read(b []byte) (int, error) {
	for {
		p.mu.Lock()
		if len(p.pending) > 0 {
			n := copy(b, p.pending)
			p.pending = p.pending[n:]
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()

		select {
		case <-p.closed:
			return 0, io.ErrClosedPipe
		case <-p.ready:
		case <-time.After(20 * time.Millisecond):
			return 0, io.EOF
		}
	}
}

// Close closes the port once.
func (p *Port) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// Closed reports whether Close was called.
func (p *Port) Closed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// Written returns a snapshot of recorded lines.
func (p *Port) Written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

// Count returns how many times line was written.
func (p *Port) Count(line string) int {
	n := 0
	for _, w := range p.Written() {
		if w == line {
			n++
		}
	}
	return n
}

// ErrNoDevice is returned by Dialer for unknown paths.
var ErrNoDevice = errors.New("no such device")

// Dialer serves ports by device path and fails for any other path.
func Dialer(ports map[string]*Port) serial.Dialer {
	return func(device string, _ int, _ time.Duration) (serial.Port, error) {
		port, ok := ports[device]
		if !ok {
			return nil, ErrNoDevice
		}
		return port, nil
	}
}
