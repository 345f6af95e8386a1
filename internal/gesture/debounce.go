// Package gesture turns per-frame hand-raise observations into single wave triggers.
package gesture

import (
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/fsm"
)

// DefaultCooldown separates consecutive wave triggers.
const DefaultCooldown = 10 * time.Second

// Outcome describes what one observed frame did to the debouncer.
type Outcome struct {
	Fired bool
	// Suppressed is a rising edge that arrived during cooldown.
	Suppressed bool
	Remaining  time.Duration
	State      fsm.State
}

// Debouncer fires once per rising edge of the active signal, at most once per cooldown.
// It is owned by a single frame loop and is not safe for concurrent use.
type Debouncer struct {
	cooldown time.Duration

	state             fsm.State
	activeLastFrame   bool
	lastTrigger       time.Time
	everFired         bool
	firedThisCooldown bool
}

func NewDebouncer(cooldown time.Duration) *Debouncer {
	if cooldown < 0 {
		cooldown = 0
	}
	return &Debouncer{cooldown: cooldown, state: fsm.StateIdle}
}

// Observe processes one frame that contains a subject.
func (d *Debouncer) Observe(now time.Time, active bool) Outcome {
	if !d.everFired || now.Sub(d.lastTrigger) >= d.cooldown {
		d.firedThisCooldown = false
		d.apply(fsm.EventArm)
	}

	rising := active && !d.activeLastFrame
	d.activeLastFrame = active

	out := Outcome{}
	switch {
	case rising && d.state == fsm.StateArmed && !d.firedThisCooldown:
		d.lastTrigger = now
		d.everFired = true
		d.firedThisCooldown = true
		d.apply(fsm.EventFire)
		out.Fired = true
	case rising:
		out.Suppressed = true
		out.Remaining = d.Remaining(now)
	}
	out.State = d.state
	return out
}

// NoSubject records a frame without a detected body. The cooldown timer is untouched.
func (d *Debouncer) NoSubject() {
	d.activeLastFrame = false
}

// Remaining is the cooldown left at now; zero when a trigger is allowed.
func (d *Debouncer) Remaining(now time.Time) time.Duration {
	if !d.everFired {
		return 0
	}
	left := d.lastTrigger.Add(d.cooldown).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Reset returns to idle and forgets the previous frame after a gap in the stream.
// The cooldown timer is kept.
func (d *Debouncer) Reset() {
	d.activeLastFrame = false
	d.apply(fsm.EventReset)
}

func (d *Debouncer) State() fsm.State {
	return d.state
}

func (d *Debouncer) apply(event fsm.Event) {
	if next, err := fsm.Transition(d.state, event); err == nil {
		d.state = next
	}
}
