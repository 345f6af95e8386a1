// Package fsm holds the wave trigger state machine.
package fsm

import "fmt"

// State is a wave trigger state.
type State string

// Event moves the trigger between states.
type Event string

const (
	StateIdle     State = "idle"
	StateArmed    State = "armed"
	StateCooldown State = "cooldown"
)

const (
	// EventArm is raised on a frame where no trigger has happened yet or the cooldown has elapsed.
	EventArm Event = "arm"
	// EventFire is raised when a wave is sent.
	EventFire Event = "fire"
	// EventReset returns to idle from any state after a gap in the frame stream.
	EventReset Event = "reset"
)

// Transition returns the state after event. Invalid pairs leave current unchanged
// and return an error.
func Transition(current State, event Event) (State, error) {
	if event == EventReset {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventArm:
			return StateArmed, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateArmed:
		switch event {
		case EventArm:
			return StateArmed, nil
		case EventFire:
			return StateCooldown, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCooldown:
		switch event {
		case EventArm:
			return StateArmed, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
