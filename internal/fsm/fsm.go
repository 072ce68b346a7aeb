// Package fsm defines the voice session lifecycle state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateErrored   State = "errored"
)

const (
	// EventStarted fires when the recognition engine confirms capture began.
	EventStarted Event = "started"
	// EventStop fires when the user requests a stop while listening.
	EventStop Event = "stop"
	// EventEnd fires when the engine terminates the session on its own.
	EventEnd Event = "end"
	EventFail  Event = "fail"
	EventReset Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateErrored, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStarted:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventStop, EventEnd:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateErrored:
		switch event {
		case EventReset:
			return StateIdle, nil
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
