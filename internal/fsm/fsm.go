package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateStopped    State = "stopped"
	StateProcessing State = "processing"
)

const (
	EventStart        Event = "start"
	EventStop         Event = "stop"
	EventSubmit       Event = "submit"
	EventSubmitOK     Event = "submit_ok"
	EventSubmitFailed Event = "submit_failed"
)

// Transition returns the next state for one session event.
//
// EventStop outside recording is a no-op rather than an error: stop
// requests are idempotent across every trigger source (user, engine end,
// engine error, timer ceiling).
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		case EventStop:
			return current, nil
		case EventSubmit:
			return StateProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateStopped, nil
		case EventSubmit:
			return StateProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopped:
		switch event {
		case EventStart:
			return StateRecording, nil
		case EventStop:
			return current, nil
		case EventSubmit:
			return StateProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventSubmitOK, EventSubmitFailed:
			return StateStopped, nil
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
