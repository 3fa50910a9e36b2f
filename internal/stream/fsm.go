package stream

import "time"

// State is a phase of the collector connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateStreaming
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Event is an input to the connection state machine.
type Event int

const (
	// EventStart begins a connection attempt.
	EventStart Event = iota
	// EventConnected signals a successful dial.
	EventConnected
	// EventSubscribed signals that all subscribe frames were accepted.
	EventSubscribed
	// EventFailure signals any transport or subscribe error.
	EventFailure
	// EventRetry re-enters Connecting after the backoff wait.
	EventRetry
)

// Transition is the result of applying an Event to a State.
type Transition struct {
	// Next is the state to enter.
	Next State
	// Wait is how long the host must sleep before acting on Next.
	// Nonzero only when entering Reconnecting.
	Wait time.Duration
	// Backoff is the wait to use on the next failure.
	Backoff time.Duration
}

// Next is the pure transition function for the connection lifecycle.
// backoff is the current reconnect wait; base and max bound it. On
// failure the returned Wait is the current backoff and Backoff doubles
// up to max. Reaching Streaming resets Backoff to base. Events that do
// not apply to the current state leave it unchanged.
func Next(s State, ev Event, backoff, base, max time.Duration) Transition {
	switch ev {
	case EventStart:
		if s == StateDisconnected {
			return Transition{Next: StateConnecting, Backoff: backoff}
		}
	case EventConnected:
		if s == StateConnecting {
			return Transition{Next: StateSubscribing, Backoff: backoff}
		}
	case EventSubscribed:
		if s == StateSubscribing {
			return Transition{Next: StateStreaming, Backoff: base}
		}
	case EventFailure:
		next := backoff * 2
		if next > max {
			next = max
		}
		return Transition{Next: StateReconnecting, Wait: backoff, Backoff: next}
	case EventRetry:
		if s == StateReconnecting {
			return Transition{Next: StateConnecting, Backoff: backoff}
		}
	}
	return Transition{Next: s, Backoff: backoff}
}

// FSM tracks the connection lifecycle for a single collector. It is
// not safe for concurrent use; the collector drives it from one
// goroutine.
type FSM struct {
	base    time.Duration
	max     time.Duration
	state   State
	backoff time.Duration
}

// NewFSM returns a machine in StateDisconnected with its backoff at base.
func NewFSM(base, max time.Duration) *FSM {
	return &FSM{base: base, max: max, state: StateDisconnected, backoff: base}
}

// State reports the current state.
func (f *FSM) State() State {
	return f.state
}

// Apply feeds ev to the machine and returns the resulting transition.
func (f *FSM) Apply(ev Event) Transition {
	tr := Next(f.state, ev, f.backoff, f.base, f.max)
	f.state = tr.Next
	f.backoff = tr.Backoff
	return tr
}
