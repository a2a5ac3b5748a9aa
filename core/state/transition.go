package state

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for events the current state does not accept.
var ErrInvalidTransition = errors.New("invalid state transition")

// Event is an input to the state machine.
type Event int

const (
	EventConnectRequested Event = iota
	EventConnected
	EventConnectFailed
	EventDisconnectRequested
	EventClientStopped
	EventRuleSetChanged
	EventQuitRequested
)

func (e Event) String() string {
	switch e {
	case EventConnectRequested:
		return "connect-requested"
	case EventConnected:
		return "connected"
	case EventConnectFailed:
		return "connect-failed"
	case EventDisconnectRequested:
		return "disconnect-requested"
	case EventClientStopped:
		return "client-stopped"
	case EventRuleSetChanged:
		return "rule-set-changed"
	case EventQuitRequested:
		return "quit-requested"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Effect is the side effect the caller must perform after a transition.
type Effect int

const (
	EffectNone Effect = iota
	// EffectStartClient starts the network client with the captured snapshot.
	EffectStartClient
	// EffectStopClient asks the running network client to quit.
	EffectStopClient
	// EffectShowError surfaces the connection failure to the user.
	EffectShowError
	// EffectRefresh re-renders title and status without a state change.
	EffectRefresh
	// EffectShutdown stops any client, waits for it, and lets the process exit.
	EffectShutdown
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectStartClient:
		return "start-client"
	case EffectStopClient:
		return "stop-client"
	case EffectShowError:
		return "show-error"
	case EffectRefresh:
		return "refresh"
	case EffectShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("effect(%d)", int(e))
	}
}

// Transition computes the next state and side effect for ev in s.
//
// Disconnect requests are only accepted once Connected; a connection attempt
// in progress runs until the client's own connect timeout resolves it.
func Transition(s *State, ev Event) (*State, Effect, error) {
	switch ev {
	case EventQuitRequested:
		return s, EffectShutdown, nil
	case EventRuleSetChanged:
		if s.NotifiesRuleSetChange {
			return s, EffectRefresh, nil
		}
		return s, EffectNone, nil
	}

	switch s {
	case Disconnected:
		if ev == EventConnectRequested {
			return Connecting, EffectStartClient, nil
		}
	case Connecting:
		switch ev {
		case EventConnected:
			return Connected, EffectNone, nil
		case EventConnectFailed:
			return Disconnected, EffectShowError, nil
		case EventClientStopped:
			return Disconnected, EffectNone, nil
		}
	case Connected:
		switch ev {
		case EventDisconnectRequested:
			return Disconnecting, EffectStopClient, nil
		case EventConnectFailed:
			return Disconnected, EffectShowError, nil
		case EventClientStopped:
			return Disconnected, EffectNone, nil
		}
	case Disconnecting:
		switch ev {
		case EventClientStopped:
			return Disconnected, EffectNone, nil
		case EventConnectFailed:
			return Disconnected, EffectShowError, nil
		}
	}
	return s, EffectNone, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev, s)
}
