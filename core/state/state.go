// Package state models the connection lifecycle shown by the front end.
package state

import "fmt"

// Kind identifies one of the four connection states.
type Kind int

const (
	KindDisconnected Kind = iota
	KindConnecting
	KindConnected
	KindDisconnecting
)

func (k Kind) String() string {
	switch k {
	case KindDisconnected:
		return "disconnected"
	case KindConnecting:
		return "connecting"
	case KindConnected:
		return "connected"
	case KindDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is an input control governed by the connection state.
type Field int

const (
	FieldPreset Field = iota
	FieldHostname
	FieldPort
	FieldPassword
	FieldEncoding
	FieldNick
	FieldChannel
	FieldQuitMessage
	FieldRuleSet
)

// AllFields lists every governed input control.
var AllFields = []Field{
	FieldPreset,
	FieldHostname,
	FieldPort,
	FieldPassword,
	FieldEncoding,
	FieldNick,
	FieldChannel,
	FieldQuitMessage,
	FieldRuleSet,
}

func (f Field) String() string {
	switch f {
	case FieldPreset:
		return "preset"
	case FieldHostname:
		return "hostname"
	case FieldPort:
		return "port"
	case FieldPassword:
		return "password"
	case FieldEncoding:
		return "encoding"
	case FieldNick:
		return "nick"
	case FieldChannel:
		return "channel"
	case FieldQuitMessage:
		return "quit_message"
	case FieldRuleSet:
		return "rule_set"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Button labels.
const (
	ConnectLabel    = "Connect"
	DisconnectLabel = "Disconnect"
)

// State holds the presentation attributes of one connection state.
// The four values are package singletons and are compared by pointer.
type State struct {
	Kind Kind
	// FormEnabled applies to every Field.
	FormEnabled   bool
	ButtonLabel   string
	ButtonEnabled bool
	// NotifiesRuleSetChange marks states where a rule-set change re-renders the title and status.
	NotifiesRuleSetChange bool
}

var (
	Disconnected = &State{
		Kind:          KindDisconnected,
		FormEnabled:   true,
		ButtonLabel:   ConnectLabel,
		ButtonEnabled: true,
	}
	Connecting = &State{
		Kind:        KindConnecting,
		ButtonLabel: ConnectLabel,
	}
	Connected = &State{
		Kind:                  KindConnected,
		ButtonLabel:           DisconnectLabel,
		ButtonEnabled:         true,
		NotifiesRuleSetChange: true,
	}
	Disconnecting = &State{
		Kind:        KindDisconnecting,
		ButtonLabel: DisconnectLabel,
	}
)

// All returns the four states in lifecycle order.
func All() []*State {
	return []*State{Disconnected, Connecting, Connected, Disconnecting}
}

func (s *State) String() string {
	return s.Kind.String()
}

// FieldEnabled reports whether the given input accepts edits in this state.
func (s *State) FieldEnabled(f Field) bool {
	return s.FormEnabled
}

// EnabledFields returns the inputs that accept edits in this state.
func (s *State) EnabledFields() []Field {
	var out []Field
	for _, f := range AllFields {
		if s.FieldEnabled(f) {
			out = append(out, f)
		}
	}
	return out
}

// Busy reports whether a network client is, or may still be, running.
func (s *State) Busy() bool {
	return s != Disconnected
}
