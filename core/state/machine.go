package state

import (
	"fmt"
	"log"

	"bcdice-irc/core/config"
	"bcdice-irc/internal/constants"
	"bcdice-irc/internal/observer"
)

// Change describes one processed event.
type Change struct {
	From   *State
	To     *State
	Event  Event
	Effect Effect
	// Err is the connection failure for EffectShowError.
	Err error
}

// RuleSetChange is published when the active rule set changes.
type RuleSetChange struct {
	ID   string
	Name string
	// Refresh is true when the current state renders the rule set in its title.
	Refresh bool
}

// Machine tracks the active state together with the snapshot of the
// connection it describes. It must only be used from the front end's own
// execution context and is not safe for concurrent use.
type Machine struct {
	current   *State
	active    config.ConnectionConfig
	hasActive bool
	lastErr   error
	ruleSetID string
	nameOf    func(id string) string

	StateChanged   observer.Subject[Change]
	RuleSetChanged observer.Subject[RuleSetChange]
}

// NewMachine returns a Machine in Disconnected. nameOf resolves rule-set
// display names and may be nil.
func NewMachine(ruleSetID string, nameOf func(id string) string) *Machine {
	if nameOf == nil {
		nameOf = func(id string) string { return id }
	}
	return &Machine{
		current:   Disconnected,
		ruleSetID: ruleSetID,
		nameOf:    nameOf,
	}
}

// Current returns the active state.
func (m *Machine) Current() *State {
	return m.current
}

// Active returns the snapshot of the last connection attempt.
func (m *Machine) Active() (config.ConnectionConfig, bool) {
	return m.active, m.hasActive
}

// LastError returns the cause of the most recent failed attempt, if any.
func (m *Machine) LastError() error {
	return m.lastErr
}

// RuleSetID returns the active rule set.
func (m *Machine) RuleSetID() string {
	return m.ruleSetID
}

func (m *Machine) fire(ev Event, cause error) (Effect, error) {
	from := m.current
	to, effect, err := Transition(from, ev)
	if err != nil {
		log.Printf("Machine: %v", err)
		return EffectNone, err
	}

	switch ev {
	case EventConnectFailed:
		m.lastErr = cause
	case EventConnectRequested:
		m.lastErr = nil
	}
	m.current = to

	if from != to {
		log.Printf("Machine: %s -> %s (%s)", from, to, ev)
	}
	m.StateChanged.Publish(Change{From: from, To: to, Event: ev, Effect: effect, Err: cause})
	return effect, nil
}

// RequestConnect validates cfg, captures it as the active snapshot and moves
// to Connecting. The returned copy is what the network client must use.
func (m *Machine) RequestConnect(cfg config.ConnectionConfig) (config.ConnectionConfig, error) {
	if _, _, err := Transition(m.current, EventConnectRequested); err != nil {
		return config.ConnectionConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.ConnectionConfig{}, fmt.Errorf("invalid connection settings: %w", err)
	}

	m.active = cfg.Clone()
	m.hasActive = true
	if cfg.RuleSetID != "" {
		m.ruleSetID = cfg.RuleSetID
	}
	if _, err := m.fire(EventConnectRequested, nil); err != nil {
		return config.ConnectionConfig{}, err
	}
	return m.active.Clone(), nil
}

// ConnectSucceeded handles the client's registration with the server.
func (m *Machine) ConnectSucceeded() error {
	_, err := m.fire(EventConnected, nil)
	return err
}

// ConnectFailed records cause and returns to Disconnected.
func (m *Machine) ConnectFailed(cause error) error {
	_, err := m.fire(EventConnectFailed, cause)
	return err
}

// RequestDisconnect moves Connected to Disconnecting.
// It fails with ErrInvalidTransition while a connection attempt is in progress.
func (m *Machine) RequestDisconnect() error {
	_, err := m.fire(EventDisconnectRequested, nil)
	return err
}

// ClientStopped handles a graceful end of the network client.
func (m *Machine) ClientStopped() error {
	_, err := m.fire(EventClientStopped, nil)
	return err
}

// RequestQuit records an application shutdown request. The state is kept;
// the caller performs EffectShutdown.
func (m *Machine) RequestQuit() Effect {
	effect, _ := m.fire(EventQuitRequested, nil)
	return effect
}

// SelectRuleSet changes the rule set chosen in the form while disconnected.
func (m *Machine) SelectRuleSet(id string) {
	m.ruleSetID = id
}

// ChangeRuleSet applies a rule-set change reported by the network client.
// It reports whether the title and status need re-rendering.
func (m *Machine) ChangeRuleSet(id string) bool {
	m.ruleSetID = id
	if m.hasActive {
		m.active.RuleSetID = id
	}
	effect, _ := m.fire(EventRuleSetChanged, nil)
	refresh := effect == EffectRefresh
	m.RuleSetChanged.Publish(RuleSetChange{ID: id, Name: m.nameOf(id), Refresh: refresh})
	return refresh
}

// Status is the human-readable connection status line.
func (m *Machine) Status() string {
	host := m.active.Hostname
	switch m.current {
	case Connecting:
		return fmt.Sprintf("Connecting to %s...", host)
	case Connected:
		return fmt.Sprintf("Connected to %s", m.active.Endpoint())
	case Disconnecting:
		return "Disconnecting..."
	}

	switch {
	case !m.hasActive:
		return "Not connected"
	case m.lastErr != nil:
		return fmt.Sprintf("Could not connect to %s", host)
	default:
		return fmt.Sprintf("Disconnected from %s", host)
	}
}

// Title is the main window title.
func (m *Machine) Title() string {
	if m.current == Connected {
		return fmt.Sprintf("%s [%s] - %s", m.active.Endpoint(), m.nameOf(m.ruleSetID), constants.AppName)
	}
	return constants.AppName
}
