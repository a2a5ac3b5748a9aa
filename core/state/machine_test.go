package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bcdice-irc/core/config"
)

func testConfig() config.ConnectionConfig {
	c := config.DefaultConnectionConfig()
	c.Hostname = "irc.example.net"
	c.Port = 6667
	c.RuleSetID = "Cthulhu"
	return c
}

func names(id string) string {
	if id == "Cthulhu" {
		return "Call of Cthulhu"
	}
	return id
}

func TestMachineConnectLifecycle(t *testing.T) {
	m := NewMachine(config.DefaultRuleSetID, names)
	var changes []Change
	m.StateChanged.Subscribe(func(c Change) { changes = append(changes, c) })

	assert.Same(t, Disconnected, m.Current())
	assert.Equal(t, "Not connected", m.Status())

	form := testConfig()
	snapshot, err := m.RequestConnect(form)
	require.NoError(t, err)
	assert.Same(t, Connecting, m.Current())
	assert.Equal(t, "Connecting to irc.example.net...", m.Status())
	assert.Equal(t, "Cthulhu", m.RuleSetID())

	form.Hostname = "edited.example.net"
	active, ok := m.Active()
	assert.True(t, ok)
	assert.Equal(t, "irc.example.net", active.Hostname)
	assert.Equal(t, "irc.example.net", snapshot.Hostname)

	require.NoError(t, m.ConnectSucceeded())
	assert.Same(t, Connected, m.Current())
	assert.Equal(t, "Connected to irc.example.net:6667", m.Status())
	assert.Equal(t, "irc.example.net:6667 [Call of Cthulhu] - BCDice IRC", m.Title())

	require.NoError(t, m.RequestDisconnect())
	assert.Same(t, Disconnecting, m.Current())
	assert.Equal(t, "Disconnecting...", m.Status())

	require.NoError(t, m.ClientStopped())
	assert.Same(t, Disconnected, m.Current())
	assert.Equal(t, "Disconnected from irc.example.net", m.Status())
	assert.Equal(t, "BCDice IRC", m.Title())

	require.Len(t, changes, 4)
	assert.Equal(t, EffectStartClient, changes[0].Effect)
	assert.Equal(t, EffectStopClient, changes[2].Effect)
}

func TestMachineConnectFailure(t *testing.T) {
	m := NewMachine(config.DefaultRuleSetID, nil)
	var shown error
	m.StateChanged.Subscribe(func(c Change) {
		if c.Effect == EffectShowError {
			shown = c.Err
		}
	})

	_, err := m.RequestConnect(testConfig())
	require.NoError(t, err)

	cause := errors.New("connection refused")
	require.NoError(t, m.ConnectFailed(cause))

	assert.Same(t, Disconnected, m.Current())
	assert.Equal(t, cause, shown)
	assert.Equal(t, cause, m.LastError())
	assert.Equal(t, "Could not connect to irc.example.net", m.Status())

	_, err = m.RequestConnect(testConfig())
	require.NoError(t, err)
	assert.Nil(t, m.LastError())
}

func TestMachineRejectsInvalidRequests(t *testing.T) {
	m := NewMachine(config.DefaultRuleSetID, nil)

	bad := testConfig()
	bad.Port = 0
	_, err := m.RequestConnect(bad)
	assert.Error(t, err)
	assert.Same(t, Disconnected, m.Current())

	_, err = m.RequestConnect(testConfig())
	require.NoError(t, err)

	_, err = m.RequestConnect(testConfig())
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	err = m.RequestDisconnect()
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Same(t, Connecting, m.Current())
}

func TestMachineRuleSetChange(t *testing.T) {
	m := NewMachine(config.DefaultRuleSetID, names)
	var got []RuleSetChange
	m.RuleSetChanged.Subscribe(func(c RuleSetChange) { got = append(got, c) })

	assert.False(t, m.ChangeRuleSet("DiceBot"))

	_, err := m.RequestConnect(testConfig())
	require.NoError(t, err)
	require.NoError(t, m.ConnectSucceeded())

	assert.True(t, m.ChangeRuleSet("Cthulhu"))
	assert.Same(t, Connected, m.Current())
	assert.Contains(t, m.Title(), "[Call of Cthulhu]")

	active, _ := m.Active()
	assert.Equal(t, "Cthulhu", active.RuleSetID)
	assert.Equal(t, []RuleSetChange{
		{ID: "DiceBot", Name: "DiceBot", Refresh: false},
		{ID: "Cthulhu", Name: "Call of Cthulhu", Refresh: true},
	}, got)
}

func TestMachineQuit(t *testing.T) {
	m := NewMachine(config.DefaultRuleSetID, nil)
	assert.Equal(t, EffectShutdown, m.RequestQuit())
	assert.Same(t, Disconnected, m.Current())
}
