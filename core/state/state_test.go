package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateAttributes(t *testing.T) {
	tests := []struct {
		state         *State
		enabledFields []Field
		buttonLabel   string
		buttonEnabled bool
		notifies      bool
	}{
		{Disconnected, AllFields, ConnectLabel, true, false},
		{Connecting, nil, ConnectLabel, false, false},
		{Connected, nil, DisconnectLabel, true, true},
		{Disconnecting, nil, DisconnectLabel, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.enabledFields, tt.state.EnabledFields())
			assert.Equal(t, tt.buttonLabel, tt.state.ButtonLabel)
			assert.Equal(t, tt.buttonEnabled, tt.state.ButtonEnabled)
			assert.Equal(t, tt.notifies, tt.state.NotifiesRuleSetChange)
			for _, f := range AllFields {
				assert.Equal(t, tt.state == Disconnected, tt.state.FieldEnabled(f), f.String())
			}
		})
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from   *State
		event  Event
		to     *State
		effect Effect
	}{
		{Disconnected, EventConnectRequested, Connecting, EffectStartClient},
		{Connecting, EventConnected, Connected, EffectNone},
		{Connecting, EventConnectFailed, Disconnected, EffectShowError},
		{Connecting, EventClientStopped, Disconnected, EffectNone},
		{Connected, EventDisconnectRequested, Disconnecting, EffectStopClient},
		{Connected, EventRuleSetChanged, Connected, EffectRefresh},
		{Connected, EventConnectFailed, Disconnected, EffectShowError},
		{Connected, EventClientStopped, Disconnected, EffectNone},
		{Disconnecting, EventClientStopped, Disconnected, EffectNone},
		{Disconnecting, EventConnectFailed, Disconnected, EffectShowError},
		{Disconnected, EventRuleSetChanged, Disconnected, EffectNone},
		{Connecting, EventRuleSetChanged, Connecting, EffectNone},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			to, effect, err := Transition(tt.from, tt.event)
			assert.NoError(t, err)
			assert.Same(t, tt.to, to)
			assert.Equal(t, tt.effect, effect)
		})
	}
}

func TestQuitFromEveryState(t *testing.T) {
	for _, s := range All() {
		to, effect, err := Transition(s, EventQuitRequested)
		assert.NoError(t, err)
		assert.Same(t, s, to)
		assert.Equal(t, EffectShutdown, effect)
	}
}

func TestIllegalTransitions(t *testing.T) {
	tests := []struct {
		from  *State
		event Event
	}{
		{Connecting, EventConnectRequested},
		{Connected, EventConnectRequested},
		{Disconnecting, EventConnectRequested},
		{Connecting, EventDisconnectRequested},
		{Disconnecting, EventDisconnectRequested},
		{Disconnected, EventDisconnectRequested},
		{Disconnected, EventConnected},
		{Disconnected, EventClientStopped},
		{Disconnected, EventConnectFailed},
		{Connected, EventConnected},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			to, effect, err := Transition(tt.from, tt.event)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			assert.Same(t, tt.from, to)
			assert.Equal(t, EffectNone, effect)
		})
	}
}
