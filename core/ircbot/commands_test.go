package ircbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSetGame(t *testing.T) {
	tests := []struct {
		text string
		id   string
		ok   bool
	}{
		{"set game->Cthulhu", "Cthulhu", true},
		{"Set Game->Alter_raise", "Alter_raise", true},
		{"SET   GAME->Elric!", "Elric!", true},
		{"set game->SwordWorld2.5", "SwordWorld2.5", true},
		{"  set game->DiceBot  ", "DiceBot", true},
		{"set game->", "", false},
		{"set game Cthulhu", "", false},
		{"please set game->Cthulhu", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			id, ok := parseSetGame(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestMasterPolicies(t *testing.T) {
	assert.True(t, AllowAll("anyone"))

	anyone := OnlyMaster("  ")
	assert.True(t, anyone("player"))

	gm := OnlyMaster("GameMaster")
	assert.True(t, gm("gamemaster"))
	assert.False(t, gm("player"))
}
