package cards

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDecks = `
cards:
  - name: Knight
    cost: 3
    stats:
      hp: 300
      attack_damage: 40
      attack_cooldown: 1s
      attacks_ground: true
  - name: Drone
    cost: 3
    stats:
      hp: 150
      is_air_unit: true
      attack_cooldown: 750ms
decks:
  mixed: [Knight, Drone, Knight]
`

func TestLoadDeckFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/decks/sample.yaml", []byte(sampleDecks), 0o644))

	lib, err := LoadDeckFile(fs, "/decks/sample.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"Drone", "Knight"}, lib.CardNames())
	assert.Equal(t, []string{"mixed"}, lib.DeckNames())

	knight, ok := lib.Card("Knight")
	require.True(t, ok)
	assert.Equal(t, time.Second, knight.Stats.AttackCooldown)

	drone, ok := lib.Card("Drone")
	require.True(t, ok)
	assert.True(t, drone.Stats.IsAirUnit)
	assert.Equal(t, 750*time.Millisecond, drone.Stats.AttackCooldown)

	deck, err := lib.Deck("mixed")
	require.NoError(t, err)
	require.Len(t, deck, 3)
	assert.Same(t, deck[0], deck[2], "deck entries share the catalog definition")

	_, err = lib.Deck("missing")
	assert.ErrorIs(t, err, ErrNoDeck)
}

func TestLoadDeckFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := LoadDeckFile(fs, "/nope.yaml")
	assert.Error(t, err)

	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "cards: [::"},
		{"no cards", "decks: {}"},
		{"missing name", "cards:\n  - cost: 1\n    stats: {hp: 1}"},
		{"zero hp", "cards:\n  - name: Ghost\n    stats: {hp: 0}"},
		{"duplicate", "cards:\n  - name: A\n    stats: {hp: 1}\n  - name: A\n    stats: {hp: 1}"},
		{"unknown card", "cards:\n  - name: A\n    stats: {hp: 1}\ndecks:\n  d: [B]"},
		{"empty deck", "cards:\n  - name: A\n    stats: {hp: 1}\ndecks:\n  d: []"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLibrary([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestDefaultLibrary(t *testing.T) {
	lib := DefaultLibrary()

	deck, err := lib.Deck(DefaultDeckName)
	require.NoError(t, err)
	assert.Len(t, deck, 10)

	tank, ok := lib.Card("Tank")
	require.True(t, ok)
	assert.True(t, tank.Stats.AreaAttack())
	assert.True(t, tank.Stats.Directional)
	assert.Equal(t, 15.0, tank.Stats.ShellSpeed)

	giant, ok := lib.Card("Giant")
	require.True(t, ok)
	assert.False(t, giant.Stats.AttacksGround)
	assert.False(t, giant.Stats.AttacksAir)

	archer, ok := lib.Card("Archer")
	require.True(t, ok)
	assert.Equal(t, 2, archer.Stats.Units())
}
